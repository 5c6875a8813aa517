package pgsql

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/SscSPs/portfolio_ledger/internal/apperrors"
	"github.com/SscSPs/portfolio_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/portfolio_ledger/internal/core/ports/repositories"
	"github.com/SscSPs/portfolio_ledger/internal/models"
	"github.com/SscSPs/portfolio_ledger/internal/utils/mapping"
	"github.com/SscSPs/portfolio_ledger/internal/utils/pagination"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const transactionColumns = `transaction_id, user_id, account_id, asset_id, transaction_type, correction_type,
	reference_tx_id, quantity, payment_asset_id, payment_quantity, total_amount, exchange_rate,
	transaction_date, notes, created_at`

// ledgerQueries holds the ledger statements so they can run against the pool or a tx.
type ledgerQueries struct {
	q querier
}

// PgxTransactionRepository is the append-only ledger store.
type PgxTransactionRepository struct {
	BaseRepository
	ledgerQueries
}

func newPgxTransactionRepository(pool *pgxpool.Pool) *PgxTransactionRepository {
	return &PgxTransactionRepository{
		BaseRepository: BaseRepository{Pool: pool},
		ledgerQueries:  ledgerQueries{q: pool},
	}
}

var _ portsrepo.TransactionRepositoryWithTx = (*PgxTransactionRepository)(nil)

// pgxLedgerTx is the ledger view bound to one open transaction.
type pgxLedgerTx struct {
	ledgerQueries
	tx pgx.Tx
}

var _ portsrepo.LedgerTx = (*pgxLedgerTx)(nil)

// RunInTransaction commits when fn returns nil and rolls back otherwise.
func (r *PgxTransactionRepository) RunInTransaction(ctx context.Context, fn func(ctx context.Context, tx portsrepo.LedgerTx) error) error {
	return r.InTx(ctx, func(tx pgx.Tx) error {
		return fn(ctx, &pgxLedgerTx{ledgerQueries: ledgerQueries{q: tx}, tx: tx})
	})
}

// LockAccounts takes a transaction-scoped advisory lock per account, in sorted
// order so that concurrent writers touching overlapping accounts cannot deadlock.
func (t *pgxLedgerTx) LockAccounts(ctx context.Context, accountIDs []string) error {
	ids := append([]string(nil), accountIDs...)
	sort.Strings(ids)
	var prev string
	for i, id := range ids {
		if i > 0 && id == prev {
			continue
		}
		prev = id
		if _, err := t.tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, id); err != nil {
			return apperrors.NewAppError(500, "failed to lock account "+id, err)
		}
	}
	return nil
}

// SaveTransaction inserts one ledger row.
func (l ledgerQueries) SaveTransaction(ctx context.Context, txn domain.Transaction) error {
	m := mapping.ToModelTransaction(txn)
	query := `
		INSERT INTO transactions (` + transactionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15);
	`
	_, err := l.q.Exec(ctx, query,
		m.TransactionID,
		m.UserID,
		m.AccountID,
		m.AssetID,
		m.TransactionType,
		m.CorrectionType,
		m.ReferenceTxID,
		m.Quantity,
		m.PaymentAssetID,
		m.PaymentQuantity,
		m.TotalAmount,
		m.ExchangeRate,
		m.TransactionDate,
		m.Notes,
		m.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("transaction %s: %w", m.TransactionID, apperrors.ErrDuplicate)
		}
		return apperrors.NewAppError(500, "failed to insert transaction "+m.TransactionID, err)
	}
	return nil
}

func scanTransaction(row pgx.Row) (models.Transaction, error) {
	var m models.Transaction
	err := row.Scan(
		&m.TransactionID,
		&m.UserID,
		&m.AccountID,
		&m.AssetID,
		&m.TransactionType,
		&m.CorrectionType,
		&m.ReferenceTxID,
		&m.Quantity,
		&m.PaymentAssetID,
		&m.PaymentQuantity,
		&m.TotalAmount,
		&m.ExchangeRate,
		&m.TransactionDate,
		&m.Notes,
		&m.CreatedAt,
	)
	return m, err
}

func collectTransactions(rows pgx.Rows) ([]models.Transaction, error) {
	defer rows.Close()
	var out []models.Transaction
	for rows.Next() {
		m, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// FindTransactionByID retrieves a ledger row by id.
func (l ledgerQueries) FindTransactionByID(ctx context.Context, transactionID string) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE transaction_id = $1;`
	m, err := scanTransaction(l.q.QueryRow(ctx, query, transactionID))
	if err != nil {
		return nil, notFound(err, "transaction", transactionID)
	}
	d := mapping.ToDomainTransaction(m)
	return &d, nil
}

// FindTransactionsByReferenceID retrieves every row pointing at transactionID.
func (l ledgerQueries) FindTransactionsByReferenceID(ctx context.Context, transactionID string) ([]domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + `
		FROM transactions
		WHERE reference_tx_id = $1
		ORDER BY transaction_date, created_at, transaction_id;`
	rows, err := l.q.Query(ctx, query, transactionID)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to query corrections of "+transactionID, err)
	}
	ms, err := collectTransactions(rows)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to scan corrections of "+transactionID, err)
	}
	return mapping.ToDomainTransactionSlice(ms), nil
}

// FindTransactionsByUserID lists a user's rows in ledger order using keyset pagination.
// One extra row is fetched to decide whether another page exists.
func (l ledgerQueries) FindTransactionsByUserID(ctx context.Context, userID string, filter domain.TransactionFilter) ([]domain.Transaction, *string, error) {
	where := []string{"user_id = $1"}
	args := []any{userID}
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if filter.AccountID != "" {
		where = append(where, "account_id = "+arg(filter.AccountID))
	}
	if filter.AssetID != "" {
		where = append(where, "asset_id = "+arg(filter.AssetID))
	}
	if len(filter.Types) > 0 {
		types := make([]string, len(filter.Types))
		for i, t := range filter.Types {
			types[i] = string(t)
		}
		where = append(where, "transaction_type = ANY("+arg(types)+")")
	}
	if filter.From != nil {
		where = append(where, "transaction_date >= "+arg(filter.From.UTC()))
	}
	if filter.To != nil {
		where = append(where, "transaction_date <= "+arg(filter.To.UTC()))
	}
	if filter.NextToken != nil && *filter.NextToken != "" {
		cursor, err := pagination.DecodeToken(*filter.NextToken)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid nextToken: %w", apperrors.ErrValidation)
		}
		where = append(where, fmt.Sprintf("(transaction_date, created_at, transaction_id) > (%s, %s, %s)",
			arg(cursor.TransactionDate), arg(cursor.CreatedAt), arg(cursor.TransactionID)))
	}

	query := `SELECT ` + transactionColumns + `
		FROM transactions
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY transaction_date, created_at, transaction_id`
	if filter.Limit > 0 {
		query += " LIMIT " + arg(filter.Limit+1)
	}

	rows, err := l.q.Query(ctx, query, args...)
	if err != nil {
		return nil, nil, apperrors.NewAppError(500, "failed to query transactions for user "+userID, err)
	}
	ms, err := collectTransactions(rows)
	if err != nil {
		return nil, nil, apperrors.NewAppError(500, "failed to scan transactions for user "+userID, err)
	}

	var next *string
	if filter.Limit > 0 && len(ms) > filter.Limit {
		last := ms[filter.Limit-1]
		token := pagination.EncodeToken(pagination.Cursor{
			TransactionDate: last.TransactionDate,
			CreatedAt:       last.CreatedAt,
			TransactionID:   last.TransactionID,
		})
		next = &token
		ms = ms[:filter.Limit]
	}
	return mapping.ToDomainTransactionSlice(ms), next, nil
}
