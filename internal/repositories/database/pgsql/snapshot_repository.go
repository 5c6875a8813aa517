package pgsql

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/SscSPs/portfolio_ledger/internal/apperrors"
	"github.com/SscSPs/portfolio_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/portfolio_ledger/internal/core/ports/repositories"
	"github.com/SscSPs/portfolio_ledger/internal/models"
	"github.com/SscSPs/portfolio_ledger/internal/utils/mapping"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const snapshotColumns = `snapshot_id, user_id, snapshot_date, base_currency, fx_usd_to_base,
	total_value_usd, total_value_base, created_at, updated_at`

// PgxSnapshotRepository stores daily portfolio snapshots and their items.
type PgxSnapshotRepository struct {
	BaseRepository
	now func() time.Time
}

func newPgxSnapshotRepository(pool *pgxpool.Pool) *PgxSnapshotRepository {
	return &PgxSnapshotRepository{BaseRepository: BaseRepository{Pool: pool}, now: time.Now}
}

var _ portsrepo.SnapshotRepositoryFacade = (*PgxSnapshotRepository)(nil)

func scanSnapshot(row pgx.Row) (models.PortfolioSnapshot, error) {
	var m models.PortfolioSnapshot
	err := row.Scan(&m.SnapshotID, &m.UserID, &m.SnapshotDate, &m.BaseCurrency, &m.FxUsdToBase,
		&m.TotalValueUsd, &m.TotalValueBase, &m.CreatedAt, &m.UpdatedAt)
	return m, err
}

// CreateOrReplace upserts the header on (user_id, snapshot_date), then deletes and
// re-inserts every item, all in one transaction. The row lock taken by the
// upsert serializes concurrent writers for the same day.
func (r *PgxSnapshotRepository) CreateOrReplace(ctx context.Context, snapshot domain.PortfolioSnapshot) (*domain.PortfolioSnapshot, error) {
	header, err := mapping.ToModelSnapshot(snapshot)
	if err != nil {
		return nil, apperrors.NewAppError(400, "invalid snapshot date "+snapshot.SnapshotDate, err)
	}
	now := r.now().UTC()
	if header.SnapshotID == "" {
		header.SnapshotID = uuid.NewString()
	}

	var saved models.PortfolioSnapshot
	var items []domain.SnapshotItem
	err = r.InTx(ctx, func(tx pgx.Tx) error {
		upsert := `
			INSERT INTO portfolio_snapshots (` + snapshotColumns + `)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
			ON CONFLICT (user_id, snapshot_date) DO UPDATE SET
				base_currency = EXCLUDED.base_currency,
				fx_usd_to_base = EXCLUDED.fx_usd_to_base,
				total_value_usd = EXCLUDED.total_value_usd,
				total_value_base = EXCLUDED.total_value_base,
				updated_at = EXCLUDED.updated_at
			RETURNING ` + snapshotColumns + `;
		`
		var err error
		saved, err = scanSnapshot(tx.QueryRow(ctx, upsert,
			header.SnapshotID,
			header.UserID,
			header.SnapshotDate,
			header.BaseCurrency,
			header.FxUsdToBase,
			header.TotalValueUsd,
			header.TotalValueBase,
			now,
		))
		if err != nil {
			return apperrors.NewAppError(500, "failed to upsert snapshot", err)
		}

		if _, err := tx.Exec(ctx, `DELETE FROM portfolio_snapshot_items WHERE snapshot_id = $1;`, saved.SnapshotID); err != nil {
			return apperrors.NewAppError(500, "failed to clear snapshot items", err)
		}

		insert := `
			INSERT INTO portfolio_snapshot_items (snapshot_item_id, snapshot_id, account_id, asset_id,
				quantity, price_usd, price_base, value_usd, value_base)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9);
		`
		batch := &pgx.Batch{}
		items = make([]domain.SnapshotItem, len(snapshot.Items))
		for i, it := range snapshot.Items {
			it.SnapshotID = saved.SnapshotID
			if it.SnapshotItemID == "" {
				it.SnapshotItemID = uuid.NewString()
			}
			items[i] = it
			m := mapping.ToModelSnapshotItem(it)
			batch.Queue(insert, m.SnapshotItemID, m.SnapshotID, m.AccountID, m.AssetID,
				m.Quantity, m.PriceUsd, m.PriceBase, m.ValueUsd, m.ValueBase)
		}
		if batch.Len() > 0 {
			if err := tx.SendBatch(ctx, batch).Close(); err != nil {
				return apperrors.NewAppError(500, "failed to insert snapshot items", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := mapping.ToDomainSnapshot(saved)
	out.Items = items
	return &out, nil
}

// FindSnapshotByDate returns the snapshot for a day with its items.
func (r *PgxSnapshotRepository) FindSnapshotByDate(ctx context.Context, userID, date string) (*domain.PortfolioSnapshot, error) {
	m, err := scanSnapshot(r.Pool.QueryRow(ctx,
		`SELECT `+snapshotColumns+` FROM portfolio_snapshots WHERE user_id = $1 AND snapshot_date = $2;`, userID, date))
	if err != nil {
		return nil, notFound(err, "snapshot", date)
	}

	rows, err := r.Pool.Query(ctx, `
		SELECT snapshot_item_id, snapshot_id, account_id, asset_id, quantity, price_usd, price_base, value_usd, value_base
		FROM portfolio_snapshot_items
		WHERE snapshot_id = $1
		ORDER BY value_usd DESC, account_id, asset_id;`, m.SnapshotID)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to query snapshot items", err)
	}
	defer rows.Close()

	snap := mapping.ToDomainSnapshot(m)
	for rows.Next() {
		var it models.SnapshotItem
		if err := rows.Scan(&it.SnapshotItemID, &it.SnapshotID, &it.AccountID, &it.AssetID,
			&it.Quantity, &it.PriceUsd, &it.PriceBase, &it.ValueUsd, &it.ValueBase); err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan snapshot item", err)
		}
		snap.Items = append(snap.Items, mapping.ToDomainSnapshotItem(it))
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "error iterating snapshot items", err)
	}
	return &snap, nil
}

// ListSnapshots returns headers oldest first. Empty bounds are open.
func (r *PgxSnapshotRepository) ListSnapshots(ctx context.Context, userID, from, to string) ([]domain.PortfolioSnapshot, error) {
	where := []string{"user_id = $1"}
	args := []any{userID}
	if from != "" {
		args = append(args, from)
		where = append(where, "snapshot_date >= $"+strconv.Itoa(len(args)))
	}
	if to != "" {
		args = append(args, to)
		where = append(where, "snapshot_date <= $"+strconv.Itoa(len(args)))
	}
	rows, err := r.Pool.Query(ctx, `SELECT `+snapshotColumns+`
		FROM portfolio_snapshots
		WHERE `+strings.Join(where, " AND ")+`
		ORDER BY snapshot_date;`, args...)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to query snapshots for user "+userID, err)
	}
	defer rows.Close()

	var out []domain.PortfolioSnapshot
	for rows.Next() {
		m, err := scanSnapshot(rows)
		if err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan snapshot row", err)
		}
		out = append(out, mapping.ToDomainSnapshot(m))
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "error iterating snapshot rows", err)
	}
	return out, nil
}
