package pgsql

import (
	"context"
	"strings"

	"github.com/SscSPs/portfolio_ledger/internal/apperrors"
	"github.com/SscSPs/portfolio_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/portfolio_ledger/internal/core/ports/repositories"
	"github.com/SscSPs/portfolio_ledger/internal/models"
	"github.com/SscSPs/portfolio_ledger/internal/utils/mapping"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgxCatalogRepository serves the read-only reference data: assets, accounts with
// their platform, and users.
type PgxCatalogRepository struct {
	BaseRepository
}

func newPgxCatalogRepository(pool *pgxpool.Pool) *PgxCatalogRepository {
	return &PgxCatalogRepository{BaseRepository: BaseRepository{Pool: pool}}
}

var (
	_ portsrepo.AccountReader = (*PgxCatalogRepository)(nil)
	_ portsrepo.AssetReader   = (*PgxCatalogRepository)(nil)
	_ portsrepo.UserReader    = (*PgxCatalogRepository)(nil)
)

const accountSelect = `
	SELECT a.account_id, a.user_id, a.name, a.currency_code,
	       p.platform_id, p.name, p.platform_type, a.created_at, a.updated_at
	FROM accounts a
	JOIN platforms p ON p.platform_id = a.platform_id`

func scanAccount(row pgx.Row) (models.Account, error) {
	var m models.Account
	err := row.Scan(&m.AccountID, &m.UserID, &m.Name, &m.CurrencyCode,
		&m.PlatformID, &m.PlatformName, &m.PlatformType, &m.CreatedAt, &m.UpdatedAt)
	return m, err
}

// FindAccountByID retrieves an account with its platform.
func (r *PgxCatalogRepository) FindAccountByID(ctx context.Context, accountID string) (*domain.Account, error) {
	m, err := scanAccount(r.Pool.QueryRow(ctx, accountSelect+` WHERE a.account_id = $1;`, accountID))
	if err != nil {
		return nil, notFound(err, "account", accountID)
	}
	d := mapping.ToDomainAccount(m)
	return &d, nil
}

// FindAccountsByIDs retrieves accounts keyed by id. Missing ids are absent from the map.
func (r *PgxCatalogRepository) FindAccountsByIDs(ctx context.Context, accountIDs []string) (map[string]domain.Account, error) {
	out := make(map[string]domain.Account, len(accountIDs))
	if len(accountIDs) == 0 {
		return out, nil
	}
	rows, err := r.Pool.Query(ctx, accountSelect+` WHERE a.account_id = ANY($1);`, accountIDs)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to query accounts", err)
	}
	defer rows.Close()
	for rows.Next() {
		m, err := scanAccount(rows)
		if err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan account row", err)
		}
		out[m.AccountID] = mapping.ToDomainAccount(m)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "error iterating account rows", err)
	}
	return out, nil
}

const assetSelect = `SELECT asset_id, symbol, name, asset_type FROM assets`

func scanAsset(row pgx.Row) (models.Asset, error) {
	var m models.Asset
	err := row.Scan(&m.AssetID, &m.Symbol, &m.Name, &m.AssetType)
	return m, err
}

// FindAssetByID retrieves one asset.
func (r *PgxCatalogRepository) FindAssetByID(ctx context.Context, assetID string) (*domain.Asset, error) {
	m, err := scanAsset(r.Pool.QueryRow(ctx, assetSelect+` WHERE asset_id = $1;`, assetID))
	if err != nil {
		return nil, notFound(err, "asset", assetID)
	}
	d := mapping.ToDomainAsset(m)
	return &d, nil
}

// FindAssetBySymbol matches the symbol case-insensitively.
func (r *PgxCatalogRepository) FindAssetBySymbol(ctx context.Context, symbol string) (*domain.Asset, error) {
	m, err := scanAsset(r.Pool.QueryRow(ctx, assetSelect+` WHERE upper(symbol) = $1 ORDER BY asset_id LIMIT 1;`, strings.ToUpper(symbol)))
	if err != nil {
		return nil, notFound(err, "asset symbol", symbol)
	}
	d := mapping.ToDomainAsset(m)
	return &d, nil
}

// FindAssetsByIDs retrieves assets keyed by id.
func (r *PgxCatalogRepository) FindAssetsByIDs(ctx context.Context, assetIDs []string) (map[string]domain.Asset, error) {
	out := make(map[string]domain.Asset, len(assetIDs))
	if len(assetIDs) == 0 {
		return out, nil
	}
	rows, err := r.Pool.Query(ctx, assetSelect+` WHERE asset_id = ANY($1);`, assetIDs)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to query assets", err)
	}
	defer rows.Close()
	for rows.Next() {
		m, err := scanAsset(rows)
		if err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan asset row", err)
		}
		out[m.AssetID] = mapping.ToDomainAsset(m)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "error iterating asset rows", err)
	}
	return out, nil
}

// FindUserByID retrieves a user that has not been deleted.
func (r *PgxCatalogRepository) FindUserByID(ctx context.Context, userID string) (*domain.User, error) {
	query := `
		SELECT user_id, name, base_currency, created_at, updated_at
		FROM users
		WHERE user_id = $1 AND deleted_at IS NULL;
	`
	var m models.User
	err := r.Pool.QueryRow(ctx, query, userID).Scan(&m.UserID, &m.Name, &m.BaseCurrency, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, notFound(err, "user", userID)
	}
	d := mapping.ToDomainUser(m)
	return &d, nil
}

// ListUserIDs returns every active user id.
func (r *PgxCatalogRepository) ListUserIDs(ctx context.Context) ([]string, error) {
	rows, err := r.Pool.Query(ctx, `SELECT user_id FROM users WHERE deleted_at IS NULL ORDER BY user_id;`)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to list users", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to scan user ids", err)
	}
	return ids, nil
}
