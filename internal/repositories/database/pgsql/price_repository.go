package pgsql

import (
	"context"
	"time"

	"github.com/SscSPs/portfolio_ledger/internal/apperrors"
	"github.com/SscSPs/portfolio_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/portfolio_ledger/internal/core/ports/repositories"
	"github.com/SscSPs/portfolio_ledger/internal/models"
	"github.com/SscSPs/portfolio_ledger/internal/utils/mapping"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgxPriceRepository stores the price history.
type PgxPriceRepository struct {
	BaseRepository
}

func newPgxPriceRepository(pool *pgxpool.Pool) *PgxPriceRepository {
	return &PgxPriceRepository{BaseRepository: BaseRepository{Pool: pool}}
}

var _ portsrepo.PriceHistoryRepository = (*PgxPriceRepository)(nil)

// FindLatestPricesSince returns the newest point per asset after since.
func (r *PgxPriceRepository) FindLatestPricesSince(ctx context.Context, assetIDs []string, quoteCurrency string, since time.Time) (map[string]domain.PricePoint, error) {
	out := make(map[string]domain.PricePoint, len(assetIDs))
	if len(assetIDs) == 0 {
		return out, nil
	}
	query := `
		SELECT DISTINCT ON (asset_id) asset_id, quote_currency, price, source, price_at
		FROM price_history
		WHERE asset_id = ANY($1) AND quote_currency = $2 AND price_at > $3
		ORDER BY asset_id, price_at DESC;
	`
	rows, err := r.Pool.Query(ctx, query, assetIDs, quoteCurrency, since.UTC())
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to query latest prices", err)
	}
	defer rows.Close()
	for rows.Next() {
		var m models.PricePoint
		if err := rows.Scan(&m.AssetID, &m.QuoteCurrency, &m.Price, &m.Source, &m.Timestamp); err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan price row", err)
		}
		out[m.AssetID] = mapping.ToDomainPricePoint(m)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "error iterating price rows", err)
	}
	return out, nil
}

// FindPriceAt returns the newest point at or before at.
func (r *PgxPriceRepository) FindPriceAt(ctx context.Context, assetID, quoteCurrency string, at time.Time) (*domain.PricePoint, error) {
	query := `
		SELECT asset_id, quote_currency, price, source, price_at
		FROM price_history
		WHERE asset_id = $1 AND quote_currency = $2 AND price_at <= $3
		ORDER BY price_at DESC
		LIMIT 1;
	`
	var m models.PricePoint
	err := r.Pool.QueryRow(ctx, query, assetID, quoteCurrency, at.UTC()).Scan(&m.AssetID, &m.QuoteCurrency, &m.Price, &m.Source, &m.Timestamp)
	if err != nil {
		return nil, notFound(err, "price for asset", assetID)
	}
	d := mapping.ToDomainPricePoint(m)
	return &d, nil
}

// UpsertPrices writes all points in one batch; a repeated key keeps the newest price.
func (r *PgxPriceRepository) UpsertPrices(ctx context.Context, points []domain.PricePoint) error {
	if len(points) == 0 {
		return nil
	}
	query := `
		INSERT INTO price_history (asset_id, quote_currency, price, source, price_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (asset_id, quote_currency, source, price_at) DO UPDATE SET price = EXCLUDED.price;
	`
	batch := &pgx.Batch{}
	for _, p := range points {
		m := mapping.ToModelPricePoint(p)
		batch.Queue(query, m.AssetID, m.QuoteCurrency, m.Price, m.Source, m.Timestamp)
	}
	if err := r.Pool.SendBatch(ctx, batch).Close(); err != nil {
		return apperrors.NewAppError(500, "failed to upsert prices", err)
	}
	return nil
}
