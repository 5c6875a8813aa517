package repositories

import (
	"context"
	"time"

	"github.com/SscSPs/portfolio_ledger/internal/core/domain"
)

// PriceHistoryRepository is the persisted price history store.
type PriceHistoryRepository interface {
	// FindLatestPricesSince returns, per asset, the newest point for quoteCurrency
	// with a timestamp after since. Assets without such a point are absent.
	FindLatestPricesSince(ctx context.Context, assetIDs []string, quoteCurrency string, since time.Time) (map[string]domain.PricePoint, error)

	// FindPriceAt returns the newest point for the asset at or before at.
	FindPriceAt(ctx context.Context, assetID, quoteCurrency string, at time.Time) (*domain.PricePoint, error)

	// UpsertPrices stores points idempotently, keyed by asset, quote currency, source and timestamp.
	UpsertPrices(ctx context.Context, points []domain.PricePoint) error
}
