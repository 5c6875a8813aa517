package services

import (
	"context"
	"time"

	"github.com/SscSPs/portfolio_ledger/internal/core/domain"
	"github.com/shopspring/decimal"
)

// PriceSvc resolves market prices through the price history cache and the providers.
type PriceSvc interface {
	// GetLatestPrices returns the USD-denominated quote per asset. Assets that
	// could not be priced are absent from the map.
	GetLatestPrices(ctx context.Context, assets []domain.Asset) map[string]domain.Quote

	// GetHistoricalPrice returns the asset's USD close on the day of at.
	GetHistoricalPrice(ctx context.Context, asset domain.Asset, at time.Time) (decimal.Decimal, bool)

	// SyncPrices fetches fresh quotes for every given asset, bypassing the
	// freshness window, and persists them. Returns the number of assets priced.
	SyncPrices(ctx context.Context, assets []domain.Asset) int
}

// FxRateSvc resolves currency conversion rates.
type FxRateSvc interface {
	// UsdTo returns how many units of quoteCurrency one USD buys. ok is false
	// when no source could provide the rate.
	UsdTo(ctx context.Context, quoteCurrency string) (decimal.Decimal, bool)

	// UsdToAt is UsdTo for a past date.
	UsdToAt(ctx context.Context, quoteCurrency string, at time.Time) (decimal.Decimal, bool)

	// BlendedRate queries every configured FX source in parallel and averages the valid answers.
	BlendedRate(ctx context.Context, base, quote string) (*domain.FxRate, error)
}

// ValuationSvc prices holdings in a quote currency.
type ValuationSvc interface {
	// ResolvePrices returns the price of each asset in quoteCurrency. Unpriced assets are absent.
	ResolvePrices(ctx context.Context, assets []domain.Asset, quoteCurrency string) map[string]decimal.Decimal

	// GetCurrentPrice returns the asset's price in quoteCurrency, served from the live-price cache.
	GetCurrentPrice(ctx context.Context, assetID, quoteCurrency string) (decimal.Decimal, error)

	GetAccountHoldings(ctx context.Context, userID, accountID, quoteCurrency string) (*domain.AccountHoldings, error)
	GetAssetAllocation(ctx context.Context, userID, quoteCurrency string) (*domain.Allocation, error)
	GetPlatformDistribution(ctx context.Context, userID, quoteCurrency string) (*domain.Allocation, error)
}

// SnapshotSvc builds and persists daily portfolio snapshots.
type SnapshotSvc interface {
	// BuildSnapshot values the whole portfolio without persisting it.
	BuildSnapshot(ctx context.Context, userID string) (*domain.PortfolioSnapshot, error)

	// CreateOrReplaceTodaySnapshot idempotently persists today's snapshot.
	CreateOrReplaceTodaySnapshot(ctx context.Context, userID string) (*domain.PortfolioSnapshot, error)

	GetSnapshot(ctx context.Context, userID, date string) (*domain.PortfolioSnapshot, error)
	ListSnapshots(ctx context.Context, userID, from, to string) ([]domain.PortfolioSnapshot, error)
}

// MetricsSvc derives PnL and performance series.
type MetricsSvc interface {
	GetPortfolioMetrics(ctx context.Context, userID string, loc *time.Location) (*domain.PortfolioMetrics, error)
	GetPerformance(ctx context.Context, userID string, r domain.PerformanceRange, interval domain.PerformanceInterval) ([]domain.PerformancePoint, error)
}
