package services

import (
	portscache "github.com/SscSPs/portfolio_ledger/internal/core/ports/cache"
	"github.com/SscSPs/portfolio_ledger/internal/core/ports/providers"
	portsrepo "github.com/SscSPs/portfolio_ledger/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/portfolio_ledger/internal/core/ports/services"
	"github.com/SscSPs/portfolio_ledger/internal/platform/config"
)

// NewServiceContainer creates a new service container with properly initialized dependencies
func NewServiceContainer(cfg *config.Config, repos portsrepo.RepositoryProvider, market providers.Set, store portscache.Store) *portssvc.ServiceContainer {
	container := &portssvc.ServiceContainer{}

	// One cache serves valuations, live prices and FX; the ledger invalidates it on every commit.
	valuationCache := NewValuationCache(store, cfg.HoldingsCacheTTL, cfg.AllocationCacheTTL, cfg.LivePriceTTL)

	container.Ledger = NewLedgerService(
		repos.TransactionRepo,
		repos.AccountRepo,
		repos.AssetRepo,
		WithCacheInvalidator(valuationCache),
	)

	container.Price = NewPriceService(
		market.StockFx,
		market.Crypto,
		repos.PriceRepo,
		WithPriceFreshness(cfg.PriceFreshnessWindow),
	)
	container.FxRate = NewFxRateService(market.StockFx, market.FxSources, store, cfg.PriceFreshnessWindow)

	container.Valuation = NewValuationService(
		container.Ledger,
		container.Price,
		container.FxRate,
		repos.AccountRepo,
		repos.AssetRepo,
		valuationCache,
	)

	container.Snapshot = NewSnapshotService(
		container.Ledger,
		container.Price,
		container.FxRate,
		repos.UserRepo,
		repos.AssetRepo,
		repos.SnapshotRepo,
	)

	container.Metrics = NewMetricsService(
		container.Snapshot,
		repos.SnapshotRepo,
		repos.TransactionRepo,
		repos.AssetRepo,
		container.Price,
		container.FxRate,
	)

	return container
}

// Helper to check interface implementations at compile time
var (
	_ portssvc.LedgerSvcFacade = (*ledgerService)(nil)
	_ portssvc.ValuationSvc    = (*valuationService)(nil)
)
