package services

// ServiceContainer holds instances of all the application services.
// It is the entry point for handlers and background jobs.
type ServiceContainer struct {
	Ledger    LedgerSvcFacade
	Price     PriceSvc
	FxRate    FxRateSvc
	Valuation ValuationSvc
	Snapshot  SnapshotSvc
	Metrics   MetricsSvc
}
