package repositories

// RepositoryProvider holds all repository interfaces needed by services.
type RepositoryProvider struct {
	TransactionRepo TransactionRepositoryWithTx
	AccountRepo     AccountReader
	AssetRepo       AssetReader
	UserRepo        UserReader
	PriceRepo       PriceHistoryRepository
	SnapshotRepo    SnapshotRepositoryFacade
}
