package pgsql

import (
	portsrepo "github.com/SscSPs/portfolio_ledger/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5/pgxpool"
)

func NewRepositoryProvider(dbPool *pgxpool.Pool) portsrepo.RepositoryProvider {
	catalogRepo := newPgxCatalogRepository(dbPool)

	return portsrepo.RepositoryProvider{
		TransactionRepo: newPgxTransactionRepository(dbPool),
		AccountRepo:     catalogRepo,
		AssetRepo:       catalogRepo,
		UserRepo:        catalogRepo,
		PriceRepo:       newPgxPriceRepository(dbPool),
		SnapshotRepo:    newPgxSnapshotRepository(dbPool),
	}
}
