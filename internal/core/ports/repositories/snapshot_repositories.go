package repositories

import (
	"context"

	"github.com/SscSPs/portfolio_ledger/internal/core/domain"
)

// SnapshotReader defines read operations for portfolio snapshots.
type SnapshotReader interface {
	// FindSnapshotByDate returns the snapshot for a user and YYYY-MM-DD date, with items.
	FindSnapshotByDate(ctx context.Context, userID, date string) (*domain.PortfolioSnapshot, error)

	// ListSnapshots returns snapshots (without items) with from <= date <= to, oldest first.
	// Empty bounds are open.
	ListSnapshots(ctx context.Context, userID, from, to string) ([]domain.PortfolioSnapshot, error)
}

// SnapshotWriter defines the idempotent daily write.
type SnapshotWriter interface {
	// CreateOrReplace inserts the snapshot for (UserID, SnapshotDate) or, when one
	// exists, updates its totals and replaces all of its items, inside one transaction.
	CreateOrReplace(ctx context.Context, snapshot domain.PortfolioSnapshot) (*domain.PortfolioSnapshot, error)
}

// SnapshotRepositoryFacade combines snapshot reads and writes.
type SnapshotRepositoryFacade interface {
	SnapshotReader
	SnapshotWriter
}
