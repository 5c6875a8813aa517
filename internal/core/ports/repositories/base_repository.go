package repositories

import (
	"context"
)

// LedgerTx is the view of the ledger available inside a database transaction.
// Reads through it observe rows written earlier in the same transaction.
type LedgerTx interface {
	TransactionReader
	TransactionWriter

	// LockAccounts takes a transaction-scoped lock on each account so that the
	// balance check and the inserts that follow cannot interleave with another writer.
	LockAccounts(ctx context.Context, accountIDs []string) error
}

// TransactionManager runs a unit of work atomically.
type TransactionManager interface {
	// RunInTransaction commits when fn returns nil and rolls back otherwise.
	RunInTransaction(ctx context.Context, fn func(ctx context.Context, tx LedgerTx) error) error
}
