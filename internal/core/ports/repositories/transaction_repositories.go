package repositories

import (
	"context"

	"github.com/SscSPs/portfolio_ledger/internal/core/domain"
)

// TransactionReader defines read operations on the ledger.
type TransactionReader interface {
	// FindTransactionByID retrieves a ledger row by id.
	FindTransactionByID(ctx context.Context, transactionID string) (*domain.Transaction, error)

	// FindTransactionsByUserID retrieves a user's ledger rows matching the filter,
	// ordered by transaction date then creation time. The returned token is nil on the last page.
	FindTransactionsByUserID(ctx context.Context, userID string, filter domain.TransactionFilter) ([]domain.Transaction, *string, error)

	// FindTransactionsByReferenceID retrieves every row whose ReferenceTxID equals transactionID.
	FindTransactionsByReferenceID(ctx context.Context, transactionID string) ([]domain.Transaction, error)
}

// TransactionWriter appends ledger rows. There is no update or delete.
type TransactionWriter interface {
	// SaveTransaction inserts one ledger row.
	SaveTransaction(ctx context.Context, txn domain.Transaction) error
}

// TransactionRepositoryWithTx combines ledger reads with transactional writes.
type TransactionRepositoryWithTx interface {
	TransactionReader
	TransactionManager
}
