package services

import (
	"context"

	"github.com/SscSPs/portfolio_ledger/internal/core/domain"
	"github.com/SscSPs/portfolio_ledger/internal/dto"
)

// HoldingsDeriverSvc folds the ledger into current holdings.
type HoldingsDeriverSvc interface {
	// DeriveHoldings returns the non-zero holdings of every account of the user,
	// sorted by account then asset. An empty accountID means all accounts.
	DeriveHoldings(ctx context.Context, userID, accountID string) ([]domain.Holding, error)
}

// BalanceGuardSvc is the pre-flight overdraft check.
type BalanceGuardSvc interface {
	// EnsureSufficientBalance fails with *apperrors.InsufficientFundsError when
	// applying the negative deltas would drive any holding below zero.
	EnsureSufficientBalance(ctx context.Context, userID string, deltas []domain.BalanceDelta) error
}

// LedgerWriterSvc defines the compound ledger mutations. Each call commits all
// of its rows or none of them.
type LedgerWriterSvc interface {
	// CreateTransaction books one row plus an optional FEE row. Returns the primary row.
	CreateTransaction(ctx context.Context, userID string, req dto.CreateTransactionRequest) (*domain.Transaction, error)

	// AdjustTransaction books an ADJUST row declaring new values for an original row.
	AdjustTransaction(ctx context.Context, userID, transactionID string, req dto.AdjustTransactionRequest) (*domain.Transaction, error)

	// ReverseTransaction negates a row and its dependent rows. Returns the reversal of the target.
	ReverseTransaction(ctx context.Context, userID, transactionID string) (*domain.Transaction, error)

	// Transfer moves one asset between two of the user's accounts. Returns the outgoing row.
	Transfer(ctx context.Context, userID string, req dto.TransferRequest) (*domain.Transaction, error)

	// Exchange converts one asset into another. Returns the SELL anchor row.
	Exchange(ctx context.Context, userID string, req dto.ExchangeRequest) (*domain.Transaction, error)

	// Move routes to Transfer, Exchange or an exchange followed by a transfer.
	Move(ctx context.Context, userID string, req dto.MoveRequest) (*domain.Transaction, error)
}

// LedgerReaderSvc defines read operations on the ledger.
type LedgerReaderSvc interface {
	GetTransaction(ctx context.Context, userID, transactionID string) (*domain.Transaction, error)
	ListTransactions(ctx context.Context, userID string, params dto.ListTransactionsParams) (*dto.ListTransactionsResponse, error)
}

// LedgerSvcFacade combines all ledger-related service interfaces.
type LedgerSvcFacade interface {
	HoldingsDeriverSvc
	BalanceGuardSvc
	LedgerWriterSvc
	LedgerReaderSvc
}
