package handlers_test

import (
	"context"
	"time"

	"github.com/SscSPs/portfolio_ledger/internal/core/domain"
	portssvc "github.com/SscSPs/portfolio_ledger/internal/core/ports/services"
	"github.com/SscSPs/portfolio_ledger/internal/dto"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// --- Mock LedgerService ---
type MockLedgerService struct {
	mock.Mock
}

func (m *MockLedgerService) DeriveHoldings(ctx context.Context, userID, accountID string) ([]domain.Holding, error) {
	args := m.Called(ctx, userID, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Holding), args.Error(1)
}

func (m *MockLedgerService) EnsureSufficientBalance(ctx context.Context, userID string, deltas []domain.BalanceDelta) error {
	return m.Called(ctx, userID, deltas).Error(0)
}

func (m *MockLedgerService) txnResult(args mock.Arguments) (*domain.Transaction, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Transaction), args.Error(1)
}

func (m *MockLedgerService) CreateTransaction(ctx context.Context, userID string, req dto.CreateTransactionRequest) (*domain.Transaction, error) {
	return m.txnResult(m.Called(ctx, userID, req))
}

func (m *MockLedgerService) AdjustTransaction(ctx context.Context, userID, transactionID string, req dto.AdjustTransactionRequest) (*domain.Transaction, error) {
	return m.txnResult(m.Called(ctx, userID, transactionID, req))
}

func (m *MockLedgerService) ReverseTransaction(ctx context.Context, userID, transactionID string) (*domain.Transaction, error) {
	return m.txnResult(m.Called(ctx, userID, transactionID))
}

func (m *MockLedgerService) Transfer(ctx context.Context, userID string, req dto.TransferRequest) (*domain.Transaction, error) {
	return m.txnResult(m.Called(ctx, userID, req))
}

func (m *MockLedgerService) Exchange(ctx context.Context, userID string, req dto.ExchangeRequest) (*domain.Transaction, error) {
	return m.txnResult(m.Called(ctx, userID, req))
}

func (m *MockLedgerService) Move(ctx context.Context, userID string, req dto.MoveRequest) (*domain.Transaction, error) {
	return m.txnResult(m.Called(ctx, userID, req))
}

func (m *MockLedgerService) GetTransaction(ctx context.Context, userID, transactionID string) (*domain.Transaction, error) {
	return m.txnResult(m.Called(ctx, userID, transactionID))
}

func (m *MockLedgerService) ListTransactions(ctx context.Context, userID string, params dto.ListTransactionsParams) (*dto.ListTransactionsResponse, error) {
	args := m.Called(ctx, userID, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.ListTransactionsResponse), args.Error(1)
}

var _ portssvc.LedgerSvcFacade = (*MockLedgerService)(nil)

// --- Mock ValuationService ---
type MockValuationService struct {
	mock.Mock
}

func (m *MockValuationService) ResolvePrices(ctx context.Context, assets []domain.Asset, quoteCurrency string) map[string]decimal.Decimal {
	args := m.Called(ctx, assets, quoteCurrency)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).(map[string]decimal.Decimal)
}

func (m *MockValuationService) GetCurrentPrice(ctx context.Context, assetID, quoteCurrency string) (decimal.Decimal, error) {
	args := m.Called(ctx, assetID, quoteCurrency)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockValuationService) GetAccountHoldings(ctx context.Context, userID, accountID, quoteCurrency string) (*domain.AccountHoldings, error) {
	args := m.Called(ctx, userID, accountID, quoteCurrency)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AccountHoldings), args.Error(1)
}

func (m *MockValuationService) GetAssetAllocation(ctx context.Context, userID, quoteCurrency string) (*domain.Allocation, error) {
	args := m.Called(ctx, userID, quoteCurrency)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Allocation), args.Error(1)
}

func (m *MockValuationService) GetPlatformDistribution(ctx context.Context, userID, quoteCurrency string) (*domain.Allocation, error) {
	args := m.Called(ctx, userID, quoteCurrency)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Allocation), args.Error(1)
}

var _ portssvc.ValuationSvc = (*MockValuationService)(nil)

// --- Mock SnapshotService ---
type MockSnapshotService struct {
	mock.Mock
}

func (m *MockSnapshotService) snapResult(args mock.Arguments) (*domain.PortfolioSnapshot, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PortfolioSnapshot), args.Error(1)
}

func (m *MockSnapshotService) BuildSnapshot(ctx context.Context, userID string) (*domain.PortfolioSnapshot, error) {
	return m.snapResult(m.Called(ctx, userID))
}

func (m *MockSnapshotService) CreateOrReplaceTodaySnapshot(ctx context.Context, userID string) (*domain.PortfolioSnapshot, error) {
	return m.snapResult(m.Called(ctx, userID))
}

func (m *MockSnapshotService) GetSnapshot(ctx context.Context, userID, date string) (*domain.PortfolioSnapshot, error) {
	return m.snapResult(m.Called(ctx, userID, date))
}

func (m *MockSnapshotService) ListSnapshots(ctx context.Context, userID, from, to string) ([]domain.PortfolioSnapshot, error) {
	args := m.Called(ctx, userID, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.PortfolioSnapshot), args.Error(1)
}

var _ portssvc.SnapshotSvc = (*MockSnapshotService)(nil)

// --- Mock MetricsService ---
type MockMetricsService struct {
	mock.Mock
}

func (m *MockMetricsService) GetPortfolioMetrics(ctx context.Context, userID string, loc *time.Location) (*domain.PortfolioMetrics, error) {
	args := m.Called(ctx, userID, loc)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PortfolioMetrics), args.Error(1)
}

func (m *MockMetricsService) GetPerformance(ctx context.Context, userID string, r domain.PerformanceRange, interval domain.PerformanceInterval) ([]domain.PerformancePoint, error) {
	args := m.Called(ctx, userID, r, interval)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.PerformancePoint), args.Error(1)
}

var _ portssvc.MetricsSvc = (*MockMetricsService)(nil)
