package services_test

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/SscSPs/portfolio_ledger/internal/core/domain"
	"github.com/SscSPs/portfolio_ledger/internal/core/ports/providers"
	portsrepo "github.com/SscSPs/portfolio_ledger/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/portfolio_ledger/internal/core/ports/services"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockPriceProvider is a mock type for the PriceProvider interface
type MockPriceProvider struct {
	mock.Mock
	kind   domain.ProviderKind
	source string
}

var _ providers.PriceProvider = (*MockPriceProvider)(nil)

func newMockProvider(kind domain.ProviderKind, source string) *MockPriceProvider {
	return &MockPriceProvider{kind: kind, source: source}
}

func (m *MockPriceProvider) Kind() domain.ProviderKind { return m.kind }
func (m *MockPriceProvider) Source() string            { return m.source }

func (m *MockPriceProvider) GetQuote(ctx context.Context, symbols []string) map[string]domain.Quote {
	sorted := append([]string(nil), symbols...)
	sort.Strings(sorted)
	args := m.Called(ctx, sorted)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).(map[string]domain.Quote)
}

func (m *MockPriceProvider) GetHistorical(ctx context.Context, symbol string, start, end time.Time) []domain.Quote {
	args := m.Called(ctx, symbol, start, end)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]domain.Quote)
}

// MockFxSource is a mock type for the FxRateSource interface
type MockFxSource struct {
	mock.Mock
	name string
}

var _ providers.FxRateSource = (*MockFxSource)(nil)

func (m *MockFxSource) Name() string { return m.name }

func (m *MockFxSource) FetchRate(ctx context.Context, base, quote string) (*domain.FxRate, error) {
	args := m.Called(ctx, base, quote)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.FxRate), args.Error(1)
}

// --- in-memory price history ---

type fakePriceHistory struct {
	mu      sync.Mutex
	points  []domain.PricePoint
	upserts int
}

var _ portsrepo.PriceHistoryRepository = (*fakePriceHistory)(nil)

func (f *fakePriceHistory) FindLatestPricesSince(_ context.Context, assetIDs []string, quote string, since time.Time) (map[string]domain.PricePoint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	wanted := map[string]bool{}
	for _, id := range assetIDs {
		wanted[id] = true
	}
	out := map[string]domain.PricePoint{}
	for _, p := range f.points {
		if !wanted[p.AssetID] || p.QuoteCurrency != quote || !p.Timestamp.After(since) {
			continue
		}
		if cur, ok := out[p.AssetID]; !ok || p.Timestamp.After(cur.Timestamp) {
			out[p.AssetID] = p
		}
	}
	return out, nil
}

func (f *fakePriceHistory) FindPriceAt(_ context.Context, assetID, quote string, at time.Time) (*domain.PricePoint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var best *domain.PricePoint
	for i := range f.points {
		p := f.points[i]
		if p.AssetID != assetID || p.QuoteCurrency != quote || p.Timestamp.After(at) {
			continue
		}
		if best == nil || p.Timestamp.After(best.Timestamp) {
			best = &p
		}
	}
	return best, nil
}

func (f *fakePriceHistory) UpsertPrices(_ context.Context, points []domain.PricePoint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserts++
	f.points = append(f.points, points...)
	return nil
}

func (f *fakePriceHistory) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.points)
}

// --- stub services ---

// stubPrices answers GetLatestPrices from a fixed table keyed by asset id.
type stubPrices struct {
	quotes     map[string]domain.Quote
	historical map[string]decimal.Decimal
	calls      int
}

var _ portssvc.PriceSvc = (*stubPrices)(nil)

func (s *stubPrices) GetLatestPrices(_ context.Context, assets []domain.Asset) map[string]domain.Quote {
	s.calls++
	out := map[string]domain.Quote{}
	for _, a := range assets {
		if q, ok := s.quotes[a.AssetID]; ok {
			out[a.AssetID] = q
		}
	}
	return out
}

func (s *stubPrices) GetHistoricalPrice(_ context.Context, asset domain.Asset, _ time.Time) (decimal.Decimal, bool) {
	p, ok := s.historical[asset.AssetID]
	return p, ok
}

func (s *stubPrices) SyncPrices(_ context.Context, assets []domain.Asset) int { return len(assets) }

// stubFx answers UsdTo from a fixed table; missing currencies are unavailable.
type stubFx struct {
	rates map[string]decimal.Decimal
}

var _ portssvc.FxRateSvc = (*stubFx)(nil)

func (s *stubFx) UsdTo(_ context.Context, quote string) (decimal.Decimal, bool) {
	if quote == "USD" {
		return decimal.NewFromInt(1), true
	}
	r, ok := s.rates[quote]
	return r, ok
}

func (s *stubFx) UsdToAt(ctx context.Context, quote string, _ time.Time) (decimal.Decimal, bool) {
	return s.UsdTo(ctx, quote)
}

func (s *stubFx) BlendedRate(_ context.Context, base, quote string) (*domain.FxRate, error) {
	r := s.rates[quote]
	return &domain.FxRate{Base: base, Quote: quote, BuyRate: r, SellRate: r}, nil
}

// stubHoldings serves fixed holdings, filtered by account.
type stubHoldings struct {
	holdings []domain.Holding
}

var _ portssvc.HoldingsDeriverSvc = (*stubHoldings)(nil)

func (s *stubHoldings) DeriveHoldings(_ context.Context, _ string, accountID string) ([]domain.Holding, error) {
	var out []domain.Holding
	for _, h := range s.holdings {
		if accountID == "" || h.AccountID == accountID {
			out = append(out, h)
		}
	}
	return out, nil
}

func assertDec(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...any) bool {
	t.Helper()
	return assert.Truef(t, dec(want).Equal(got), "expected %s, got %s %v", want, got.String(), msgAndArgs)
}
