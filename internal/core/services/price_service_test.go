package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/SscSPs/portfolio_ledger/internal/core/domain"
	portssvc "github.com/SscSPs/portfolio_ledger/internal/core/ports/services"
	"github.com/SscSPs/portfolio_ledger/internal/core/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

var (
	btcAsset  = domain.Asset{AssetID: "btc", Symbol: "BTC", AssetType: domain.AssetCrypto}
	usdtAsset = domain.Asset{AssetID: "usdt", Symbol: "USDT", AssetType: domain.AssetStablecoin}
	aaplAsset = domain.Asset{AssetID: "aapl", Symbol: "AAPL", AssetType: domain.AssetStock}
	usdAsset  = domain.Asset{AssetID: "usd", Symbol: "USD", AssetType: domain.AssetFiat}
	eurAsset  = domain.Asset{AssetID: "eur", Symbol: "EUR", AssetType: domain.AssetFiat}
)

type PriceServiceTestSuite struct {
	suite.Suite
	stock   *MockPriceProvider
	crypto  *MockPriceProvider
	history *fakePriceHistory
	svc     portssvc.PriceSvc
	ctx     context.Context
}

func (s *PriceServiceTestSuite) SetupTest() {
	s.stock = newMockProvider(domain.ProviderStockFx, "twelvedata")
	s.crypto = newMockProvider(domain.ProviderCrypto, "binance")
	s.history = &fakePriceHistory{}
	s.ctx = context.Background()
	s.svc = services.NewPriceService(s.stock, s.crypto, s.history,
		services.WithPriceClock(func() time.Time { return fixedNow }),
	)
}

func TestPriceServiceSuite(t *testing.T) {
	suite.Run(t, new(PriceServiceTestSuite))
}

func (s *PriceServiceTestSuite) TestFreshHistoryAvoidsProvider() {
	s.history.points = []domain.PricePoint{{
		AssetID: "btc", QuoteCurrency: "USD", Price: dec("41000"), Source: "binance", Timestamp: fixedNow.Add(-10 * time.Minute),
	}}

	quotes := s.svc.GetLatestPrices(s.ctx, []domain.Asset{btcAsset})

	s.Require().Contains(quotes, "btc")
	assertDec(s.T(), "41000", quotes["btc"].Close)
	s.crypto.AssertNotCalled(s.T(), "GetQuote", mock.Anything, mock.Anything)
}

func (s *PriceServiceTestSuite) TestStaleHistoryIsRefetchedAndPersisted() {
	s.history.points = []domain.PricePoint{{
		AssetID: "btc", QuoteCurrency: "USD", Price: dec("30000"), Source: "binance", Timestamp: fixedNow.Add(-2 * time.Hour),
	}}
	s.crypto.On("GetQuote", mock.Anything, []string{"BTCUSDT"}).Return(map[string]domain.Quote{
		"BTCUSDT": {Symbol: "BTCUSDT", Close: dec("42000"), Currency: "USDT", AsOf: fixedNow},
	}).Once()

	quotes := s.svc.GetLatestPrices(s.ctx, []domain.Asset{btcAsset})

	s.Require().Contains(quotes, "btc")
	assertDec(s.T(), "42000", quotes["btc"].Close)
	s.Equal("USD", quotes["btc"].Currency)
	s.Equal("binance", quotes["btc"].Source)
	s.Equal(2, s.history.count())
	s.crypto.AssertExpectations(s.T())
}

func (s *PriceServiceTestSuite) TestStablecoinPegAndFiatSkip() {
	quotes := s.svc.GetLatestPrices(s.ctx, []domain.Asset{usdAsset, usdtAsset})

	s.NotContains(quotes, "usd")
	s.Require().Contains(quotes, "usdt")
	assertDec(s.T(), "1", quotes["usdt"].Close)
	s.Equal("peg", quotes["usdt"].Source)
	s.crypto.AssertNotCalled(s.T(), "GetQuote", mock.Anything, mock.Anything)
	s.stock.AssertNotCalled(s.T(), "GetQuote", mock.Anything, mock.Anything)
}

func (s *PriceServiceTestSuite) TestFailingProviderOnlyDropsItsAssets() {
	s.stock.On("GetQuote", mock.Anything, []string{"AAPL"}).Return(nil)
	s.crypto.On("GetQuote", mock.Anything, []string{"BTCUSDT"}).Return(map[string]domain.Quote{
		"BTCUSDT": {Symbol: "BTCUSDT", Close: dec("40000"), Currency: "USDT"},
	})

	quotes := s.svc.GetLatestPrices(s.ctx, []domain.Asset{aaplAsset, btcAsset})

	s.Contains(quotes, "btc")
	s.NotContains(quotes, "aapl")
}

func (s *PriceServiceTestSuite) TestNonPositiveQuoteIsDropped() {
	s.stock.On("GetQuote", mock.Anything, []string{"AAPL"}).Return(map[string]domain.Quote{
		"AAPL": {Symbol: "AAPL", Close: dec("0"), Currency: "USD"},
	})

	quotes := s.svc.GetLatestPrices(s.ctx, []domain.Asset{aaplAsset})

	s.Empty(quotes)
	s.Equal(0, s.history.count())
}

func (s *PriceServiceTestSuite) TestHistoricalPriceFromHistory() {
	day := time.Date(2024, 2, 1, 15, 0, 0, 0, time.UTC)
	s.history.points = []domain.PricePoint{{
		AssetID: "aapl", QuoteCurrency: "USD", Price: dec("180"), Source: "twelvedata", Timestamp: day.Add(-2 * time.Hour),
	}}

	price, ok := s.svc.GetHistoricalPrice(s.ctx, aaplAsset, day)

	s.True(ok)
	assertDec(s.T(), "180", price)
	s.stock.AssertNotCalled(s.T(), "GetHistorical", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (s *PriceServiceTestSuite) TestHistoricalPriceFallsBackToProvider() {
	day := time.Date(2024, 2, 1, 15, 0, 0, 0, time.UTC)
	s.stock.On("GetHistorical", mock.Anything, "AAPL", mock.Anything, mock.Anything).Return([]domain.Quote{
		{Symbol: "AAPL", Close: dec("181.5"), AsOf: day},
	}).Once()

	price, ok := s.svc.GetHistoricalPrice(s.ctx, aaplAsset, day)

	s.True(ok)
	assertDec(s.T(), "181.5", price)
	s.Equal(1, s.history.count())
	s.stock.AssertExpectations(s.T())
}

func (s *PriceServiceTestSuite) TestSyncPricesBypassesFreshness() {
	s.history.points = []domain.PricePoint{{
		AssetID: "btc", QuoteCurrency: "USD", Price: dec("41000"), Timestamp: fixedNow.Add(-time.Minute),
	}}
	s.crypto.On("GetQuote", mock.Anything, []string{"BTCUSDT"}).Return(map[string]domain.Quote{
		"BTCUSDT": {Symbol: "BTCUSDT", Close: dec("41500"), Currency: "USDT"},
	}).Once()

	n := s.svc.SyncPrices(s.ctx, []domain.Asset{btcAsset, usdAsset, usdtAsset})

	s.Equal(1, n)
	s.Equal(2, s.history.count())
	s.crypto.AssertExpectations(s.T())
}

func TestMarketSymbol(t *testing.T) {
	assert.Equal(t, "BTCUSDT", services.MarketSymbol(btcAsset))
	assert.Equal(t, "AAPL", services.MarketSymbol(aaplAsset))
	assert.Equal(t, "ETHUSDT", services.MarketSymbol(domain.Asset{Symbol: "eth", AssetType: domain.AssetCrypto}))
}
