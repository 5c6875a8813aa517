package services_test

import (
	"context"
	"errors"
	"testing"

	"github.com/SscSPs/portfolio_ledger/internal/apperrors"
	"github.com/SscSPs/portfolio_ledger/internal/core/domain"
	portssvc "github.com/SscSPs/portfolio_ledger/internal/core/ports/services"
	"github.com/SscSPs/portfolio_ledger/internal/core/services"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type ValuationServiceTestSuite struct {
	suite.Suite
	catalog  *fakeCatalog
	holdings *stubHoldings
	prices   *stubPrices
	fx       *stubFx
	store    *fakeCache
	cache    *services.ValuationCache
	svc      portssvc.ValuationSvc
	ctx      context.Context
}

func (s *ValuationServiceTestSuite) SetupTest() {
	s.catalog = testCatalog()
	s.holdings = &stubHoldings{holdings: []domain.Holding{
		{AccountID: exchange1, AssetID: "aapl", Quantity: dec("2")},
		{AccountID: exchange1, AssetID: "btc", Quantity: dec("0.5")},
		{AccountID: exchange1, AssetID: "usdt", Quantity: dec("100")},
		{AccountID: bankEUR, AssetID: "eur", Quantity: dec("500")},
	}}
	s.prices = &stubPrices{quotes: map[string]domain.Quote{
		"btc":  {Close: dec("40000"), Currency: "USD"},
		"usdt": {Close: dec("1"), Currency: "USD", Source: "peg"},
	}}
	s.fx = &stubFx{rates: map[string]decimal.Decimal{"EUR": dec("0.5")}}
	s.store = newFakeCache()
	s.cache = services.NewValuationCache(s.store, 0, 0, 0)
	s.ctx = context.Background()
	s.svc = services.NewValuationService(s.holdings, s.prices, s.fx, s.catalog, s.catalog, s.cache)
}

func TestValuationServiceSuite(t *testing.T) {
	suite.Run(t, new(ValuationServiceTestSuite))
}

func (s *ValuationServiceTestSuite) TestOwnSymbolIsWorthOne() {
	empty := services.NewValuationService(&stubHoldings{}, &stubPrices{}, &stubFx{}, s.catalog, s.catalog, nil)

	prices := empty.ResolvePrices(s.ctx, []domain.Asset{eurAsset, btcAsset, usdAsset}, "eur")

	s.Require().Contains(prices, "eur")
	assertDec(s.T(), "1", prices["eur"])
	s.NotContains(prices, "btc")
	s.NotContains(prices, "usd")
}

func (s *ValuationServiceTestSuite) TestResolvePricesThroughUsd() {
	s.prices.quotes["aapl"] = domain.Quote{Close: dec("150"), Currency: "EUR"}

	prices := s.svc.ResolvePrices(s.ctx, []domain.Asset{btcAsset, usdAsset, eurAsset, aaplAsset}, "EUR")

	assertDec(s.T(), "20000", prices["btc"])
	assertDec(s.T(), "0.5", prices["usd"])
	assertDec(s.T(), "1", prices["eur"])
	// Already quoted in EUR.
	assertDec(s.T(), "150", prices["aapl"])
}

func (s *ValuationServiceTestSuite) TestFiatPricedViaInverseRate() {
	prices := s.svc.ResolvePrices(s.ctx, []domain.Asset{eurAsset}, "USD")

	assertDec(s.T(), "2", prices["eur"])
}

func (s *ValuationServiceTestSuite) TestAccountHoldingsListsUnpricedLast() {
	result, err := s.svc.GetAccountHoldings(s.ctx, testUser, exchange1, "eur")
	s.Require().NoError(err)

	s.Equal("EUR", result.QuoteCurrency)
	s.Require().Len(result.Items, 3)
	s.Equal("btc", result.Items[0].Asset.AssetID)
	s.Equal("usdt", result.Items[1].Asset.AssetID)
	s.Equal("aapl", result.Items[2].Asset.AssetID)

	assertDec(s.T(), "10000", *result.Items[0].Value)
	assertDec(s.T(), "50", *result.Items[1].Value)
	s.False(result.Items[2].Priced)
	s.Nil(result.Items[2].Price)
	s.Nil(result.Items[2].Value)
	assertDec(s.T(), "10050", result.TotalValue)
	s.Equal([]string{"aapl"}, result.UnpricedAssetIDs)

	assertDec(s.T(), "99.5", result.Items[0].AllocationPercent)
	assertDec(s.T(), "0.5", result.Items[1].AllocationPercent)
	assertDec(s.T(), "0", result.Items[2].AllocationPercent)
}

func (s *ValuationServiceTestSuite) TestForeignAccountIsForbidden() {
	_, err := s.svc.GetAccountHoldings(s.ctx, testUser, foreignAcc, "USD")

	s.True(errors.Is(err, apperrors.ErrForbidden))
}

func (s *ValuationServiceTestSuite) TestInvalidQuoteCurrency() {
	_, err := s.svc.GetAssetAllocation(s.ctx, testUser, "XXQ")

	s.True(errors.Is(err, apperrors.ErrValidation))
}

func (s *ValuationServiceTestSuite) TestAllocationPercentagesSumToHundred() {
	s.prices.quotes["aapl"] = domain.Quote{Close: dec("170.37"), Currency: "USD"}

	result, err := s.svc.GetAssetAllocation(s.ctx, testUser, "USD")
	s.Require().NoError(err)

	s.Empty(result.UnpricedAssetIDs)
	total := decimal.Zero
	for _, sl := range result.Slices {
		total = total.Add(sl.AllocationPercent)
	}
	tolerance := dec("0.01").Mul(decimal.NewFromInt(int64(len(result.Slices))))
	s.True(total.Sub(decimal.NewFromInt(100)).Abs().LessThanOrEqual(tolerance), "sum was %s", total)

	s.Equal(string(domain.AssetCrypto), result.Slices[0].Key)
	assertDec(s.T(), "20000", result.Slices[0].Value)
}

func (s *ValuationServiceTestSuite) TestAllocationExcludesUnpriced() {
	result, err := s.svc.GetAssetAllocation(s.ctx, testUser, "USD")
	s.Require().NoError(err)

	s.Equal([]string{"aapl"}, result.UnpricedAssetIDs)
	// 20000 BTC + 100 USDT + 1000 USD worth of EUR.
	assertDec(s.T(), "21100", result.TotalValue)
	for _, sl := range result.Slices {
		s.NotEqual(string(domain.AssetStock), sl.Key)
	}
}

func (s *ValuationServiceTestSuite) TestPlatformDistribution() {
	result, err := s.svc.GetPlatformDistribution(s.ctx, testUser, "USD")
	s.Require().NoError(err)

	s.Require().Len(result.Slices, 2)
	s.Equal("p-exch", result.Slices[0].Key)
	assertDec(s.T(), "20100", result.Slices[0].Value)
	s.Equal("p-bank", result.Slices[1].Key)
	assertDec(s.T(), "1000", result.Slices[1].Value)
}

func (s *ValuationServiceTestSuite) TestCachedUntilInvalidated() {
	_, err := s.svc.GetAccountHoldings(s.ctx, testUser, exchange1, "USD")
	s.Require().NoError(err)
	_, err = s.svc.GetAssetAllocation(s.ctx, testUser, "USD")
	s.Require().NoError(err)
	calls := s.prices.calls

	_, err = s.svc.GetAccountHoldings(s.ctx, testUser, exchange1, "USD")
	s.Require().NoError(err)
	s.Equal(calls, s.prices.calls)
	s.True(s.store.has(services.HoldingsKey(testUser, exchange1, "USD")))

	s.cache.InvalidateAccounts(s.ctx, testUser, []string{exchange1})

	s.False(s.store.has(services.HoldingsKey(testUser, exchange1, "USD")))
	s.False(s.store.has(services.AllocationKey(testUser, "USD")))
	_, err = s.svc.GetAccountHoldings(s.ctx, testUser, exchange1, "USD")
	s.Require().NoError(err)
	s.Equal(calls+1, s.prices.calls)
}

func (s *ValuationServiceTestSuite) TestCurrentPriceIsCached() {
	price, err := s.svc.GetCurrentPrice(s.ctx, "btc", "USD")
	s.Require().NoError(err)
	assertDec(s.T(), "40000", price)

	s.prices.quotes["btc"] = domain.Quote{Close: dec("1"), Currency: "USD"}
	again, err := s.svc.GetCurrentPrice(s.ctx, "btc", "USD")
	s.Require().NoError(err)
	assertDec(s.T(), "40000", again)
}

func (s *ValuationServiceTestSuite) TestCurrentPriceUnavailable() {
	_, err := s.svc.GetCurrentPrice(s.ctx, "aapl", "USD")

	s.True(errors.Is(err, apperrors.ErrNotFound))
}

func (s *ValuationServiceTestSuite) TestAssetSymbolAsQuoteCurrency() {
	price, err := s.svc.GetCurrentPrice(s.ctx, "btc", "btc")
	s.Require().NoError(err)
	assertDec(s.T(), "1", price)

	peg, err := s.svc.GetCurrentPrice(s.ctx, "usdt", "USDT")
	s.Require().NoError(err)
	assertDec(s.T(), "1", peg)

	result, err := s.svc.GetAccountHoldings(s.ctx, testUser, exchange1, "BTC")
	s.Require().NoError(err)
	s.Equal("BTC", result.QuoteCurrency)
	s.Require().Len(result.Items, 3)
	s.Equal("btc", result.Items[0].Asset.AssetID)
	assertDec(s.T(), "1", *result.Items[0].Price)
	assertDec(s.T(), "0.5", *result.Items[0].Value)
	// 100 USDT at 1/40000 BTC each.
	s.Equal("usdt", result.Items[1].Asset.AssetID)
	assertDec(s.T(), "0.0025", *result.Items[1].Value)
	assertDec(s.T(), "0.5025", result.TotalValue)
	s.Equal([]string{"aapl"}, result.UnpricedAssetIDs)
}
