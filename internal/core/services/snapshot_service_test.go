package services_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/SscSPs/portfolio_ledger/internal/apperrors"
	"github.com/SscSPs/portfolio_ledger/internal/core/domain"
	portssvc "github.com/SscSPs/portfolio_ledger/internal/core/ports/services"
	"github.com/SscSPs/portfolio_ledger/internal/core/services"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type SnapshotServiceTestSuite struct {
	suite.Suite
	catalog   *fakeCatalog
	holdings  *stubHoldings
	prices    *stubPrices
	fx        *stubFx
	snapshots *fakeSnapshots
	svc       portssvc.SnapshotSvc
	ctx       context.Context
}

func (s *SnapshotServiceTestSuite) SetupTest() {
	s.catalog = testCatalog()
	s.holdings = &stubHoldings{holdings: []domain.Holding{
		{AccountID: bankEUR, AssetID: "eur", Quantity: dec("1000")},
		{AccountID: bankUSD, AssetID: "usd", Quantity: dec("200")},
		{AccountID: exchange1, AssetID: "btc", Quantity: dec("1")},
	}}
	s.prices = &stubPrices{quotes: map[string]domain.Quote{
		"btc": {Close: dec("40000"), Currency: "USD"},
	}}
	s.fx = &stubFx{rates: map[string]decimal.Decimal{"EUR": dec("0.5")}}
	s.snapshots = newFakeSnapshots()
	s.ctx = context.Background()
	s.svc = services.NewSnapshotService(s.holdings, s.prices, s.fx, s.catalog, s.catalog, s.snapshots,
		services.WithSnapshotClock(func() time.Time { return fixedNow }),
	)
}

func TestSnapshotServiceSuite(t *testing.T) {
	suite.Run(t, new(SnapshotServiceTestSuite))
}

func (s *SnapshotServiceTestSuite) item(snap *domain.PortfolioSnapshot, assetID string) domain.SnapshotItem {
	for _, it := range snap.Items {
		if it.AssetID == assetID {
			return it
		}
	}
	s.FailNow("missing snapshot item", assetID)
	return domain.SnapshotItem{}
}

func (s *SnapshotServiceTestSuite) TestBuildValuesInUsdAndBase() {
	snap, err := s.svc.BuildSnapshot(s.ctx, testUser)
	s.Require().NoError(err)

	s.Equal("2024-03-10", snap.SnapshotDate)
	s.Equal("EUR", snap.BaseCurrency)
	assertDec(s.T(), "0.5", snap.FxUsdToBase)
	s.Len(snap.Items, 3)

	eur := s.item(snap, "eur")
	assertDec(s.T(), "1", eur.PriceBase)
	assertDec(s.T(), "2", eur.PriceUsd)
	assertDec(s.T(), "2000", eur.ValueUsd)

	usd := s.item(snap, "usd")
	assertDec(s.T(), "1", usd.PriceUsd)
	assertDec(s.T(), "100", usd.ValueBase)

	btc := s.item(snap, "btc")
	assertDec(s.T(), "20000", btc.PriceBase)

	assertDec(s.T(), "42200", snap.TotalValueUsd)
	assertDec(s.T(), "21100", snap.TotalValueBase)
	s.Equal(0, s.snapshots.count())
}

func (s *SnapshotServiceTestSuite) TestQuoteInBaseCurrencyIsNotConvertedTwice() {
	s.holdings.holdings = []domain.Holding{{AccountID: brokerAcct, AssetID: "aapl", Quantity: dec("2")}}
	s.prices.quotes["aapl"] = domain.Quote{Close: dec("100"), Currency: "EUR"}

	snap, err := s.svc.BuildSnapshot(s.ctx, testUser)
	s.Require().NoError(err)

	aapl := s.item(snap, "aapl")
	assertDec(s.T(), "100", aapl.PriceBase)
	assertDec(s.T(), "200", aapl.PriceUsd)
	assertDec(s.T(), "400", snap.TotalValueUsd)
	assertDec(s.T(), "200", snap.TotalValueBase)
}

func (s *SnapshotServiceTestSuite) TestQuoteInThirdCurrencyIsConvertedThroughUsd() {
	s.holdings.holdings = []domain.Holding{{AccountID: brokerAcct, AssetID: "aapl", Quantity: dec("2")}}
	s.prices.quotes["aapl"] = domain.Quote{Close: dec("80"), Currency: "GBP"}
	s.fx.rates["GBP"] = dec("0.8")

	snap, err := s.svc.BuildSnapshot(s.ctx, testUser)
	s.Require().NoError(err)

	aapl := s.item(snap, "aapl")
	assertDec(s.T(), "100", aapl.PriceUsd)
	assertDec(s.T(), "50", aapl.PriceBase)
	assertDec(s.T(), "200", snap.TotalValueUsd)
	assertDec(s.T(), "100", snap.TotalValueBase)

	valuation := services.NewValuationService(s.holdings, s.prices, s.fx, s.catalog, s.catalog, nil)
	prices := valuation.ResolvePrices(s.ctx, []domain.Asset{aaplAsset}, "USD")
	assertDec(s.T(), aapl.PriceUsd.String(), prices["aapl"])
}

func (s *SnapshotServiceTestSuite) TestThirdCurrencyWithoutRateIsUnpriced() {
	s.holdings.holdings = []domain.Holding{{AccountID: brokerAcct, AssetID: "aapl", Quantity: dec("2")}}
	s.prices.quotes["aapl"] = domain.Quote{Close: dec("80"), Currency: "GBP"}

	snap, err := s.svc.BuildSnapshot(s.ctx, testUser)
	s.Require().NoError(err)

	s.True(s.item(snap, "aapl").ValueUsd.IsZero())
	s.True(snap.TotalValueUsd.IsZero())
}

func (s *SnapshotServiceTestSuite) TestUnpricedHoldingContributesZero() {
	delete(s.prices.quotes, "btc")

	snap, err := s.svc.BuildSnapshot(s.ctx, testUser)
	s.Require().NoError(err)

	s.Len(snap.Items, 3)
	btc := s.item(snap, "btc")
	s.True(btc.ValueUsd.IsZero())
	assertDec(s.T(), "2200", snap.TotalValueUsd)
}

func (s *SnapshotServiceTestSuite) TestMissingBaseRateFails() {
	s.fx.rates = map[string]decimal.Decimal{}

	_, err := s.svc.BuildSnapshot(s.ctx, testUser)

	var appErr *apperrors.AppError
	s.Require().True(errors.As(err, &appErr))
	s.Equal(http.StatusServiceUnavailable, appErr.Code)
}

func (s *SnapshotServiceTestSuite) TestCreateOrReplaceIsIdempotent() {
	first, err := s.svc.CreateOrReplaceTodaySnapshot(s.ctx, testUser)
	s.Require().NoError(err)
	second, err := s.svc.CreateOrReplaceTodaySnapshot(s.ctx, testUser)
	s.Require().NoError(err)

	s.Equal(1, s.snapshots.count())
	s.Equal(first.SnapshotID, second.SnapshotID)
	s.True(first.TotalValueUsd.Equal(second.TotalValueUsd))
	s.Len(second.Items, len(first.Items))

	stored, err := s.svc.GetSnapshot(s.ctx, testUser, "2024-03-10")
	s.Require().NoError(err)
	s.Len(stored.Items, 3)
	for _, it := range stored.Items {
		s.Equal(first.SnapshotID, it.SnapshotID)
	}
}

func (s *SnapshotServiceTestSuite) TestReplaceDropsLiquidatedItems() {
	_, err := s.svc.CreateOrReplaceTodaySnapshot(s.ctx, testUser)
	s.Require().NoError(err)

	s.holdings.holdings = s.holdings.holdings[:1]
	_, err = s.svc.CreateOrReplaceTodaySnapshot(s.ctx, testUser)
	s.Require().NoError(err)

	stored, err := s.svc.GetSnapshot(s.ctx, testUser, "2024-03-10")
	s.Require().NoError(err)
	s.Require().Len(stored.Items, 1)
	s.Equal("eur", stored.Items[0].AssetID)
}

func (s *SnapshotServiceTestSuite) TestDateValidation() {
	_, err := s.svc.GetSnapshot(s.ctx, testUser, "10/03/2024")
	s.True(errors.Is(err, apperrors.ErrValidation))

	_, err = s.svc.ListSnapshots(s.ctx, testUser, "2024-03-10", "2024-03-01")
	s.True(errors.Is(err, apperrors.ErrValidation))
}
