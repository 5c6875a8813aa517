package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/SscSPs/portfolio_ledger/internal/apperrors"
	"github.com/SscSPs/portfolio_ledger/internal/core/domain"
	"github.com/SscSPs/portfolio_ledger/internal/core/ports/providers"
	"github.com/SscSPs/portfolio_ledger/internal/core/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func fxRate(base, quote, buy, sell string, at time.Time, source string) *domain.FxRate {
	return &domain.FxRate{Base: base, Quote: quote, BuyRate: dec(buy), SellRate: dec(sell), RateAt: at, Source: source}
}

func TestBlendRates_AveragesAgreeingSources(t *testing.T) {
	t1 := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Hour)

	blended, err := services.BlendRates([]*domain.FxRate{
		nil,
		fxRate("usd", "eur", "0.90", "0.92", t1, "a"),
		fxRate("USD", "EUR", "0", "0.91", t2, "broken"),
		fxRate("USD", "GBP", "0.78", "0.79", t2, "other-pair"),
		fxRate("USD", "USD", "1", "1", t2, "same"),
		fxRate("USD", "EUR", "0.94", "0.96", t2, "b"),
	})

	require.NoError(t, err)
	assert.Equal(t, "USD", blended.Base)
	assert.Equal(t, "EUR", blended.Quote)
	assertDec(t, "0.92", blended.BuyRate)
	assertDec(t, "0.94", blended.SellRate)
	assert.Equal(t, t2, blended.RateAt)
	assert.Equal(t, "a,b", blended.Source)
}

func TestBlendRates_NoValidRate(t *testing.T) {
	_, err := services.BlendRates([]*domain.FxRate{
		fxRate("USD", "EUR", "-1", "0.9", time.Time{}, "neg"),
		fxRate("", "EUR", "0.9", "0.9", time.Time{}, "no-base"),
	})

	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

func TestBlendedRate_FailingSourceDoesNotFailOthers(t *testing.T) {
	at := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)
	good := &MockFxSource{name: "good"}
	good.On("FetchRate", mock.Anything, "USD", "INR").Return(fxRate("USD", "INR", "83", "84", at, "good"), nil)
	bad := &MockFxSource{name: "bad"}
	bad.On("FetchRate", mock.Anything, "USD", "INR").Return(nil, errors.New("timeout"))

	svc := services.NewFxRateService(nil, []providers.FxRateSource{bad, good}, nil, time.Minute)
	rate, err := svc.BlendedRate(context.Background(), "USD", "INR")

	require.NoError(t, err)
	assertDec(t, "83", rate.BuyRate)
	assertDec(t, "84", rate.SellRate)
	good.AssertExpectations(t)
	bad.AssertExpectations(t)
}

func TestBlendedRate_WrongPairIsRejected(t *testing.T) {
	src := &MockFxSource{name: "confused"}
	src.On("FetchRate", mock.Anything, "USD", "INR").Return(fxRate("USD", "EUR", "0.9", "0.9", time.Time{}, "confused"), nil)

	svc := services.NewFxRateService(nil, []providers.FxRateSource{src}, nil, time.Minute)
	_, err := svc.BlendedRate(context.Background(), "USD", "INR")

	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

func TestUsdTo_ProviderQuoteIsCached(t *testing.T) {
	stock := newMockProvider(domain.ProviderStockFx, "twelvedata")
	stock.On("GetQuote", mock.Anything, []string{"USD/EUR"}).Return(map[string]domain.Quote{
		"USD/EUR": {Symbol: "USD/EUR", Close: dec("0.92")},
	}).Once()
	cache := newFakeCache()
	svc := services.NewFxRateService(stock, nil, cache, time.Minute)
	ctx := context.Background()

	first, ok := svc.UsdTo(ctx, "eur")
	require.True(t, ok)
	second, ok := svc.UsdTo(ctx, "EUR")
	require.True(t, ok)

	assertDec(t, "0.92", first)
	assertDec(t, "0.92", second)
	assert.True(t, cache.has("fx:usd:EUR"))
	stock.AssertNumberOfCalls(t, "GetQuote", 1)
}

func TestUsdTo_FallsBackToBlendedSources(t *testing.T) {
	stock := newMockProvider(domain.ProviderStockFx, "twelvedata")
	stock.On("GetQuote", mock.Anything, []string{"USD/VND"}).Return(nil)
	src := &MockFxSource{name: "bank"}
	src.On("FetchRate", mock.Anything, "USD", "VND").Return(fxRate("USD", "VND", "24000", "25000", time.Time{}, "bank"), nil)

	svc := services.NewFxRateService(stock, []providers.FxRateSource{src}, newFakeCache(), time.Minute)
	rate, ok := svc.UsdTo(context.Background(), "VND")

	require.True(t, ok)
	assertDec(t, "24500", rate)
}

func TestUsdTo_UnavailableRate(t *testing.T) {
	svc := services.NewFxRateService(nil, nil, nil, time.Minute)

	_, ok := svc.UsdTo(context.Background(), "JPY")
	assert.False(t, ok)

	one, ok := svc.UsdTo(context.Background(), "usd")
	assert.True(t, ok)
	assertDec(t, "1", one)
}

func TestUsdToAt_UsesHistoricalClose(t *testing.T) {
	day := time.Date(2024, 1, 15, 18, 0, 0, 0, time.UTC)
	stock := newMockProvider(domain.ProviderStockFx, "twelvedata")
	stock.On("GetHistorical", mock.Anything, "USD/EUR", time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), mock.Anything).Return([]domain.Quote{
		{Close: dec("0.91"), AsOf: day},
	})

	svc := services.NewFxRateService(stock, nil, nil, time.Minute)
	rate, ok := svc.UsdToAt(context.Background(), "EUR", day)

	require.True(t, ok)
	assertDec(t, "0.91", rate)
}

func TestBlendedRate_MisconfiguredSourceDoesNotSinkOthers(t *testing.T) {
	at := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)
	confused := &MockFxSource{name: "confused"}
	confused.On("FetchRate", mock.Anything, "USD", "INR").Return(fxRate("USD", "EUR", "0.9", "0.9", at, "confused"), nil)
	first := &MockFxSource{name: "first"}
	first.On("FetchRate", mock.Anything, "USD", "INR").Return(fxRate("USD", "INR", "83", "84", at, "first"), nil)
	second := &MockFxSource{name: "second"}
	second.On("FetchRate", mock.Anything, "USD", "INR").Return(fxRate("usd", "inr", "85", "86", at, "second"), nil)

	svc := services.NewFxRateService(nil, []providers.FxRateSource{confused, first, second}, nil, time.Minute)
	rate, err := svc.BlendedRate(context.Background(), "USD", "INR")

	require.NoError(t, err)
	assert.Equal(t, "USD", rate.Base)
	assert.Equal(t, "INR", rate.Quote)
	assertDec(t, "84", rate.BuyRate)
	assertDec(t, "85", rate.SellRate)
	assert.Equal(t, "first,second", rate.Source)
}
