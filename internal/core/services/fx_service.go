package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/SscSPs/portfolio_ledger/internal/apperrors"
	"github.com/SscSPs/portfolio_ledger/internal/core/domain"
	portscache "github.com/SscSPs/portfolio_ledger/internal/core/ports/cache"
	"github.com/SscSPs/portfolio_ledger/internal/core/ports/providers"
	portssvc "github.com/SscSPs/portfolio_ledger/internal/core/ports/services"
	"github.com/SscSPs/portfolio_ledger/internal/utils/numeric"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

const fxCachePrefix = "fx:usd:"

type cachedRate struct {
	Rate decimal.Decimal `json:"rate"`
}

type fxRateService struct {
	BaseService
	stockFx providers.PriceProvider
	sources []providers.FxRateSource
	store   portscache.Store
	ttl     time.Duration
}

// NewFxRateService creates the FX service. The stock/FX provider answers first;
// the independent sources are blended when it has no rate.
func NewFxRateService(stockFx providers.PriceProvider, sources []providers.FxRateSource, store portscache.Store, ttl time.Duration) portssvc.FxRateSvc {
	if ttl <= 0 {
		ttl = DefaultPriceFreshness
	}
	return &fxRateService{stockFx: stockFx, sources: sources, store: store, ttl: ttl}
}

var _ portssvc.FxRateSvc = (*fxRateService)(nil)

// FxPair returns the provider symbol for the USD->quote pair.
func FxPair(quote string) string {
	return USD + "/" + strings.ToUpper(quote)
}

func (s *fxRateService) UsdTo(ctx context.Context, quoteCurrency string) (decimal.Decimal, bool) {
	quote := strings.ToUpper(quoteCurrency)
	if quote == USD {
		return decimal.NewFromInt(1), true
	}
	key := fxCachePrefix + quote
	if s.store != nil {
		if raw, ok := s.store.Get(ctx, key); ok {
			var c cachedRate
			if err := json.Unmarshal(raw, &c); err == nil && c.Rate.IsPositive() {
				return c.Rate, true
			}
		}
	}

	rate, ok := s.fromProvider(ctx, quote)
	if !ok {
		blended, err := s.BlendedRate(ctx, USD, quote)
		if err != nil {
			s.GetLogger(ctx).Warn("No FX rate available", slog.String("quote", quote), slog.String("error", err.Error()))
			return decimal.Zero, false
		}
		rate = mid(*blended)
	}

	if s.store != nil {
		if raw, err := json.Marshal(cachedRate{Rate: rate}); err == nil {
			s.store.SetEx(ctx, key, raw, s.ttl)
		}
	}
	return rate, true
}

func (s *fxRateService) UsdToAt(ctx context.Context, quoteCurrency string, at time.Time) (decimal.Decimal, bool) {
	quote := strings.ToUpper(quoteCurrency)
	if quote == USD {
		return decimal.NewFromInt(1), true
	}
	if s.stockFx != nil {
		dayStart := time.Date(at.Year(), at.Month(), at.Day(), 0, 0, 0, 0, time.UTC)
		series := s.stockFx.GetHistorical(ctx, FxPair(quote), dayStart, dayStart.Add(24*time.Hour-time.Nanosecond))
		if len(series) > 0 && series[len(series)-1].Close.IsPositive() {
			return series[len(series)-1].Close, true
		}
	}
	return s.UsdTo(ctx, quote)
}

func (s *fxRateService) fromProvider(ctx context.Context, quote string) (decimal.Decimal, bool) {
	if s.stockFx == nil {
		return decimal.Zero, false
	}
	pair := FxPair(quote)
	quotes := s.stockFx.GetQuote(ctx, []string{pair})
	q, ok := quotes[pair]
	if !ok || !q.Close.IsPositive() {
		return decimal.Zero, false
	}
	return q.Close, true
}

// BlendedRate queries every source concurrently; one source failing never
// fails the others. Answers for a pair other than base/quote are dropped before
// blending, so a misconfigured source cannot discard the correct ones. Buy and
// sell rates are averaged across the rest and RateAt is the newest among them.
func (s *fxRateService) BlendedRate(ctx context.Context, base, quote string) (*domain.FxRate, error) {
	if len(s.sources) == 0 {
		return nil, fmt.Errorf("%w: no FX sources configured", apperrors.ErrNotFound)
	}
	logger := s.GetLogger(ctx)

	results := make([]*domain.FxRate, len(s.sources))
	var g errgroup.Group
	for i, src := range s.sources {
		g.Go(func() error {
			rate, err := src.FetchRate(ctx, base, quote)
			if err != nil {
				logger.Warn("FX source failed", slog.String("source", src.Name()), slog.String("error", err.Error()))
				return nil
			}
			results[i] = rate
			return nil
		})
	}
	_ = g.Wait()

	matching := make([]*domain.FxRate, 0, len(results))
	for i, r := range results {
		if r == nil {
			continue
		}
		if !strings.EqualFold(r.Base, base) || !strings.EqualFold(r.Quote, quote) {
			logger.Warn("FX source answered another pair",
				slog.String("source", s.sources[i].Name()),
				slog.String("pair", r.Base+"/"+r.Quote),
				slog.String("requested", base+"/"+quote))
			continue
		}
		matching = append(matching, r)
	}

	blended, err := BlendRates(matching)
	if err != nil {
		return nil, fmt.Errorf("%w for %s/%s", err, base, quote)
	}
	return blended, nil
}

// BlendRates drops structurally invalid rates, keeps the ones agreeing on the
// currency pair of the first valid rate, and averages their buy and sell rates.
func BlendRates(rates []*domain.FxRate) (*domain.FxRate, error) {
	var valid []domain.FxRate
	for _, r := range rates {
		if r == nil || !r.BuyRate.IsPositive() || !r.SellRate.IsPositive() {
			continue
		}
		if r.Base == "" || r.Quote == "" || strings.EqualFold(r.Base, r.Quote) {
			continue
		}
		n := *r
		n.Base, n.Quote = strings.ToUpper(n.Base), strings.ToUpper(n.Quote)
		if len(valid) > 0 && !valid[0].SamePair(n) {
			continue
		}
		valid = append(valid, n)
	}
	if len(valid) == 0 {
		return nil, fmt.Errorf("%w: no valid FX rate", apperrors.ErrNotFound)
	}

	buys := make([]decimal.Decimal, len(valid))
	sells := make([]decimal.Decimal, len(valid))
	latest := valid[0].RateAt
	sources := make([]string, len(valid))
	for i, r := range valid {
		buys[i] = r.BuyRate
		sells[i] = r.SellRate
		sources[i] = r.Source
		if r.RateAt.After(latest) {
			latest = r.RateAt
		}
	}
	buy, _ := numeric.Mean(buys)
	sell, _ := numeric.Mean(sells)
	return &domain.FxRate{
		Base:     valid[0].Base,
		Quote:    valid[0].Quote,
		BuyRate:  buy,
		SellRate: sell,
		RateAt:   latest,
		Source:   strings.Join(sources, ","),
	}, nil
}

func mid(r domain.FxRate) decimal.Decimal {
	return r.BuyRate.Add(r.SellRate).Div(decimal.NewFromInt(2))
}
