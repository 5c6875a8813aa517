package services

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/SscSPs/portfolio_ledger/internal/core/domain"
	"github.com/SscSPs/portfolio_ledger/internal/core/ports/providers"
	portsrepo "github.com/SscSPs/portfolio_ledger/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/portfolio_ledger/internal/core/ports/services"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultPriceFreshness is how long a persisted quote is reused before the provider is asked again.
	DefaultPriceFreshness = 30 * time.Minute

	cryptoQuoteSuffix = "USDT"
	pegSource         = "peg"
)

type priceService struct {
	BaseService
	stockFx   providers.PriceProvider
	crypto    providers.PriceProvider
	history   portsrepo.PriceHistoryRepository
	freshness time.Duration
	now       func() time.Time
}

// PriceOption is a functional option for configuring the price service
type PriceOption func(*priceService)

// WithPriceFreshness sets the window in which persisted quotes are reused.
func WithPriceFreshness(d time.Duration) PriceOption {
	return func(s *priceService) {
		if d > 0 {
			s.freshness = d
		}
	}
}

// WithPriceClock overrides the clock used for the freshness cutoff.
func WithPriceClock(now func() time.Time) PriceOption {
	return func(s *priceService) {
		s.now = now
	}
}

// NewPriceService creates the read-through price service. Either provider may be nil.
func NewPriceService(stockFx, crypto providers.PriceProvider, history portsrepo.PriceHistoryRepository, options ...PriceOption) portssvc.PriceSvc {
	svc := &priceService{
		stockFx:   stockFx,
		crypto:    crypto,
		history:   history,
		freshness: DefaultPriceFreshness,
		now:       time.Now,
	}
	for _, option := range options {
		option(svc)
	}
	return svc
}

var _ portssvc.PriceSvc = (*priceService)(nil)

// MarketSymbol returns the provider symbol for a non-fiat asset.
func MarketSymbol(asset domain.Asset) string {
	sym := strings.ToUpper(asset.Symbol)
	if asset.UsesCryptoProvider() {
		return sym + cryptoQuoteSuffix
	}
	return sym
}

// isUsdPeg reports whether the asset is the crypto provider's own quote unit.
func isUsdPeg(asset domain.Asset) bool {
	return asset.UsesCryptoProvider() && strings.EqualFold(asset.Symbol, cryptoQuoteSuffix)
}

func (s *priceService) GetLatestPrices(ctx context.Context, assets []domain.Asset) map[string]domain.Quote {
	logger := s.GetLogger(ctx)
	now := s.now()
	result := make(map[string]domain.Quote)

	var candidates []domain.Asset
	for _, a := range assets {
		if a.IsFiat() {
			continue
		}
		if isUsdPeg(a) {
			result[a.AssetID] = domain.Quote{Symbol: a.Symbol, Close: decimal.NewFromInt(1), Currency: USD, Source: pegSource, AsOf: now}
			continue
		}
		candidates = append(candidates, a)
	}
	if len(candidates) == 0 {
		return result
	}

	cached := map[string]domain.PricePoint{}
	if s.history != nil {
		ids := make([]string, len(candidates))
		for i, a := range candidates {
			ids[i] = a.AssetID
		}
		hits, err := s.history.FindLatestPricesSince(ctx, ids, USD, now.Add(-s.freshness))
		if err != nil {
			logger.Warn("Price history lookup failed, falling back to providers", slog.String("error", err.Error()))
		} else {
			cached = hits
		}
	}

	var missing []domain.Asset
	for _, a := range candidates {
		if _, ok := cached[a.AssetID]; !ok {
			missing = append(missing, a)
		}
	}

	fresh := s.fetch(ctx, missing)
	s.persist(ctx, missing, fresh)

	for assetID, p := range cached {
		result[assetID] = domain.Quote{Symbol: assetID, Close: p.Price, Currency: p.QuoteCurrency, Source: p.Source, AsOf: p.Timestamp}
	}
	// Provider data takes precedence over the cache.
	for assetID, q := range fresh {
		result[assetID] = q
	}

	logger.Debug("Resolved latest prices",
		slog.Int("requested", len(assets)),
		slog.Int("cache_hits", len(cached)),
		slog.Int("fetched", len(fresh)))
	return result
}

func (s *priceService) SyncPrices(ctx context.Context, assets []domain.Asset) int {
	var candidates []domain.Asset
	for _, a := range assets {
		if !a.IsFiat() && !isUsdPeg(a) {
			candidates = append(candidates, a)
		}
	}
	fresh := s.fetch(ctx, candidates)
	s.persist(ctx, candidates, fresh)
	return len(fresh)
}

func (s *priceService) GetHistoricalPrice(ctx context.Context, asset domain.Asset, at time.Time) (decimal.Decimal, bool) {
	if isUsdPeg(asset) {
		return decimal.NewFromInt(1), true
	}
	provider := s.providerFor(asset)
	dayStart := time.Date(at.Year(), at.Month(), at.Day(), 0, 0, 0, 0, time.UTC)
	dayEnd := dayStart.Add(24*time.Hour - time.Nanosecond)

	if s.history != nil {
		p, err := s.history.FindPriceAt(ctx, asset.AssetID, USD, dayEnd)
		if err == nil && p != nil && !p.Timestamp.Before(dayStart) {
			return p.Price, true
		}
	}
	if provider == nil {
		return decimal.Zero, false
	}

	series := provider.GetHistorical(ctx, MarketSymbol(asset), dayStart, dayEnd)
	if len(series) == 0 {
		return decimal.Zero, false
	}
	last := series[len(series)-1]
	if s.history != nil {
		point := domain.PricePoint{AssetID: asset.AssetID, QuoteCurrency: USD, Price: last.Close, Source: provider.Source(), Timestamp: last.AsOf}
		if err := s.history.UpsertPrices(ctx, []domain.PricePoint{point}); err != nil {
			s.GetLogger(ctx).Warn("Failed to persist historical price", slog.String("asset_id", asset.AssetID), slog.String("error", err.Error()))
		}
	}
	return last.Close, true
}

func (s *priceService) providerFor(asset domain.Asset) providers.PriceProvider {
	if asset.UsesCryptoProvider() {
		return s.crypto
	}
	return s.stockFx
}

// fetch queries both provider families in parallel and maps quotes back to asset ids.
// A failing provider only leaves its own assets unpriced.
func (s *priceService) fetch(ctx context.Context, assets []domain.Asset) map[string]domain.Quote {
	bySymbol := map[domain.ProviderKind]map[string][]string{}
	for _, a := range assets {
		p := s.providerFor(a)
		if p == nil {
			continue
		}
		if bySymbol[p.Kind()] == nil {
			bySymbol[p.Kind()] = map[string][]string{}
		}
		sym := MarketSymbol(a)
		bySymbol[p.Kind()][sym] = append(bySymbol[p.Kind()][sym], a.AssetID)
	}

	quotes := make([]map[string]domain.Quote, 2)
	g, gctx := errgroup.WithContext(ctx)
	for i, p := range []providers.PriceProvider{s.stockFx, s.crypto} {
		if p == nil || len(bySymbol[p.Kind()]) == 0 {
			continue
		}
		symbols := make([]string, 0, len(bySymbol[p.Kind()]))
		for sym := range bySymbol[p.Kind()] {
			symbols = append(symbols, sym)
		}
		g.Go(func() error {
			quotes[i] = p.GetQuote(gctx, symbols)
			return nil
		})
	}
	_ = g.Wait()

	out := make(map[string]domain.Quote)
	for i, p := range []providers.PriceProvider{s.stockFx, s.crypto} {
		if p == nil {
			continue
		}
		for sym, q := range quotes[i] {
			if !q.Close.IsPositive() {
				continue
			}
			if q.Currency == "" || strings.EqualFold(q.Currency, cryptoQuoteSuffix) {
				q.Currency = USD
			}
			if q.Source == "" {
				q.Source = p.Source()
			}
			for _, assetID := range bySymbol[p.Kind()][sym] {
				out[assetID] = q
			}
		}
	}
	return out
}

func (s *priceService) persist(ctx context.Context, assets []domain.Asset, quotes map[string]domain.Quote) {
	if s.history == nil || len(quotes) == 0 {
		return
	}
	points := make([]domain.PricePoint, 0, len(quotes))
	for _, a := range assets {
		q, ok := quotes[a.AssetID]
		if !ok {
			continue
		}
		ts := q.AsOf
		if ts.IsZero() {
			ts = s.now()
		}
		points = append(points, domain.PricePoint{
			AssetID:       a.AssetID,
			QuoteCurrency: strings.ToUpper(q.Currency),
			Price:         q.Close,
			Source:        q.Source,
			Timestamp:     ts.UTC(),
		})
	}
	if err := s.history.UpsertPrices(ctx, points); err != nil {
		s.GetLogger(ctx).Warn("Failed to persist fetched prices", slog.Int("count", len(points)), slog.String("error", err.Error()))
	}
}
