package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/SscSPs/portfolio_ledger/internal/apperrors"
	"github.com/SscSPs/portfolio_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/portfolio_ledger/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/portfolio_ledger/internal/core/ports/services"
	"github.com/SscSPs/portfolio_ledger/internal/utils/numeric"
	"github.com/shopspring/decimal"
)

type valuationService struct {
	BaseService
	holdings    portssvc.HoldingsDeriverSvc
	prices      portssvc.PriceSvc
	fx          portssvc.FxRateSvc
	accountRepo portsrepo.AccountReader
	assetRepo   portsrepo.AssetReader
	cache       *ValuationCache
}

// NewValuationService creates the holdings valuation engine. cache may be nil.
func NewValuationService(
	holdings portssvc.HoldingsDeriverSvc,
	prices portssvc.PriceSvc,
	fx portssvc.FxRateSvc,
	accountRepo portsrepo.AccountReader,
	assetRepo portsrepo.AssetReader,
	cache *ValuationCache,
) portssvc.ValuationSvc {
	return &valuationService{
		holdings:    holdings,
		prices:      prices,
		fx:          fx,
		accountRepo: accountRepo,
		assetRepo:   assetRepo,
		cache:       cache,
	}
}

var _ portssvc.ValuationSvc = (*valuationService)(nil)

// ResolvePrices prices every asset in quoteCurrency through USD. An asset whose
// symbol is the quote currency is always worth 1.
func (s *valuationService) ResolvePrices(ctx context.Context, assets []domain.Asset, quoteCurrency string) map[string]decimal.Decimal {
	quote := strings.ToUpper(quoteCurrency)
	one := decimal.NewFromInt(1)
	prices := make(map[string]decimal.Decimal, len(assets))

	var pending []domain.Asset
	for _, a := range assets {
		if strings.EqualFold(a.Symbol, quote) {
			prices[a.AssetID] = one
			continue
		}
		pending = append(pending, a)
	}
	if len(pending) == 0 {
		return prices
	}

	usdToQuote, quoteOK := s.usdToQuote(ctx, quote)

	var market []domain.Asset
	for _, a := range pending {
		if a.IsFiat() {
			if !quoteOK {
				continue
			}
			if usd, ok := s.fiatInUsd(ctx, a.Symbol); ok {
				prices[a.AssetID] = usd.Mul(usdToQuote)
			}
			continue
		}
		market = append(market, a)
	}
	if len(market) == 0 {
		return prices
	}

	quotes := s.prices.GetLatestPrices(ctx, market)
	for _, a := range market {
		q, ok := quotes[a.AssetID]
		if !ok {
			continue
		}
		if strings.EqualFold(q.Currency, quote) {
			prices[a.AssetID] = q.Close
			continue
		}
		usd, ok := s.toUsd(ctx, q)
		if !ok || !quoteOK {
			continue
		}
		prices[a.AssetID] = usd.Mul(usdToQuote)
	}
	return prices
}

// normalizeQuote upper-cases quoteCurrency and accepts either an ISO 4217 code
// or the symbol of a known asset, so holdings can be valued in BTC or USDT.
func (s *valuationService) normalizeQuote(ctx context.Context, quoteCurrency string) (string, error) {
	quote := strings.ToUpper(strings.TrimSpace(quoteCurrency))
	if quote == "" {
		return "", apperrors.NewValidationError("quoteCurrency", "required")
	}
	if IsISOCurrency(quote) {
		return quote, nil
	}
	if _, err := s.assetRepo.FindAssetBySymbol(ctx, quote); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return "", apperrors.NewValidationError("quoteCurrency", "unknown currency "+quote)
		}
		return "", err
	}
	return quote, nil
}

// usdToQuote returns how many units of quote one USD buys. A non-ISO quote is
// an asset symbol and is priced through the market.
func (s *valuationService) usdToQuote(ctx context.Context, quote string) (decimal.Decimal, bool) {
	if IsISOCurrency(quote) {
		return s.fx.UsdTo(ctx, quote)
	}
	asset, err := s.assetRepo.FindAssetBySymbol(ctx, quote)
	if err != nil {
		return decimal.Zero, false
	}
	q, ok := s.prices.GetLatestPrices(ctx, []domain.Asset{*asset})[asset.AssetID]
	if !ok {
		return decimal.Zero, false
	}
	usd, ok := s.toUsd(ctx, q)
	if !ok {
		return decimal.Zero, false
	}
	return numeric.Inverse(usd)
}

// fiatInUsd returns the USD value of one unit of a fiat currency.
func (s *valuationService) fiatInUsd(ctx context.Context, symbol string) (decimal.Decimal, bool) {
	if strings.EqualFold(symbol, USD) {
		return decimal.NewFromInt(1), true
	}
	usdToSym, ok := s.fx.UsdTo(ctx, symbol)
	if !ok {
		return decimal.Zero, false
	}
	return numeric.Inverse(usdToSym)
}

// toUsd converts a quote's close to USD using its reported currency.
func (s *valuationService) toUsd(ctx context.Context, q domain.Quote) (decimal.Decimal, bool) {
	if q.Currency == "" || strings.EqualFold(q.Currency, USD) {
		return q.Close, true
	}
	perUnit, ok := s.fiatInUsd(ctx, q.Currency)
	if !ok {
		return decimal.Zero, false
	}
	return q.Close.Mul(perUnit), true
}

func (s *valuationService) GetCurrentPrice(ctx context.Context, assetID, quoteCurrency string) (decimal.Decimal, error) {
	quote, err := s.normalizeQuote(ctx, quoteCurrency)
	if err != nil {
		return decimal.Zero, err
	}
	key := LivePriceKey(assetID, quote)
	var cached cachedRate
	if s.cache.get(ctx, key, &cached) {
		return cached.Rate, nil
	}

	asset, err := s.assetRepo.FindAssetByID(ctx, assetID)
	if err != nil {
		return decimal.Zero, err
	}
	prices := s.ResolvePrices(ctx, []domain.Asset{*asset}, quote)
	price, ok := prices[asset.AssetID]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: no price available for %s in %s", apperrors.ErrNotFound, asset.Symbol, quote)
	}
	if s.cache != nil {
		s.cache.set(ctx, key, cachedRate{Rate: price}, s.cache.livePriceTTL)
	}
	return price, nil
}

func (s *valuationService) GetAccountHoldings(ctx context.Context, userID, accountID, quoteCurrency string) (*domain.AccountHoldings, error) {
	quote, err := s.normalizeQuote(ctx, quoteCurrency)
	if err != nil {
		return nil, err
	}
	key := HoldingsKey(userID, accountID, quote)
	var cached domain.AccountHoldings
	if s.cache.get(ctx, key, &cached) {
		return &cached, nil
	}

	account, err := s.accountRepo.FindAccountByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if account.UserID != userID {
		return nil, fmt.Errorf("%w: account %s", apperrors.ErrForbidden, accountID)
	}

	holdings, err := s.holdings.DeriveHoldings(ctx, userID, accountID)
	if err != nil {
		return nil, err
	}
	assets, err := s.assetsOf(ctx, holdings)
	if err != nil {
		return nil, err
	}
	prices := s.ResolvePrices(ctx, values(assets), quote)

	result := &domain.AccountHoldings{
		AccountID:        accountID,
		QuoteCurrency:    quote,
		Items:            make([]domain.HoldingValuation, 0, len(holdings)),
		TotalValue:       decimal.Zero,
		UnpricedAssetIDs: []string{},
	}
	for _, h := range holdings {
		item := domain.HoldingValuation{
			AccountID:         h.AccountID,
			Asset:             assets[h.AssetID],
			Quantity:          h.Quantity,
			AllocationPercent: decimal.Zero,
		}
		if price, ok := prices[h.AssetID]; ok {
			value := h.Quantity.Mul(price)
			item.Priced = true
			item.Price = numeric.Ptr(price)
			item.Value = numeric.Ptr(value)
			result.TotalValue = result.TotalValue.Add(value)
		} else {
			result.UnpricedAssetIDs = append(result.UnpricedAssetIDs, h.AssetID)
		}
		result.Items = append(result.Items, item)
	}
	for i := range result.Items {
		if result.Items[i].Value != nil {
			result.Items[i].AllocationPercent = numeric.Percent(*result.Items[i].Value, result.TotalValue)
		}
	}
	sortValuations(result.Items)

	if len(result.UnpricedAssetIDs) > 0 {
		s.GetLogger(ctx).Info("Account holdings valued with unpriced assets",
			slog.String("account_id", accountID),
			slog.Any("unpriced_asset_ids", result.UnpricedAssetIDs))
	}
	s.cache.set(ctx, key, result, s.cacheTTL(false))
	return result, nil
}

func (s *valuationService) GetAssetAllocation(ctx context.Context, userID, quoteCurrency string) (*domain.Allocation, error) {
	quote, err := s.normalizeQuote(ctx, quoteCurrency)
	if err != nil {
		return nil, err
	}
	key := AllocationKey(userID, quote)
	var cached domain.Allocation
	if s.cache.get(ctx, key, &cached) {
		return &cached, nil
	}

	result, err := s.allocate(ctx, userID, quote, func(h domain.Holding, asset domain.Asset, _ map[string]domain.Account) (string, string) {
		return string(asset.AssetType), assetTypeLabel(asset.AssetType)
	})
	if err != nil {
		return nil, err
	}
	s.cache.set(ctx, key, result, s.cacheTTL(true))
	return result, nil
}

func (s *valuationService) GetPlatformDistribution(ctx context.Context, userID, quoteCurrency string) (*domain.Allocation, error) {
	quote, err := s.normalizeQuote(ctx, quoteCurrency)
	if err != nil {
		return nil, err
	}
	key := DistributionKey(userID, quote)
	var cached domain.Allocation
	if s.cache.get(ctx, key, &cached) {
		return &cached, nil
	}

	result, err := s.allocate(ctx, userID, quote, func(h domain.Holding, _ domain.Asset, accounts map[string]domain.Account) (string, string) {
		acc, ok := accounts[h.AccountID]
		if !ok {
			return "unknown", "Unknown"
		}
		return acc.Platform.PlatformID, acc.Platform.Name
	})
	if err != nil {
		return nil, err
	}
	s.cache.set(ctx, key, result, s.cacheTTL(true))
	return result, nil
}

type bucketFunc func(h domain.Holding, asset domain.Asset, accounts map[string]domain.Account) (key, label string)

// allocate values every holding of the user and sums priced values per bucket.
// Unpriced holdings contribute nothing and are reported once per asset.
func (s *valuationService) allocate(ctx context.Context, userID, quote string, bucket bucketFunc) (*domain.Allocation, error) {
	holdings, err := s.holdings.DeriveHoldings(ctx, userID, "")
	if err != nil {
		return nil, err
	}
	assets, err := s.assetsOf(ctx, holdings)
	if err != nil {
		return nil, err
	}
	accountIDs := make([]string, 0, len(holdings))
	for _, h := range holdings {
		accountIDs = append(accountIDs, h.AccountID)
	}
	accounts, err := s.accountRepo.FindAccountsByIDs(ctx, uniqueSorted(accountIDs))
	if err != nil {
		return nil, err
	}
	prices := s.ResolvePrices(ctx, values(assets), quote)

	result := &domain.Allocation{QuoteCurrency: quote, TotalValue: decimal.Zero, UnpricedAssetIDs: []string{}, Slices: []domain.AllocationSlice{}}
	slices := map[string]*domain.AllocationSlice{}
	unpriced := map[string]struct{}{}
	for _, h := range holdings {
		price, ok := prices[h.AssetID]
		if !ok {
			unpriced[h.AssetID] = struct{}{}
			continue
		}
		value := h.Quantity.Mul(price)
		k, label := bucket(h, assets[h.AssetID], accounts)
		sl, exists := slices[k]
		if !exists {
			sl = &domain.AllocationSlice{Key: k, Label: label, Value: decimal.Zero}
			slices[k] = sl
		}
		sl.Value = sl.Value.Add(value)
		result.TotalValue = result.TotalValue.Add(value)
	}
	for _, sl := range slices {
		sl.AllocationPercent = numeric.Percent(sl.Value, result.TotalValue)
		result.Slices = append(result.Slices, *sl)
	}
	sort.Slice(result.Slices, func(i, j int) bool {
		if !result.Slices[i].Value.Equal(result.Slices[j].Value) {
			return result.Slices[i].Value.GreaterThan(result.Slices[j].Value)
		}
		return result.Slices[i].Key < result.Slices[j].Key
	})
	for id := range unpriced {
		result.UnpricedAssetIDs = append(result.UnpricedAssetIDs, id)
	}
	sort.Strings(result.UnpricedAssetIDs)
	return result, nil
}

func (s *valuationService) assetsOf(ctx context.Context, holdings []domain.Holding) (map[string]domain.Asset, error) {
	ids := make([]string, 0, len(holdings))
	for _, h := range holdings {
		ids = append(ids, h.AssetID)
	}
	if len(ids) == 0 {
		return map[string]domain.Asset{}, nil
	}
	assets, err := s.assetRepo.FindAssetsByIDs(ctx, uniqueSorted(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to load assets: %w", err)
	}
	return assets, nil
}

func (s *valuationService) cacheTTL(portfolioWide bool) time.Duration {
	if s.cache == nil {
		return 0
	}
	if portfolioWide {
		return s.cache.allocationTTL
	}
	return s.cache.holdingsTTL
}

func values(m map[string]domain.Asset) []domain.Asset {
	out := make([]domain.Asset, 0, len(m))
	for _, a := range m {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AssetID < out[j].AssetID })
	return out
}

// sortValuations orders priced lines by value descending, unpriced lines last.
func sortValuations(items []domain.HoldingValuation) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.Priced != b.Priced {
			return a.Priced
		}
		if a.Priced && !a.Value.Equal(*b.Value) {
			return a.Value.GreaterThan(*b.Value)
		}
		return a.Asset.AssetID < b.Asset.AssetID
	})
}

func assetTypeLabel(t domain.AssetType) string {
	switch t {
	case domain.AssetFiat:
		return "Cash"
	case domain.AssetCrypto:
		return "Crypto"
	case domain.AssetStock:
		return "Stocks"
	case domain.AssetETF:
		return "ETFs"
	case domain.AssetCommodity:
		return "Commodities"
	case domain.AssetStablecoin:
		return "Stablecoins"
	}
	return string(t)
}
