package services

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/SscSPs/portfolio_ledger/internal/apperrors"
	"github.com/SscSPs/portfolio_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/portfolio_ledger/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/portfolio_ledger/internal/core/ports/services"
	"github.com/SscSPs/portfolio_ledger/internal/utils/numeric"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type snapshotService struct {
	BaseService
	holdings     portssvc.HoldingsDeriverSvc
	prices       portssvc.PriceSvc
	fx           portssvc.FxRateSvc
	userRepo     portsrepo.UserReader
	assetRepo    portsrepo.AssetReader
	snapshotRepo portsrepo.SnapshotRepositoryFacade
	now          func() time.Time
}

// SnapshotOption is a functional option for configuring the snapshot service
type SnapshotOption func(*snapshotService)

// WithSnapshotClock overrides the clock that stamps the snapshot date.
func WithSnapshotClock(now func() time.Time) SnapshotOption {
	return func(s *snapshotService) {
		s.now = now
	}
}

// NewSnapshotService creates the daily snapshot builder.
func NewSnapshotService(
	holdings portssvc.HoldingsDeriverSvc,
	prices portssvc.PriceSvc,
	fx portssvc.FxRateSvc,
	userRepo portsrepo.UserReader,
	assetRepo portsrepo.AssetReader,
	snapshotRepo portsrepo.SnapshotRepositoryFacade,
	options ...SnapshotOption,
) portssvc.SnapshotSvc {
	svc := &snapshotService{
		holdings:     holdings,
		prices:       prices,
		fx:           fx,
		userRepo:     userRepo,
		assetRepo:    assetRepo,
		snapshotRepo: snapshotRepo,
		now:          time.Now,
	}
	for _, option := range options {
		option(svc)
	}
	return svc
}

var _ portssvc.SnapshotSvc = (*snapshotService)(nil)

// BuildSnapshot values every holding of the user in USD and in the user's base
// currency, dated with the current UTC day. Nothing is persisted.
func (s *snapshotService) BuildSnapshot(ctx context.Context, userID string) (*domain.PortfolioSnapshot, error) {
	logger := s.GetLogger(ctx)

	user, err := s.userRepo.FindUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	base, err := NormalizeCurrency("baseCurrency", user.BaseCurrency)
	if err != nil {
		return nil, err
	}
	fx, ok := s.fx.UsdTo(ctx, base)
	if !ok || !fx.IsPositive() {
		return nil, apperrors.NewAppError(http.StatusServiceUnavailable, fmt.Sprintf("USD/%s rate unavailable", base), nil)
	}

	holdings, err := s.holdings.DeriveHoldings(ctx, userID, "")
	if err != nil {
		return nil, err
	}
	assetIDs := make([]string, 0, len(holdings))
	for _, h := range holdings {
		assetIDs = append(assetIDs, h.AssetID)
	}
	assets := map[string]domain.Asset{}
	if len(assetIDs) > 0 {
		if assets, err = s.assetRepo.FindAssetsByIDs(ctx, uniqueSorted(assetIDs)); err != nil {
			return nil, fmt.Errorf("failed to load assets: %w", err)
		}
	}
	quotes := s.prices.GetLatestPrices(ctx, values(assets))

	snap := &domain.PortfolioSnapshot{
		UserID:         userID,
		SnapshotDate:   s.now().UTC().Format(domain.DateLayout),
		BaseCurrency:   base,
		FxUsdToBase:    fx,
		TotalValueUsd:  decimal.Zero,
		TotalValueBase: decimal.Zero,
		Items:          make([]domain.SnapshotItem, 0, len(holdings)),
	}
	var unpriced []string
	for _, h := range holdings {
		priceUsd, priceBase, ok := s.unitPrices(ctx, assets[h.AssetID], quotes, base, fx)
		if !ok {
			unpriced = append(unpriced, h.AssetID)
		}
		item := domain.SnapshotItem{
			SnapshotItemID: uuid.NewString(),
			AccountID:      h.AccountID,
			AssetID:        h.AssetID,
			Quantity:       h.Quantity,
			PriceUsd:       priceUsd,
			PriceBase:      priceBase,
			ValueUsd:       h.Quantity.Mul(priceUsd),
			ValueBase:      h.Quantity.Mul(priceBase),
		}
		snap.TotalValueUsd = snap.TotalValueUsd.Add(item.ValueUsd)
		snap.TotalValueBase = snap.TotalValueBase.Add(item.ValueBase)
		snap.Items = append(snap.Items, item)
	}

	if len(unpriced) > 0 {
		logger.Warn("Snapshot built with unpriced assets", slog.String("user_id", userID), slog.Any("asset_ids", unpriced))
	}
	return snap, nil
}

// unitPrices returns the USD and base price of one unit of asset. Unpriced
// assets yield zeros and ok=false.
func (s *snapshotService) unitPrices(ctx context.Context, asset domain.Asset, quotes map[string]domain.Quote, base string, fx decimal.Decimal) (decimal.Decimal, decimal.Decimal, bool) {
	one := decimal.NewFromInt(1)
	switch {
	case strings.EqualFold(asset.Symbol, base):
		usd, _ := numeric.Inverse(fx)
		return usd, one, true
	case asset.IsFiat():
		if strings.EqualFold(asset.Symbol, USD) {
			return one, fx, true
		}
		usdToSym, ok := s.fx.UsdTo(ctx, asset.Symbol)
		if !ok {
			return decimal.Zero, decimal.Zero, false
		}
		usd, ok := numeric.Inverse(usdToSym)
		if !ok {
			return decimal.Zero, decimal.Zero, false
		}
		return usd, usd.Mul(fx), true
	}

	q, ok := quotes[asset.AssetID]
	if !ok {
		return decimal.Zero, decimal.Zero, false
	}
	// A quote already in the base currency is back-derived to USD instead of
	// being converted twice.
	if base != USD && strings.EqualFold(q.Currency, base) {
		return q.Close.Div(fx), q.Close, true
	}
	if q.Currency == "" || strings.EqualFold(q.Currency, USD) {
		return q.Close, q.Close.Mul(fx), true
	}
	usdToQuote, ok := s.fx.UsdTo(ctx, q.Currency)
	if !ok {
		return decimal.Zero, decimal.Zero, false
	}
	perUnit, ok := numeric.Inverse(usdToQuote)
	if !ok {
		return decimal.Zero, decimal.Zero, false
	}
	usd := q.Close.Mul(perUnit)
	return usd, usd.Mul(fx), true
}

func (s *snapshotService) CreateOrReplaceTodaySnapshot(ctx context.Context, userID string) (*domain.PortfolioSnapshot, error) {
	snap, err := s.BuildSnapshot(ctx, userID)
	if err != nil {
		return nil, err
	}
	saved, err := s.snapshotRepo.CreateOrReplace(ctx, *snap)
	if err != nil {
		s.LogError(ctx, err, "Failed to persist snapshot", slog.String("user_id", userID), slog.String("date", snap.SnapshotDate))
		return nil, err
	}
	s.LogInfo(ctx, "Snapshot saved",
		slog.String("user_id", userID),
		slog.String("date", saved.SnapshotDate),
		slog.Int("items", len(saved.Items)),
		slog.String("total_value_usd", saved.TotalValueUsd.StringFixed(numeric.QuantityPlaces)))
	return saved, nil
}

func (s *snapshotService) GetSnapshot(ctx context.Context, userID, date string) (*domain.PortfolioSnapshot, error) {
	if _, err := time.Parse(domain.DateLayout, date); err != nil {
		return nil, apperrors.NewValidationError("date", "must be YYYY-MM-DD")
	}
	return s.snapshotRepo.FindSnapshotByDate(ctx, userID, date)
}

func (s *snapshotService) ListSnapshots(ctx context.Context, userID, from, to string) ([]domain.PortfolioSnapshot, error) {
	for field, v := range map[string]string{"from": from, "to": to} {
		if v == "" {
			continue
		}
		if _, err := time.Parse(domain.DateLayout, v); err != nil {
			return nil, apperrors.NewValidationError(field, "must be YYYY-MM-DD")
		}
	}
	if from != "" && to != "" && from > to {
		return nil, apperrors.NewValidationError("from", "must not be after to")
	}
	return s.snapshotRepo.ListSnapshots(ctx, userID, from, to)
}
