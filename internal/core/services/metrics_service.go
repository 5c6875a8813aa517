package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/SscSPs/portfolio_ledger/internal/apperrors"
	"github.com/SscSPs/portfolio_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/portfolio_ledger/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/portfolio_ledger/internal/core/ports/services"
	"github.com/shopspring/decimal"
)

var cashflowTypes = []domain.TransactionType{domain.Deposit, domain.Withdraw}

type metricsService struct {
	BaseService
	snapshots    portssvc.SnapshotSvc
	snapshotRepo portsrepo.SnapshotReader
	txRepo       portsrepo.TransactionReader
	assetRepo    portsrepo.AssetReader
	prices       portssvc.PriceSvc
	fx           portssvc.FxRateSvc
	now          func() time.Time
}

// MetricsOption is a functional option for configuring the metrics service
type MetricsOption func(*metricsService)

// WithMetricsClock overrides the clock that defines "today".
func WithMetricsClock(now func() time.Time) MetricsOption {
	return func(s *metricsService) {
		s.now = now
	}
}

// NewMetricsService creates the PnL and performance service.
func NewMetricsService(
	snapshots portssvc.SnapshotSvc,
	snapshotRepo portsrepo.SnapshotReader,
	txRepo portsrepo.TransactionReader,
	assetRepo portsrepo.AssetReader,
	prices portssvc.PriceSvc,
	fx portssvc.FxRateSvc,
	options ...MetricsOption,
) portssvc.MetricsSvc {
	svc := &metricsService{
		snapshots:    snapshots,
		snapshotRepo: snapshotRepo,
		txRepo:       txRepo,
		assetRepo:    assetRepo,
		prices:       prices,
		fx:           fx,
		now:          time.Now,
	}
	for _, option := range options {
		option(svc)
	}
	return svc
}

var _ portssvc.MetricsSvc = (*metricsService)(nil)

// GetPortfolioMetrics compares the live portfolio with yesterday's snapshot;
// daily PnL is zero when that snapshot is missing. Cashflow is counted from
// midnight in loc.
func (s *metricsService) GetPortfolioMetrics(ctx context.Context, userID string, loc *time.Location) (*domain.PortfolioMetrics, error) {
	if loc == nil {
		loc = time.UTC
	}
	now := s.now()

	live, err := s.snapshots.BuildSnapshot(ctx, userID)
	if err != nil {
		return nil, err
	}

	dailyPnl := decimal.Zero
	today, err := time.Parse(domain.DateLayout, live.SnapshotDate)
	if err != nil {
		return nil, fmt.Errorf("invalid snapshot date %q: %w", live.SnapshotDate, err)
	}
	yesterday := today.AddDate(0, 0, -1).Format(domain.DateLayout)
	prev, err := s.snapshotRepo.FindSnapshotByDate(ctx, userID, yesterday)
	switch {
	case err == nil:
		dailyPnl = live.TotalValueUsd.Sub(prev.TotalValueUsd)
	case errors.Is(err, apperrors.ErrNotFound):
	default:
		return nil, fmt.Errorf("failed to load previous snapshot: %w", err)
	}

	local := now.In(loc)
	dayStart := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	todayFlows, err := s.cashflowRows(ctx, userID, &dayStart, &now)
	if err != nil {
		return nil, err
	}
	allFlows, err := s.cashflowRows(ctx, userID, nil, nil)
	if err != nil {
		return nil, err
	}

	valuer := newCashflowValuer(s)
	netToday := valuer.sum(ctx, todayFlows)
	invested := valuer.sum(ctx, allFlows)

	return &domain.PortfolioMetrics{
		BaseCurrency:   live.BaseCurrency,
		AsOf:           now.UTC(),
		TotalValueUsd:  live.TotalValueUsd,
		TotalValueBase: live.TotalValueBase,
		DailyPnlUsd:    dailyPnl,
		RealDailyPnl:   dailyPnl.Sub(netToday),
		NetCashflowUsd: netToday,
		TotalInvested:  invested,
	}, nil
}

func (s *metricsService) cashflowRows(ctx context.Context, userID string, from, to *time.Time) ([]domain.Transaction, error) {
	rows, _, err := s.txRepo.FindTransactionsByUserID(ctx, userID, domain.TransactionFilter{
		Types: cashflowTypes,
		From:  from,
		To:    to,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load cashflow rows: %w", err)
	}
	return rows, nil
}

// cashflowValuer prices DEPOSIT/WITHDRAW rows in USD on their own dates,
// memoizing unit prices per asset and day.
type cashflowValuer struct {
	svc    *metricsService
	assets map[string]*domain.Asset
	unit   map[string]decimal.Decimal
}

func newCashflowValuer(svc *metricsService) *cashflowValuer {
	return &cashflowValuer{svc: svc, assets: map[string]*domain.Asset{}, unit: map[string]decimal.Decimal{}}
}

// sum returns the signed USD value of rows. Unpriceable rows count as zero.
func (v *cashflowValuer) sum(ctx context.Context, rows []domain.Transaction) decimal.Decimal {
	total := decimal.Zero
	for _, row := range rows {
		price, ok := v.unitUsd(ctx, row.AssetID, row.TransactionDate)
		if !ok {
			v.svc.GetLogger(ctx).Warn("Cashflow row left unvalued",
				slog.String("transaction_id", row.TransactionID),
				slog.String("asset_id", row.AssetID))
			continue
		}
		total = total.Add(NormalizedQuantity(row).Mul(price))
	}
	return total
}

func (v *cashflowValuer) unitUsd(ctx context.Context, assetID string, at time.Time) (decimal.Decimal, bool) {
	key := assetID + "@" + at.UTC().Format(domain.DateLayout)
	if p, ok := v.unit[key]; ok {
		return p, !p.IsZero()
	}

	asset, ok := v.assets[assetID]
	if !ok {
		found, err := v.svc.assetRepo.FindAssetByID(ctx, assetID)
		if err != nil {
			found = nil
		}
		v.assets[assetID] = found
		asset = found
	}
	price := decimal.Zero
	if asset != nil {
		price = v.price(ctx, *asset, at)
	}
	v.unit[key] = price
	return price, !price.IsZero()
}

func (v *cashflowValuer) price(ctx context.Context, asset domain.Asset, at time.Time) decimal.Decimal {
	if !asset.IsFiat() {
		p, ok := v.svc.prices.GetHistoricalPrice(ctx, asset, at)
		if !ok {
			return decimal.Zero
		}
		return p
	}
	if strings.EqualFold(asset.Symbol, USD) {
		return decimal.NewFromInt(1)
	}
	rate, ok := v.svc.fx.UsdToAt(ctx, asset.Symbol, at)
	if !ok || !rate.IsPositive() {
		return decimal.Zero
	}
	return decimal.NewFromInt(1).DivRound(rate, 18)
}

// GetPerformance returns the snapshot series of the range, downsampled to the
// last snapshot of each ISO week or calendar month.
func (s *metricsService) GetPerformance(ctx context.Context, userID string, r domain.PerformanceRange, interval domain.PerformanceInterval) ([]domain.PerformancePoint, error) {
	if r == "" {
		r = domain.Range1M
	}
	if interval == "" {
		interval = domain.IntervalDay
	}
	if !r.IsValid() {
		return nil, apperrors.NewValidationError("range", "must be one of 1D 1W 1M 1Y ALL")
	}
	if !interval.IsValid() {
		return nil, apperrors.NewValidationError("interval", "must be one of day week month")
	}

	from := ""
	if days, ok := r.LookbackDays(); ok {
		from = s.now().UTC().AddDate(0, 0, -days).Format(domain.DateLayout)
	}
	snaps, err := s.snapshotRepo.ListSnapshots(ctx, userID, from, "")
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	return Downsample(snaps, interval), nil
}

// Downsample keeps the last snapshot of every period. snaps must be ordered
// oldest first; the result keeps that order.
func Downsample(snaps []domain.PortfolioSnapshot, interval domain.PerformanceInterval) []domain.PerformancePoint {
	points := make([]domain.PerformancePoint, 0, len(snaps))
	lastPeriod := ""
	for _, snap := range snaps {
		date, err := snap.Date()
		if err != nil {
			continue
		}
		period := periodKey(date, interval)
		point := domain.PerformancePoint{
			Date:           snap.SnapshotDate,
			TotalValueUsd:  snap.TotalValueUsd,
			TotalValueBase: snap.TotalValueBase,
		}
		if len(points) > 0 && period == lastPeriod {
			points[len(points)-1] = point
			continue
		}
		points = append(points, point)
		lastPeriod = period
	}
	return points
}

func periodKey(date time.Time, interval domain.PerformanceInterval) string {
	switch interval {
	case domain.IntervalWeek:
		year, week := date.ISOWeek()
		return fmt.Sprintf("%04d-W%02d", year, week)
	case domain.IntervalMonth:
		return date.Format("2006-01")
	}
	return date.Format(domain.DateLayout)
}
