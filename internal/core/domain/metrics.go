package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PortfolioMetrics summarizes a user's portfolio for the current day.
type PortfolioMetrics struct {
	BaseCurrency   string          `json:"baseCurrency"`
	AsOf           time.Time       `json:"asOf"`
	TotalValueUsd  decimal.Decimal `json:"totalValueUsd"`
	TotalValueBase decimal.Decimal `json:"totalValueBase"`
	DailyPnlUsd    decimal.Decimal `json:"dailyPnlUsd"`
	RealDailyPnl   decimal.Decimal `json:"realDailyPnlUsd"`
	NetCashflowUsd decimal.Decimal `json:"netCashflowUsd"`
	TotalInvested  decimal.Decimal `json:"totalInvestedUsd"`
}

// PerformanceRange names a lookback window.
type PerformanceRange string

const (
	Range1D  PerformanceRange = "1D"
	Range1W  PerformanceRange = "1W"
	Range1M  PerformanceRange = "1M"
	Range1Y  PerformanceRange = "1Y"
	RangeAll PerformanceRange = "ALL"
)

// LookbackDays returns the window length in days; ok is false for ALL or unknown ranges.
func (r PerformanceRange) LookbackDays() (int, bool) {
	switch r {
	case Range1D:
		return 1, true
	case Range1W:
		return 7, true
	case Range1M:
		return 30, true
	case Range1Y:
		return 365, true
	}
	return 0, false
}

// IsValid reports whether r is a known range.
func (r PerformanceRange) IsValid() bool {
	_, ok := r.LookbackDays()
	return ok || r == RangeAll
}

// PerformanceInterval is the bucket size of a performance series.
type PerformanceInterval string

const (
	IntervalDay   PerformanceInterval = "day"
	IntervalWeek  PerformanceInterval = "week"
	IntervalMonth PerformanceInterval = "month"
)

// IsValid reports whether i is a known interval.
func (i PerformanceInterval) IsValid() bool {
	return i == IntervalDay || i == IntervalWeek || i == IntervalMonth
}

// PerformancePoint is one point of a performance series.
type PerformancePoint struct {
	Date           string          `json:"date"`
	TotalValueUsd  decimal.Decimal `json:"totalValueUsd"`
	TotalValueBase decimal.Decimal `json:"totalValueBase"`
}
