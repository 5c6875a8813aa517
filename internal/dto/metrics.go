package dto

import (
	"time"

	"github.com/SscSPs/portfolio_ledger/internal/core/domain"
	"github.com/SscSPs/portfolio_ledger/internal/utils/numeric"
	"github.com/shopspring/decimal"
)

// MetricsResponse is the externalized PortfolioMetrics.
type MetricsResponse struct {
	BaseCurrency     string          `json:"baseCurrency"`
	AsOf             time.Time       `json:"asOf"`
	TotalValueUsd    decimal.Decimal `json:"totalValueUsd"`
	TotalValueBase   decimal.Decimal `json:"totalValueBase"`
	DailyPnlUsd      decimal.Decimal `json:"dailyPnlUsd"`
	RealDailyPnlUsd  decimal.Decimal `json:"realDailyPnlUsd"`
	NetCashflowUsd   decimal.Decimal `json:"netCashflowUsd"`
	TotalInvestedUsd decimal.Decimal `json:"totalInvestedUsd"`
}

// PerformanceParams are the query parameters of the performance endpoint.
type PerformanceParams struct {
	Range    string `form:"range" validate:"omitempty,oneof=1D 1W 1M 1Y ALL"`
	Interval string `form:"interval" validate:"omitempty,oneof=day week month"`
}

// PerformancePointResponse is one point of a performance series.
type PerformancePointResponse struct {
	Date           string          `json:"date"`
	TotalValueUsd  decimal.Decimal `json:"totalValueUsd"`
	TotalValueBase decimal.Decimal `json:"totalValueBase"`
}

// ToMetricsResponse converts metrics.
func ToMetricsResponse(m *domain.PortfolioMetrics) MetricsResponse {
	return MetricsResponse{
		BaseCurrency:     m.BaseCurrency,
		AsOf:             m.AsOf,
		TotalValueUsd:    numeric.RoundQuantity(m.TotalValueUsd),
		TotalValueBase:   numeric.RoundQuantity(m.TotalValueBase),
		DailyPnlUsd:      numeric.RoundQuantity(m.DailyPnlUsd),
		RealDailyPnlUsd:  numeric.RoundQuantity(m.RealDailyPnl),
		NetCashflowUsd:   numeric.RoundQuantity(m.NetCashflowUsd),
		TotalInvestedUsd: numeric.RoundQuantity(m.TotalInvested),
	}
}

// ToPerformanceResponses converts a performance series.
func ToPerformanceResponses(points []domain.PerformancePoint) []PerformancePointResponse {
	out := make([]PerformancePointResponse, len(points))
	for i, p := range points {
		out[i] = PerformancePointResponse{
			Date:           p.Date,
			TotalValueUsd:  numeric.RoundQuantity(p.TotalValueUsd),
			TotalValueBase: numeric.RoundQuantity(p.TotalValueBase),
		}
	}
	return out
}
