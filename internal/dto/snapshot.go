package dto

import (
	"time"

	"github.com/SscSPs/portfolio_ledger/internal/core/domain"
	"github.com/SscSPs/portfolio_ledger/internal/utils/numeric"
	"github.com/shopspring/decimal"
)

// SnapshotItemResponse is one line of a snapshot.
type SnapshotItemResponse struct {
	AccountID string          `json:"accountID"`
	AssetID   string          `json:"assetID"`
	Quantity  decimal.Decimal `json:"quantity"`
	PriceUsd  decimal.Decimal `json:"priceUsd"`
	PriceBase decimal.Decimal `json:"priceBase"`
	ValueUsd  decimal.Decimal `json:"valueUsd"`
	ValueBase decimal.Decimal `json:"valueBase"`
}

// SnapshotResponse is the externalized daily snapshot.
type SnapshotResponse struct {
	SnapshotID     string                 `json:"snapshotID,omitempty"`
	SnapshotDate   string                 `json:"snapshotDate"`
	BaseCurrency   string                 `json:"baseCurrency"`
	FxUsdToBase    decimal.Decimal        `json:"fxUsdToBase"`
	TotalValueUsd  decimal.Decimal        `json:"totalValueUsd"`
	TotalValueBase decimal.Decimal        `json:"totalValueBase"`
	Items          []SnapshotItemResponse `json:"items,omitempty"`
	CreatedAt      *time.Time             `json:"createdAt,omitempty"`
	UpdatedAt      *time.Time             `json:"updatedAt,omitempty"`
}

// ListSnapshotsParams bounds a snapshot listing (YYYY-MM-DD, inclusive).
type ListSnapshotsParams struct {
	From string `form:"from" validate:"omitempty,datetime=2006-01-02"`
	To   string `form:"to" validate:"omitempty,datetime=2006-01-02"`
}

// ToSnapshotResponse converts a domain snapshot.
func ToSnapshotResponse(s *domain.PortfolioSnapshot) SnapshotResponse {
	resp := SnapshotResponse{
		SnapshotID:     s.SnapshotID,
		SnapshotDate:   s.SnapshotDate,
		BaseCurrency:   s.BaseCurrency,
		FxUsdToBase:    numeric.RoundQuantity(s.FxUsdToBase),
		TotalValueUsd:  numeric.RoundQuantity(s.TotalValueUsd),
		TotalValueBase: numeric.RoundQuantity(s.TotalValueBase),
	}
	if !s.CreatedAt.IsZero() {
		resp.CreatedAt = &s.CreatedAt
		resp.UpdatedAt = &s.UpdatedAt
	}
	for _, it := range s.Items {
		resp.Items = append(resp.Items, SnapshotItemResponse{
			AccountID: it.AccountID,
			AssetID:   it.AssetID,
			Quantity:  numeric.RoundQuantity(it.Quantity),
			PriceUsd:  numeric.RoundQuantity(it.PriceUsd),
			PriceBase: numeric.RoundQuantity(it.PriceBase),
			ValueUsd:  numeric.RoundQuantity(it.ValueUsd),
			ValueBase: numeric.RoundQuantity(it.ValueBase),
		})
	}
	return resp
}

// ToSnapshotResponses converts a snapshot list.
func ToSnapshotResponses(snaps []domain.PortfolioSnapshot) []SnapshotResponse {
	out := make([]SnapshotResponse, len(snaps))
	for i := range snaps {
		out[i] = ToSnapshotResponse(&snaps[i])
	}
	return out
}
