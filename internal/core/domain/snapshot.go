package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PortfolioSnapshot is the valuation of a user's whole portfolio on one calendar day.
// At most one snapshot exists per (UserID, SnapshotDate).
type PortfolioSnapshot struct {
	SnapshotID     string          `json:"snapshotID"`
	UserID         string          `json:"userID"`
	SnapshotDate   string          `json:"snapshotDate"` // YYYY-MM-DD, UTC
	BaseCurrency   string          `json:"baseCurrency"`
	FxUsdToBase    decimal.Decimal `json:"fxUsdToBase"`
	TotalValueUsd  decimal.Decimal `json:"totalValueUsd"`
	TotalValueBase decimal.Decimal `json:"totalValueBase"`
	Items          []SnapshotItem  `json:"items"`
	AuditFields
}

// SnapshotItem is one (account, asset) line of a snapshot.
type SnapshotItem struct {
	SnapshotItemID string          `json:"snapshotItemID"`
	SnapshotID     string          `json:"snapshotID"`
	AccountID      string          `json:"accountID"`
	AssetID        string          `json:"assetID"`
	Quantity       decimal.Decimal `json:"quantity"`
	PriceUsd       decimal.Decimal `json:"priceUsd"`
	PriceBase      decimal.Decimal `json:"priceBase"`
	ValueUsd       decimal.Decimal `json:"valueUsd"`
	ValueBase      decimal.Decimal `json:"valueBase"`
}

// Date parses SnapshotDate.
func (s PortfolioSnapshot) Date() (time.Time, error) {
	return time.Parse(DateLayout, s.SnapshotDate)
}
