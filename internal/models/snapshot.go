package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PortfolioSnapshot is one row of portfolio_snapshots.
type PortfolioSnapshot struct {
	SnapshotID     string          `db:"snapshot_id"`
	UserID         string          `db:"user_id"`
	SnapshotDate   time.Time       `db:"snapshot_date"`
	BaseCurrency   string          `db:"base_currency"`
	FxUsdToBase    decimal.Decimal `db:"fx_usd_to_base"`
	TotalValueUsd  decimal.Decimal `db:"total_value_usd"`
	TotalValueBase decimal.Decimal `db:"total_value_base"`
	AuditFields
}

// SnapshotItem is one row of portfolio_snapshot_items.
type SnapshotItem struct {
	SnapshotItemID string          `db:"snapshot_item_id"`
	SnapshotID     string          `db:"snapshot_id"`
	AccountID      string          `db:"account_id"`
	AssetID        string          `db:"asset_id"`
	Quantity       decimal.Decimal `db:"quantity"`
	PriceUsd       decimal.Decimal `db:"price_usd"`
	PriceBase      decimal.Decimal `db:"price_base"`
	ValueUsd       decimal.Decimal `db:"value_usd"`
	ValueBase      decimal.Decimal `db:"value_base"`
}
