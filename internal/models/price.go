package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PricePoint is one row of price_history.
type PricePoint struct {
	AssetID       string          `db:"asset_id"`
	QuoteCurrency string          `db:"quote_currency"`
	Price         decimal.Decimal `db:"price"`
	Source        string          `db:"source"`
	Timestamp     time.Time       `db:"price_at"`
}
