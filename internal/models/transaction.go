package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is one row of the transactions table. Optional columns are pointers.
type Transaction struct {
	TransactionID   string           `db:"transaction_id"`
	UserID          string           `db:"user_id"`
	AccountID       string           `db:"account_id"`
	AssetID         string           `db:"asset_id"`
	TransactionType string           `db:"transaction_type"`
	CorrectionType  *string          `db:"correction_type"`
	ReferenceTxID   *string          `db:"reference_tx_id"`
	Quantity        decimal.Decimal  `db:"quantity"`
	PaymentAssetID  *string          `db:"payment_asset_id"`
	PaymentQuantity *decimal.Decimal `db:"payment_quantity"`
	TotalAmount     decimal.Decimal  `db:"total_amount"`
	ExchangeRate    *decimal.Decimal `db:"exchange_rate"`
	TransactionDate time.Time        `db:"transaction_date"`
	Notes           *string          `db:"notes"`
	CreatedAt       time.Time        `db:"created_at"`
}
