package domain

import "github.com/shopspring/decimal"

// Holding is the derived quantity of one asset in one account. It is never
// persisted; it is the fold of every ledger row for the pair.
type Holding struct {
	AccountID string          `json:"accountID"`
	AssetID   string          `json:"assetID"`
	Quantity  decimal.Decimal `json:"quantity"`
}

// Key returns the "accountID:assetID" key of the holding.
func (h Holding) Key() string { return HoldingKey(h.AccountID, h.AssetID) }

// HoldingKey builds the balance map key for an (account, asset) pair.
func HoldingKey(accountID, assetID string) string { return accountID + ":" + assetID }

// BalanceDelta requests a pre-flight sufficiency check. Never persisted.
type BalanceDelta struct {
	AccountID string
	AssetID   string
	Delta     decimal.Decimal
}
