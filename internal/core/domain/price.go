package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ProviderKind tags the capability of a price provider.
type ProviderKind string

const (
	ProviderStockFx ProviderKind = "stock_fx"
	ProviderCrypto  ProviderKind = "crypto"
)

// Quote is the normalized quote item produced by every provider.
type Quote struct {
	Symbol   string          `json:"symbol"`
	Close    decimal.Decimal `json:"close"`
	Currency string          `json:"currency"`
	Source   string          `json:"source"`
	AsOf     time.Time       `json:"asOf"`
}

// PricePoint is one persisted observation in the price history store.
type PricePoint struct {
	AssetID       string          `json:"assetID"`
	QuoteCurrency string          `json:"quoteCurrency"`
	Price         decimal.Decimal `json:"price"`
	Source        string          `json:"source"`
	Timestamp     time.Time       `json:"timestamp"`
}

// FxRate is a buy/sell quote for a currency pair from one source.
// Base/Quote follow "1 Base = rate Quote".
type FxRate struct {
	Base     string          `json:"base"`
	Quote    string          `json:"quote"`
	BuyRate  decimal.Decimal `json:"buyRate"`
	SellRate decimal.Decimal `json:"sellRate"`
	RateAt   time.Time       `json:"rateAt"`
	Source   string          `json:"source"`
}

// SamePair reports whether both rates describe the same currency pair.
func (r FxRate) SamePair(o FxRate) bool { return r.Base == o.Base && r.Quote == o.Quote }
