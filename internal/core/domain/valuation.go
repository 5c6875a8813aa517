package domain

import "github.com/shopspring/decimal"

// HoldingValuation is one priced line of an account's holdings.
// Price and Value are nil when no price could be resolved.
type HoldingValuation struct {
	AccountID         string           `json:"accountID"`
	Asset             Asset            `json:"asset"`
	Quantity          decimal.Decimal  `json:"quantity"`
	Priced            bool             `json:"priced"`
	Price             *decimal.Decimal `json:"price"`
	Value             *decimal.Decimal `json:"value"`
	AllocationPercent decimal.Decimal  `json:"allocationPercent"`
}

// AccountHoldings is the valuation of one account in a quote currency.
type AccountHoldings struct {
	AccountID        string             `json:"accountID"`
	QuoteCurrency    string             `json:"quoteCurrency"`
	Items            []HoldingValuation `json:"items"`
	TotalValue       decimal.Decimal    `json:"totalValue"`
	UnpricedAssetIDs []string           `json:"unpricedAssetIDs"`
}

// AllocationSlice is the share of one bucket (asset type or platform) of a portfolio.
type AllocationSlice struct {
	Key               string          `json:"key"`
	Label             string          `json:"label"`
	Value             decimal.Decimal `json:"value"`
	AllocationPercent decimal.Decimal `json:"allocationPercent"`
}

// Allocation is a bucketed valuation of a whole portfolio.
type Allocation struct {
	QuoteCurrency    string            `json:"quoteCurrency"`
	Slices           []AllocationSlice `json:"slices"`
	TotalValue       decimal.Decimal   `json:"totalValue"`
	UnpricedAssetIDs []string          `json:"unpricedAssetIDs"`
}
