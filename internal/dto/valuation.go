package dto

import (
	"github.com/SscSPs/portfolio_ledger/internal/core/domain"
	"github.com/SscSPs/portfolio_ledger/internal/utils/numeric"
	"github.com/shopspring/decimal"
)

// HoldingResponse is one derived (account, asset) quantity.
type HoldingResponse struct {
	AccountID string          `json:"accountID"`
	AssetID   string          `json:"assetID"`
	Quantity  decimal.Decimal `json:"quantity"`
}

// HoldingValuationResponse is one priced line of an account.
type HoldingValuationResponse struct {
	AssetID           string           `json:"assetID"`
	Symbol            string           `json:"symbol"`
	Name              string           `json:"name"`
	AssetType         string           `json:"assetType"`
	Quantity          decimal.Decimal  `json:"quantity"`
	Priced            bool             `json:"priced"`
	Price             *decimal.Decimal `json:"price"`
	Value             *decimal.Decimal `json:"value"`
	AllocationPercent decimal.Decimal  `json:"allocationPercent"`
}

// AccountHoldingsResponse is the valuation of one account.
type AccountHoldingsResponse struct {
	AccountID        string                     `json:"accountID"`
	QuoteCurrency    string                     `json:"quoteCurrency"`
	Items            []HoldingValuationResponse `json:"items"`
	TotalValue       decimal.Decimal            `json:"totalValue"`
	UnpricedAssetIDs []string                   `json:"unpricedAssetIDs"`
}

// AllocationSliceResponse is one bucket of an allocation.
type AllocationSliceResponse struct {
	Key               string          `json:"key"`
	Label             string          `json:"label"`
	Value             decimal.Decimal `json:"value"`
	AllocationPercent decimal.Decimal `json:"allocationPercent"`
}

// AllocationResponse is a bucketed valuation of the whole portfolio.
type AllocationResponse struct {
	QuoteCurrency    string                    `json:"quoteCurrency"`
	Slices           []AllocationSliceResponse `json:"slices"`
	TotalValue       decimal.Decimal           `json:"totalValue"`
	UnpricedAssetIDs []string                  `json:"unpricedAssetIDs"`
}

// PriceResponse is the current price of one asset.
type PriceResponse struct {
	AssetID       string          `json:"assetID"`
	QuoteCurrency string          `json:"quoteCurrency"`
	Price         decimal.Decimal `json:"price"`
}

// ToHoldingResponses converts derived holdings.
func ToHoldingResponses(holdings []domain.Holding) []HoldingResponse {
	out := make([]HoldingResponse, len(holdings))
	for i, h := range holdings {
		out[i] = HoldingResponse{AccountID: h.AccountID, AssetID: h.AssetID, Quantity: numeric.RoundQuantity(h.Quantity)}
	}
	return out
}

// ToAccountHoldingsResponse converts an account valuation.
func ToAccountHoldingsResponse(v *domain.AccountHoldings) AccountHoldingsResponse {
	items := make([]HoldingValuationResponse, len(v.Items))
	for i, it := range v.Items {
		item := HoldingValuationResponse{
			AssetID:           it.Asset.AssetID,
			Symbol:            it.Asset.Symbol,
			Name:              it.Asset.Name,
			AssetType:         string(it.Asset.AssetType),
			Quantity:          numeric.RoundQuantity(it.Quantity),
			Priced:            it.Priced,
			AllocationPercent: numeric.RoundPercent(it.AllocationPercent),
		}
		if it.Price != nil {
			item.Price = numeric.Ptr(numeric.RoundQuantity(*it.Price))
		}
		if it.Value != nil {
			item.Value = numeric.Ptr(numeric.RoundQuantity(*it.Value))
		}
		items[i] = item
	}
	return AccountHoldingsResponse{
		AccountID:        v.AccountID,
		QuoteCurrency:    v.QuoteCurrency,
		Items:            items,
		TotalValue:       numeric.RoundQuantity(v.TotalValue),
		UnpricedAssetIDs: nonNil(v.UnpricedAssetIDs),
	}
}

// ToAllocationResponse converts an allocation.
func ToAllocationResponse(a *domain.Allocation) AllocationResponse {
	slices := make([]AllocationSliceResponse, len(a.Slices))
	for i, s := range a.Slices {
		slices[i] = AllocationSliceResponse{
			Key:               s.Key,
			Label:             s.Label,
			Value:             numeric.RoundQuantity(s.Value),
			AllocationPercent: numeric.RoundPercent(s.AllocationPercent),
		}
	}
	return AllocationResponse{
		QuoteCurrency:    a.QuoteCurrency,
		Slices:           slices,
		TotalValue:       numeric.RoundQuantity(a.TotalValue),
		UnpricedAssetIDs: nonNil(a.UnpricedAssetIDs),
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
