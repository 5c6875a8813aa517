package dto

import (
	"time"

	"github.com/SscSPs/portfolio_ledger/internal/core/domain"
	"github.com/SscSPs/portfolio_ledger/internal/utils/numeric"
	"github.com/shopspring/decimal"
)

// CreateTransactionRequest creates one ledger row, plus a FEE row when FeeQuantity is set.
// Quantity is given as a positive amount; the stored sign follows the transaction type.
type CreateTransactionRequest struct {
	AccountID       string                 `json:"accountID" validate:"required"`
	AssetID         string                 `json:"assetID" validate:"required"`
	TransactionType domain.TransactionType `json:"transactionType" validate:"required"`
	Quantity        decimal.Decimal        `json:"quantity"`
	PaymentAssetID  *string                `json:"paymentAssetID,omitempty" validate:"omitempty,min=1"`
	PaymentQuantity *decimal.Decimal       `json:"paymentQuantity,omitempty"`
	ExchangeRate    *decimal.Decimal       `json:"exchangeRate,omitempty"`
	FeeQuantity     *decimal.Decimal       `json:"feeQuantity,omitempty"`
	FeeAssetID      *string                `json:"feeAssetID,omitempty" validate:"omitempty,min=1"`
	TransactionDate int64                  `json:"transactionDate" validate:"required,gt=0"` // unix ms
	Notes           string                 `json:"notes" validate:"max=1000"`
}

// AdjustTransactionRequest declares the new authoritative values for a ledger line.
// Quantity is signed.
type AdjustTransactionRequest struct {
	Quantity        decimal.Decimal  `json:"quantity"`
	PaymentQuantity *decimal.Decimal `json:"paymentQuantity,omitempty"`
	ExchangeRate    *decimal.Decimal `json:"exchangeRate,omitempty"`
	TransactionDate *int64           `json:"transactionDate,omitempty" validate:"omitempty,gt=0"`
	Notes           string           `json:"notes" validate:"max=1000"`
}

// TransferRequest moves one asset between two of the user's accounts.
type TransferRequest struct {
	FromAccountID   string           `json:"fromAccountID" validate:"required"`
	ToAccountID     string           `json:"toAccountID" validate:"required,nefield=FromAccountID"`
	AssetID         string           `json:"assetID" validate:"required"`
	Quantity        decimal.Decimal  `json:"quantity"`
	FeeQuantity     *decimal.Decimal `json:"feeQuantity,omitempty"`
	TransactionDate int64            `json:"transactionDate" validate:"required,gt=0"`
	Notes           string           `json:"notes" validate:"max=1000"`
}

// ExchangeRequest converts FromAsset into ToAsset. ToAccountID defaults to FromAccountID.
type ExchangeRequest struct {
	FromAccountID   string           `json:"fromAccountID" validate:"required"`
	ToAccountID     string           `json:"toAccountID,omitempty"`
	FromAssetID     string           `json:"fromAssetID" validate:"required"`
	ToAssetID       string           `json:"toAssetID" validate:"required"`
	FromQuantity    decimal.Decimal  `json:"fromQuantity"`
	ToQuantity      decimal.Decimal  `json:"toQuantity"`
	FeeQuantity     *decimal.Decimal `json:"feeQuantity,omitempty"`
	FeeAssetID      *string          `json:"feeAssetID,omitempty" validate:"omitempty,min=1"`
	ExchangeRate    *decimal.Decimal `json:"exchangeRate,omitempty"`
	TransactionDate int64            `json:"transactionDate" validate:"required,gt=0"`
	Notes           string           `json:"notes" validate:"max=1000"`
}

// MoveRequest routes to a transfer, an exchange, or an exchange followed by a transfer.
// ToAssetID defaults to FromAssetID; ToQuantity is required when the assets differ.
type MoveRequest struct {
	FromAccountID   string           `json:"fromAccountID" validate:"required"`
	ToAccountID     string           `json:"toAccountID" validate:"required"`
	FromAssetID     string           `json:"fromAssetID" validate:"required"`
	ToAssetID       string           `json:"toAssetID,omitempty"`
	FromQuantity    decimal.Decimal  `json:"fromQuantity"`
	ToQuantity      *decimal.Decimal `json:"toQuantity,omitempty"`
	FeeQuantity     *decimal.Decimal `json:"feeQuantity,omitempty"`
	ExchangeRate    *decimal.Decimal `json:"exchangeRate,omitempty"`
	TransactionDate int64            `json:"transactionDate" validate:"required,gt=0"`
	Notes           string           `json:"notes" validate:"max=1000"`
}

// ListTransactionsParams holds the query parameters for listing ledger rows.
type ListTransactionsParams struct {
	AccountID string   `form:"accountID"`
	AssetID   string   `form:"assetID"`
	Types     []string `form:"type" validate:"omitempty,dive,required"`
	From      *int64   `form:"from" validate:"omitempty,gt=0"` // unix ms, inclusive
	To        *int64   `form:"to" validate:"omitempty,gt=0"`   // unix ms, inclusive
	Limit     int      `form:"limit" validate:"omitempty,min=1,max=500"`
	NextToken *string  `form:"nextToken"`
}

// TransactionResponse is the externalized ledger row. Decimals are rounded to 8 places.
type TransactionResponse struct {
	TransactionID   string           `json:"transactionID"`
	AccountID       string           `json:"accountID"`
	AssetID         string           `json:"assetID"`
	TransactionType string           `json:"transactionType"`
	CorrectionType  *string          `json:"correctionType"`
	ReferenceTxID   *string          `json:"referenceTxID"`
	Quantity        decimal.Decimal  `json:"quantity"`
	PaymentAssetID  *string          `json:"paymentAssetID"`
	PaymentQuantity *decimal.Decimal `json:"paymentQuantity"`
	TotalAmount     decimal.Decimal  `json:"totalAmount"`
	ExchangeRate    *decimal.Decimal `json:"exchangeRate"`
	TransactionDate int64            `json:"transactionDate"`
	Notes           string           `json:"notes"`
	CreatedAt       time.Time        `json:"createdAt"`
}

// ListTransactionsResponse is a page of ledger rows.
type ListTransactionsResponse struct {
	Transactions []TransactionResponse `json:"transactions"`
	NextToken    *string               `json:"nextToken,omitempty"`
}

// ToTransactionResponse converts a domain.Transaction to its DTO.
func ToTransactionResponse(txn *domain.Transaction) TransactionResponse {
	resp := TransactionResponse{
		TransactionID:   txn.TransactionID,
		AccountID:       txn.AccountID,
		AssetID:         txn.AssetID,
		TransactionType: string(txn.TransactionType),
		ReferenceTxID:   txn.ReferenceTxID,
		Quantity:        numeric.RoundQuantity(txn.Quantity),
		PaymentAssetID:  txn.PaymentAssetID,
		TotalAmount:     numeric.RoundQuantity(txn.TotalAmount),
		TransactionDate: txn.TransactionDate.UnixMilli(),
		Notes:           txn.Notes,
		CreatedAt:       txn.CreatedAt,
	}
	if txn.CorrectionType != nil {
		ct := string(*txn.CorrectionType)
		resp.CorrectionType = &ct
	}
	if txn.PaymentQuantity != nil {
		resp.PaymentQuantity = numeric.Ptr(numeric.RoundQuantity(*txn.PaymentQuantity))
	}
	if txn.ExchangeRate != nil {
		resp.ExchangeRate = numeric.Ptr(numeric.RoundQuantity(*txn.ExchangeRate))
	}
	return resp
}

// ToTransactionResponses converts a slice of domain.Transaction.
func ToTransactionResponses(txns []domain.Transaction) []TransactionResponse {
	responses := make([]TransactionResponse, len(txns))
	for i := range txns {
		responses[i] = ToTransactionResponse(&txns[i])
	}
	return responses
}
