package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType is the business meaning of a ledger row.
type TransactionType string

const (
	Buy             TransactionType = "BUY"
	Sell            TransactionType = "SELL"
	Deposit         TransactionType = "DEPOSIT"
	Withdraw        TransactionType = "WITHDRAW"
	TransferIn      TransactionType = "TRANSFER_IN"
	TransferOut     TransactionType = "TRANSFER_OUT"
	Interest        TransactionType = "INTEREST"
	Reward          TransactionType = "REWARD"
	Dividend        TransactionType = "DIVIDEND"
	ForeignExchange TransactionType = "FOREIGN_EXCHANGE"
	Fee             TransactionType = "FEE"
	Adjustment      TransactionType = "ADJUSTMENT"
)

// IsValid reports whether t is a known transaction type.
func (t TransactionType) IsValid() bool {
	switch t {
	case Buy, Sell, Deposit, Withdraw, TransferIn, TransferOut, Interest, Reward, Dividend, ForeignExchange, Fee, Adjustment:
		return true
	}
	return false
}

// conventionalSign maps a transaction type to the sign of its effect on holdings.
// Types without an entry pass their stored quantity through unchanged.
var conventionalSign = map[TransactionType]int{
	Buy:         1,
	Deposit:     1,
	TransferIn:  1,
	Interest:    1,
	Reward:      1,
	Dividend:    1,
	Sell:        -1,
	Withdraw:    -1,
	TransferOut: -1,
	Fee:         -1,
}

// ConventionalSign returns the conventional sign for t and whether t has one.
func ConventionalSign(t TransactionType) (int, bool) {
	s, ok := conventionalSign[t]
	return s, ok
}

// CorrectionType marks a row as a correction of an earlier row.
type CorrectionType string

const (
	CorrectionReverse CorrectionType = "REVERSE"
	CorrectionAdjust  CorrectionType = "ADJUST"
)

// Transaction is an append-only ledger row. Rows are never updated or deleted;
// corrections are new rows referencing the original through ReferenceTxID.
type Transaction struct {
	TransactionID   string           `json:"transactionID"`
	UserID          string           `json:"userID"`
	AccountID       string           `json:"accountID"`
	AssetID         string           `json:"assetID"`
	TransactionType TransactionType  `json:"transactionType"`
	CorrectionType  *CorrectionType  `json:"correctionType,omitempty"`
	ReferenceTxID   *string          `json:"referenceTxID,omitempty"`
	Quantity        decimal.Decimal  `json:"quantity"`
	PaymentAssetID  *string          `json:"paymentAssetID,omitempty"`
	PaymentQuantity *decimal.Decimal `json:"paymentQuantity,omitempty"`
	TotalAmount     decimal.Decimal  `json:"totalAmount"`
	ExchangeRate    *decimal.Decimal `json:"exchangeRate,omitempty"`
	TransactionDate time.Time        `json:"transactionDate"`
	Notes           string           `json:"notes"`
	CreatedAt       time.Time        `json:"createdAt"`
}

// IsCorrection reports whether the row is a REVERSE or ADJUST row.
func (t Transaction) IsCorrection() bool { return t.CorrectionType != nil }

// IsCorrectionOf reports whether the row is a correction of the given kind.
func (t Transaction) IsCorrectionOf(kind CorrectionType) bool {
	return t.CorrectionType != nil && *t.CorrectionType == kind
}

// References reports whether the row points at txID.
func (t Transaction) References(txID string) bool {
	return t.ReferenceTxID != nil && *t.ReferenceTxID == txID
}

// TransactionFilter narrows ledger queries. Zero values mean "no filter";
// Limit <= 0 returns every matching row.
type TransactionFilter struct {
	AccountID string
	AssetID   string
	Types     []TransactionType
	From      *time.Time
	To        *time.Time
	Limit     int
	NextToken *string
}
