package domain

// PlatformType classifies the institution holding an account.
type PlatformType string

const (
	PlatformBank     PlatformType = "bank"
	PlatformExchange PlatformType = "exchange"
	PlatformBroker   PlatformType = "broker"
	PlatformWallet   PlatformType = "wallet"
)

// Platform is a financial institution (bank, exchange, broker).
type Platform struct {
	PlatformID string       `json:"platformID"`
	Name       string       `json:"name"`
	Type       PlatformType `json:"type"`
}

// Account is a user's account on a platform.
// Bank accounts are constrained to the single fiat currency in CurrencyCode.
type Account struct {
	AccountID    string   `json:"accountID"`
	UserID       string   `json:"userID"`
	Name         string   `json:"name"`
	CurrencyCode string   `json:"currencyCode"`
	Platform     Platform `json:"platform"`
	AuditFields
}

// IsBank reports whether the account lives on a bank platform.
func (a Account) IsBank() bool { return a.Platform.Type == PlatformBank }

// AllowsAsset reports whether the asset may be booked on this account.
func (a Account) AllowsAsset(asset Asset) bool {
	if !a.IsBank() {
		return true
	}
	return asset.IsFiat() && asset.Symbol == a.CurrencyCode
}
