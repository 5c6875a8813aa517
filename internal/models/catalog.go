package models

// Asset is one row of assets.
type Asset struct {
	AssetID   string `db:"asset_id"`
	Symbol    string `db:"symbol"`
	Name      string `db:"name"`
	AssetType string `db:"asset_type"`
}

// Account is a row of accounts joined with its platform.
type Account struct {
	AccountID    string  `db:"account_id"`
	UserID       string  `db:"user_id"`
	Name         string  `db:"name"`
	CurrencyCode *string `db:"currency_code"`
	PlatformID   string  `db:"platform_id"`
	PlatformName string  `db:"platform_name"`
	PlatformType string  `db:"platform_type"`
	AuditFields
}

// User is one row of users.
type User struct {
	UserID       string `db:"user_id"`
	Name         string `db:"name"`
	BaseCurrency string `db:"base_currency"`
	AuditFields
}
