package domain

// User represents a user of the application in the domain.
type User struct {
	UserID       string `json:"userID"`
	Name         string `json:"name"`
	BaseCurrency string `json:"baseCurrency"` // valuation currency, ISO code
	AuditFields
}
