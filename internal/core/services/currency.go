package services

import (
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/SscSPs/portfolio_ledger/internal/apperrors"
)

// USD is the pivot currency of every valuation.
const USD = "USD"

// NormalizeCurrency upper-cases code and checks it against the ISO 4217 table.
func NormalizeCurrency(field, code string) (string, error) {
	c := strings.ToUpper(strings.TrimSpace(code))
	if c == "" {
		return "", apperrors.NewValidationError(field, "required")
	}
	if money.GetCurrency(c) == nil {
		return "", apperrors.NewValidationError(field, "unknown currency "+c)
	}
	return c, nil
}

// IsISOCurrency reports whether code is a known ISO 4217 currency.
func IsISOCurrency(code string) bool {
	return money.GetCurrency(strings.ToUpper(code)) != nil
}
