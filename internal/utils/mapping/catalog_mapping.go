package mapping

import (
	"github.com/SscSPs/portfolio_ledger/internal/core/domain"
	"github.com/SscSPs/portfolio_ledger/internal/models"
)

// ToDomainAsset converts an asset row.
func ToDomainAsset(m models.Asset) domain.Asset {
	return domain.Asset{
		AssetID:   m.AssetID,
		Symbol:    m.Symbol,
		Name:      m.Name,
		AssetType: domain.AssetType(m.AssetType),
	}
}

// ToDomainAccount converts an account row joined with its platform.
func ToDomainAccount(m models.Account) domain.Account {
	d := domain.Account{
		AccountID: m.AccountID,
		UserID:    m.UserID,
		Name:      m.Name,
		Platform: domain.Platform{
			PlatformID: m.PlatformID,
			Name:       m.PlatformName,
			Type:       domain.PlatformType(m.PlatformType),
		},
		AuditFields: ToDomainAuditFields(m.AuditFields),
	}
	if m.CurrencyCode != nil {
		d.CurrencyCode = *m.CurrencyCode
	}
	return d
}

// ToDomainUser converts a user row.
func ToDomainUser(m models.User) domain.User {
	return domain.User{
		UserID:       m.UserID,
		Name:         m.Name,
		BaseCurrency: m.BaseCurrency,
		AuditFields:  ToDomainAuditFields(m.AuditFields),
	}
}
