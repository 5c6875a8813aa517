package mapping

import (
	"github.com/SscSPs/portfolio_ledger/internal/core/domain"
	"github.com/SscSPs/portfolio_ledger/internal/models"
)

// ToModelAuditFields converts domain audit fields to their row form.
func ToModelAuditFields(d domain.AuditFields) models.AuditFields {
	return models.AuditFields{CreatedAt: d.CreatedAt, UpdatedAt: d.UpdatedAt}
}

// ToDomainAuditFields converts row audit fields to their domain form.
func ToDomainAuditFields(m models.AuditFields) domain.AuditFields {
	return domain.AuditFields{CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt}
}
