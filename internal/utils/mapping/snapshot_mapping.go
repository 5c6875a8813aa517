package mapping

import (
	"time"

	"github.com/SscSPs/portfolio_ledger/internal/core/domain"
	"github.com/SscSPs/portfolio_ledger/internal/models"
)

// ToModelSnapshot converts a snapshot header. Items are mapped separately.
// The snapshot date must already be a valid YYYY-MM-DD string.
func ToModelSnapshot(d domain.PortfolioSnapshot) (models.PortfolioSnapshot, error) {
	date, err := time.Parse(domain.DateLayout, d.SnapshotDate)
	if err != nil {
		return models.PortfolioSnapshot{}, err
	}
	return models.PortfolioSnapshot{
		SnapshotID:     d.SnapshotID,
		UserID:         d.UserID,
		SnapshotDate:   date,
		BaseCurrency:   d.BaseCurrency,
		FxUsdToBase:    d.FxUsdToBase,
		TotalValueUsd:  d.TotalValueUsd,
		TotalValueBase: d.TotalValueBase,
		AuditFields:    ToModelAuditFields(d.AuditFields),
	}, nil
}

// ToDomainSnapshot converts a snapshot header row.
func ToDomainSnapshot(m models.PortfolioSnapshot) domain.PortfolioSnapshot {
	return domain.PortfolioSnapshot{
		SnapshotID:     m.SnapshotID,
		UserID:         m.UserID,
		SnapshotDate:   m.SnapshotDate.Format(domain.DateLayout),
		BaseCurrency:   m.BaseCurrency,
		FxUsdToBase:    m.FxUsdToBase,
		TotalValueUsd:  m.TotalValueUsd,
		TotalValueBase: m.TotalValueBase,
		AuditFields:    ToDomainAuditFields(m.AuditFields),
	}
}

// ToModelSnapshotItem converts one snapshot line.
func ToModelSnapshotItem(d domain.SnapshotItem) models.SnapshotItem {
	return models.SnapshotItem{
		SnapshotItemID: d.SnapshotItemID,
		SnapshotID:     d.SnapshotID,
		AccountID:      d.AccountID,
		AssetID:        d.AssetID,
		Quantity:       d.Quantity,
		PriceUsd:       d.PriceUsd,
		PriceBase:      d.PriceBase,
		ValueUsd:       d.ValueUsd,
		ValueBase:      d.ValueBase,
	}
}

// ToDomainSnapshotItem converts one snapshot line row.
func ToDomainSnapshotItem(m models.SnapshotItem) domain.SnapshotItem {
	return domain.SnapshotItem{
		SnapshotItemID: m.SnapshotItemID,
		SnapshotID:     m.SnapshotID,
		AccountID:      m.AccountID,
		AssetID:        m.AssetID,
		Quantity:       m.Quantity,
		PriceUsd:       m.PriceUsd,
		PriceBase:      m.PriceBase,
		ValueUsd:       m.ValueUsd,
		ValueBase:      m.ValueBase,
	}
}
