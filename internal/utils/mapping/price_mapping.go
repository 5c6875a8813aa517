package mapping

import (
	"github.com/SscSPs/portfolio_ledger/internal/core/domain"
	"github.com/SscSPs/portfolio_ledger/internal/models"
)

// ToModelPricePoint converts a price observation to its row form.
func ToModelPricePoint(d domain.PricePoint) models.PricePoint {
	return models.PricePoint{
		AssetID:       d.AssetID,
		QuoteCurrency: d.QuoteCurrency,
		Price:         d.Price,
		Source:        d.Source,
		Timestamp:     d.Timestamp.UTC(),
	}
}

// ToDomainPricePoint converts a price_history row.
func ToDomainPricePoint(m models.PricePoint) domain.PricePoint {
	return domain.PricePoint{
		AssetID:       m.AssetID,
		QuoteCurrency: m.QuoteCurrency,
		Price:         m.Price,
		Source:        m.Source,
		Timestamp:     m.Timestamp.UTC(),
	}
}
