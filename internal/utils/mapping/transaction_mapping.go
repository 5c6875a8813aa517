package mapping

import (
	"github.com/SscSPs/portfolio_ledger/internal/core/domain"
	"github.com/SscSPs/portfolio_ledger/internal/models"
)

// ToModelTransaction converts a domain ledger row to its table form.
func ToModelTransaction(d domain.Transaction) models.Transaction {
	m := models.Transaction{
		TransactionID:   d.TransactionID,
		UserID:          d.UserID,
		AccountID:       d.AccountID,
		AssetID:         d.AssetID,
		TransactionType: string(d.TransactionType),
		ReferenceTxID:   d.ReferenceTxID,
		Quantity:        d.Quantity,
		PaymentAssetID:  d.PaymentAssetID,
		PaymentQuantity: d.PaymentQuantity,
		TotalAmount:     d.TotalAmount,
		ExchangeRate:    d.ExchangeRate,
		TransactionDate: d.TransactionDate.UTC(),
		CreatedAt:       d.CreatedAt.UTC(),
	}
	if d.CorrectionType != nil {
		ct := string(*d.CorrectionType)
		m.CorrectionType = &ct
	}
	if d.Notes != "" {
		notes := d.Notes
		m.Notes = &notes
	}
	return m
}

// ToDomainTransaction converts a table row to a domain ledger row.
func ToDomainTransaction(m models.Transaction) domain.Transaction {
	d := domain.Transaction{
		TransactionID:   m.TransactionID,
		UserID:          m.UserID,
		AccountID:       m.AccountID,
		AssetID:         m.AssetID,
		TransactionType: domain.TransactionType(m.TransactionType),
		ReferenceTxID:   m.ReferenceTxID,
		Quantity:        m.Quantity,
		PaymentAssetID:  m.PaymentAssetID,
		PaymentQuantity: m.PaymentQuantity,
		TotalAmount:     m.TotalAmount,
		ExchangeRate:    m.ExchangeRate,
		TransactionDate: m.TransactionDate.UTC(),
		CreatedAt:       m.CreatedAt.UTC(),
	}
	if m.CorrectionType != nil {
		ct := domain.CorrectionType(*m.CorrectionType)
		d.CorrectionType = &ct
	}
	if m.Notes != nil {
		d.Notes = *m.Notes
	}
	return d
}

// ToDomainTransactionSlice converts a slice of rows.
func ToDomainTransactionSlice(ms []models.Transaction) []domain.Transaction {
	ds := make([]domain.Transaction, len(ms))
	for i, m := range ms {
		ds[i] = ToDomainTransaction(m)
	}
	return ds
}
