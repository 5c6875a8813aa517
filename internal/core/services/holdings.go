package services

import (
	"sort"

	"github.com/SscSPs/portfolio_ledger/internal/apperrors"
	"github.com/SscSPs/portfolio_ledger/internal/core/domain"
	"github.com/shopspring/decimal"
)

// NormalizedQuantity returns the signed effect of a ledger row on its holding.
//
// Corrections carry explicit signed deltas and are used verbatim. Other rows
// take the conventional sign of their type, except that a quantity stored
// already negative is trusted as-is. Types without a conventional sign pass
// through unchanged.
func NormalizedQuantity(txn domain.Transaction) decimal.Decimal {
	q := txn.Quantity
	if q.IsZero() {
		return decimal.Zero
	}
	if txn.IsCorrection() {
		return q
	}
	sign, ok := domain.ConventionalSign(txn.TransactionType)
	if !ok || q.IsNegative() {
		return q
	}
	if sign < 0 {
		return q.Neg()
	}
	return q
}

// FoldHoldings sums the ledger per (account, asset). Pairs netting to exactly
// zero are dropped; the result is sorted by account then asset.
func FoldHoldings(txns []domain.Transaction) []domain.Holding {
	sums := make(map[string]*domain.Holding)
	for _, txn := range txns {
		q := NormalizedQuantity(txn)
		if q.IsZero() {
			continue
		}
		key := domain.HoldingKey(txn.AccountID, txn.AssetID)
		h, ok := sums[key]
		if !ok {
			h = &domain.Holding{AccountID: txn.AccountID, AssetID: txn.AssetID, Quantity: decimal.Zero}
			sums[key] = h
		}
		h.Quantity = h.Quantity.Add(q)
	}

	holdings := make([]domain.Holding, 0, len(sums))
	for _, h := range sums {
		if h.Quantity.IsZero() {
			continue
		}
		holdings = append(holdings, *h)
	}
	sort.Slice(holdings, func(i, j int) bool {
		if holdings[i].AccountID != holdings[j].AccountID {
			return holdings[i].AccountID < holdings[j].AccountID
		}
		return holdings[i].AssetID < holdings[j].AssetID
	})
	return holdings
}

// CheckBalance applies the negative deltas cumulatively to the holdings and
// fails on the first one that drives a balance below zero. Positive deltas are
// ignored.
func CheckBalance(holdings []domain.Holding, deltas []domain.BalanceDelta) error {
	balances := make(map[string]decimal.Decimal, len(holdings))
	for _, h := range holdings {
		balances[h.Key()] = h.Quantity
	}
	for _, d := range deltas {
		if !d.Delta.IsNegative() {
			continue
		}
		key := domain.HoldingKey(d.AccountID, d.AssetID)
		available := balances[key]
		next := available.Add(d.Delta)
		if next.IsNegative() {
			return &apperrors.InsufficientFundsError{
				AccountID: d.AccountID,
				AssetID:   d.AssetID,
				Available: available,
				Requested: d.Delta.Neg(),
			}
		}
		balances[key] = next
	}
	return nil
}

// negativeDelta returns a one-element delta slice when q is negative.
func negativeDelta(accountID, assetID string, q decimal.Decimal) []domain.BalanceDelta {
	if !q.IsNegative() {
		return nil
	}
	return []domain.BalanceDelta{{AccountID: accountID, AssetID: assetID, Delta: q}}
}
