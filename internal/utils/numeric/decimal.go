// Package numeric holds the decimal helpers used for all money math.
// Intermediate values keep full precision; rounding happens only at the
// serialization boundary.
package numeric

import (
	"github.com/shopspring/decimal"
)

const (
	// QuantityPlaces is the number of places kept for quantities, prices and values.
	QuantityPlaces int32 = 8
	// PercentPlaces is the number of places kept for percentages.
	PercentPlaces int32 = 2
)

var hundred = decimal.NewFromInt(100)

// RoundQuantity rounds quantities, prices and values for output.
func RoundQuantity(d decimal.Decimal) decimal.Decimal {
	return d.Round(QuantityPlaces)
}

// RoundPercent rounds a percentage for output.
func RoundPercent(d decimal.Decimal) decimal.Decimal {
	return d.Round(PercentPlaces)
}

// Percent returns value/total*100 rounded to 2 places, or zero when total is not positive.
func Percent(value, total decimal.Decimal) decimal.Decimal {
	if !total.IsPositive() {
		return decimal.Zero
	}
	return RoundPercent(value.Div(total).Mul(hundred))
}

// Inverse returns 1/d. ok is false when d is zero.
func Inverse(d decimal.Decimal) (decimal.Decimal, bool) {
	if d.IsZero() {
		return decimal.Zero, false
	}
	return decimal.NewFromInt(1).DivRound(d, 18), true
}

// Mean returns the arithmetic mean of values. ok is false for an empty slice.
func Mean(values []decimal.Decimal) (decimal.Decimal, bool) {
	if len(values) == 0 {
		return decimal.Zero, false
	}
	return decimal.Avg(values[0], values[1:]...), true
}

// Ptr returns a pointer to d.
func Ptr(d decimal.Decimal) *decimal.Decimal {
	return &d
}

// NegPtr negates an optional decimal, keeping nil as nil.
func NegPtr(d *decimal.Decimal) *decimal.Decimal {
	if d == nil {
		return nil
	}
	n := d.Neg()
	return &n
}
