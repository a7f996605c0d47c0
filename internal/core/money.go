// Package core holds the domain types shared by every engine component.
//
// Money is stored as integer cents so that aggregation is exact: the sum of
// per-category buckets always equals the overall total. Conversion to a
// two-decimal display value happens only at the formatting edge.
package core

import (
	"github.com/shopspring/decimal"
)

// Money is a monetary amount in currency minor units.
type Money struct {
	Cents int64
}

var hundred = decimal.NewFromInt(100)

// MoneyFromString parses a decimal string ("12.34") into Money.
// Returns ErrInvalidAmount for malformed or non-positive input; this is the
// mutation-boundary parser, so nothing is coerced here.
func MoneyFromString(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	cents := d.Mul(hundred).Round(0).IntPart()
	if cents <= 0 {
		return Money{}, ErrInvalidAmount
	}
	return Money{Cents: cents}, nil
}

// MoneyFromFloat converts a raw numeric amount into Money with half-up
// rounding on the third decimal. Negative input is preserved; callers on the
// mutation path validate sign separately.
func MoneyFromFloat(f float64) Money {
	return Money{Cents: decimal.NewFromFloat(f).Mul(hundred).Round(0).IntPart()}
}

// Add returns m + o.
func (m Money) Add(o Money) Money { return Money{Cents: m.Cents + o.Cents} }

// Sub returns m - o.
func (m Money) Sub(o Money) Money { return Money{Cents: m.Cents - o.Cents} }

// IsZero reports whether the amount is exactly zero.
func (m Money) IsZero() bool { return m.Cents == 0 }

// Amount returns the display value as a float64. Use Cents for arithmetic.
func (m Money) Amount() float64 {
	return float64(m.Cents) / 100.0
}

// String formats the amount with exactly two decimals.
func (m Money) String() string {
	return decimal.NewFromInt(m.Cents).Div(hundred).StringFixed(2)
}
