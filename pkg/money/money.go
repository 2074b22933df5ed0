// Package money holds currency arithmetic in integer minor units.
//
// Amounts never pass through floating point. Percentages are decimals so that
// slabs such as 12.5% stay exact until the final rounding step.
package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Amount is a currency value in minor units (paise, cents).
type Amount int64

var hundred = decimal.NewFromInt(100)

// Percentage is a waiver or discount percentage in the range [0, 100].
type Percentage struct {
	decimal.Decimal
}

// NewPercentage parses a percentage such as "20" or "12.5".
func NewPercentage(raw string) (Percentage, error) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return Percentage{}, fmt.Errorf("parse percentage %q: %w", raw, err)
	}
	p := Percentage{d}
	if err := p.Validate(); err != nil {
		return Percentage{}, err
	}
	return p, nil
}

// MustPercentage parses a percentage and panics on malformed input. Test and
// fixture helper only.
func MustPercentage(raw string) Percentage {
	p, err := NewPercentage(raw)
	if err != nil {
		panic(err)
	}
	return p
}

// PercentageFromInt builds a whole-number percentage.
func PercentageFromInt(v int64) Percentage {
	return Percentage{decimal.NewFromInt(v)}
}

// Validate ensures the percentage lies in [0, 100].
func (p Percentage) Validate() error {
	if p.IsNegative() || p.GreaterThan(hundred) {
		return fmt.Errorf("percentage %s out of range [0, 100]", p.String())
	}
	if !p.Equal(p.Round(2)) {
		return fmt.Errorf("percentage %s has more than two decimal places", p.String())
	}
	return nil
}

// Of returns round-half-up(base * p / 100) in minor units.
func (p Percentage) Of(base Amount) Amount {
	if p.IsZero() || base == 0 {
		return 0
	}
	v := decimal.NewFromInt(int64(base)).Mul(p.Decimal).Div(hundred)
	return Amount(roundHalfUp(v).IntPart())
}

// roundHalfUp rounds to the nearest integer with ties going up. decimal.Round
// ties away from zero, which matches for the non-negative values used here;
// negatives are handled explicitly so refunds round the same way.
func roundHalfUp(v decimal.Decimal) decimal.Decimal {
	if v.IsNegative() {
		return v.Add(decimal.NewFromFloat(0.5)).Floor()
	}
	return v.Round(0)
}

// Format renders an amount with two decimals and a currency code. Locale
// grouping is left to clients.
func Format(a Amount, currency string) string {
	sign := ""
	v := int64(a)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%s %d.%02d", sign, currency, v/100, v%100)
}
