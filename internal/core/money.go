// Package core provides money parsing and handling utilities.
//
// Amounts are integer cents everywhere inside the module. Decimal values only
// appear at the presentation boundary (CLI output, configuration, exports)
// and are handled with shopspring/decimal so no float64 ever takes part in
// arithmetic on a stored amount.
package core

import (
	"math"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// CentsPerUnit is the fixed divisor between minor and major currency units.
const CentsPerUnit = 100

var (
	maxCents = decimal.NewFromInt(math.MaxInt64)
	minCents = decimal.NewFromInt(math.MinInt64)
)

// Cents is shorthand for Money{Cents: c}.
func Cents(c int64) Money {
	return Money{Cents: c}
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (m Money) Add(o Money) Money {
	return Money{Cents: m.Cents + o.Cents}
}

func (m Money) Sub(o Money) Money {
	return Money{Cents: m.Cents - o.Cents}
}

func (m Money) IsZero() bool {
	return m.Cents == 0
}

// Decimal returns the amount in major units, e.g. 1234 cents -> 12.34.
func (m Money) Decimal() decimal.Decimal {
	return CentsToDecimal(m.Cents)
}

// String renders the amount with exactly two decimals.
func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

// CentsToDecimal converts minor units to a decimal in major units.
func CentsToDecimal(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

// DecimalToCents converts a decimal in major units to cents. Digits past the
// second decimal place are rounded half to even.
func DecimalToCents(d decimal.Decimal) (int64, error) {
	scaled := d.Shift(2).RoundBank(0)
	if scaled.GreaterThan(maxCents) || scaled.LessThan(minCents) {
		return 0, Invalid("amount", "out of range")
	}
	return scaled.IntPart(), nil
}

// MoneyFromDecimal is DecimalToCents returning Money.
func MoneyFromDecimal(d decimal.Decimal) (Money, error) {
	c, err := DecimalToCents(d)
	if err != nil {
		return Money{}, err
	}
	return Money{Cents: c}, nil
}

// ParseDecimalToCents converts a user-typed decimal string to cents.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and rounds
// half-up on the third decimal place. Signs, exponents, zero and anything that
// is not a plain decimal number are rejected with ErrInvalidAmount.
//
// Examples:
//
//	ParseDecimalToCents("12.34") -> 1234, nil
//	ParseDecimalToCents("12,34") -> 1234, nil
//	ParseDecimalToCents("12.345") -> 1235, nil
//	ParseDecimalToCents("12.344") -> 1234, nil
func ParseDecimalToCents(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.Count(s, ".") > 1 {
		return 0, ErrInvalidAmount
	}
	for _, r := range s {
		if r != '.' && !unicode.IsDigit(r) {
			return 0, ErrInvalidAmount
		}
	}
	if strings.HasPrefix(s, ".") {
		s = "0" + s
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	// Round is half away from zero, which is half-up for positive input.
	scaled := d.Shift(2).Round(0)
	if scaled.GreaterThan(maxCents) {
		return 0, ErrInvalidAmount
	}
	cents := scaled.IntPart()
	if cents <= 0 {
		return 0, ErrInvalidAmount
	}
	return cents, nil
}

// Average divides total by count and rounds to the nearest cent, ties to
// even. Integer arithmetic only. A non-positive count yields zero.
func Average(total Money, count int64) Money {
	if count <= 0 {
		return Money{}
	}
	q := total.Cents / count
	r := total.Cents % count
	if r < 0 {
		r = -r
	}
	twice := 2 * r
	if twice > count || (twice == count && q%2 != 0) {
		if total.Cents < 0 {
			q--
		} else {
			q++
		}
	}
	return Money{Cents: q}
}

// Sum adds every amount of a per-category mapping.
func Sum(byCategory map[string]Money) Money {
	var total Money
	for _, m := range byCategory {
		total = total.Add(m)
	}
	return total
}
