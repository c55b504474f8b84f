// Package core holds the domain model for the finance tracker.
//
// Money is stored as integer cents everywhere; decimal parsing happens once
// at the boundary and the rest of the system works with int64 arithmetic.
package core

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmountToCents converts a decimal amount string to positive cents.
//
// Both dot (12.34) and comma (12,34) separators are accepted. Anything past
// the second decimal place is rounded half-up. Zero and negative amounts are
// rejected.
func ParseAmountToCents(s string) (int64, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", "."))
	if s == "" {
		return 0, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	if d.Sign() <= 0 {
		return 0, ErrInvalidAmount
	}
	cents := d.Shift(2).Round(0)
	bi := cents.BigInt()
	if !bi.IsInt64() {
		return 0, ErrInvalidAmount
	}
	v := bi.Int64()
	if v <= 0 {
		return 0, ErrInvalidAmount
	}
	return v, nil
}

// CentsFromFloat converts a float amount (as decoded from JSON numbers) to
// cents with half-up rounding via decimal to avoid float drift.
func CentsFromFloat(amount float64) (int64, error) {
	return ParseAmountToCents(strconv.FormatFloat(amount, 'f', -1, 64))
}

// String formats the amount as a plain decimal string, e.g. "12.34".
func (m Money) String() string {
	neg := m.Cents < 0
	c := m.Cents
	if neg {
		c = -c
	}
	s := fmt.Sprintf("%d.%02d", c/100, c%100)
	if neg {
		return "-" + s
	}
	return s
}

// Float64 returns the decimal value for JSON responses. Cents stay the unit
// for all arithmetic.
func (m Money) Float64() float64 {
	return float64(m.Cents) / 100.0
}
