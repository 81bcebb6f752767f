// Package core provides the transaction domain model and input parsing.
//
// This file contains the Money type: a decimal amount that is always carried
// and rendered with exactly two fractional digits.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Money is a monetary amount rounded to cents.
type Money struct {
	decimal.Decimal
}

// NewMoney rounds d half away from zero to two fractional digits.
func NewMoney(d decimal.Decimal) Money {
	return Money{Decimal: d.Round(2)}
}

// ParseAmount parses user input into a positive Money.
//
// It accepts dot (12.34) and comma (12,34) decimal separators and exponent
// notation, ignores surrounding whitespace and rounds to two decimals.
//
// Examples:
//
//	ParseAmount("12.34")  -> 12.34
//	ParseAmount("12,5")   -> 12.50
//	ParseAmount("12.345") -> 12.35
//	ParseAmount("-1")     -> ErrInvalidAmount
func ParseAmount(s string) (Money, error) {
	m, err := ParseStoredAmount(s)
	if err != nil {
		return Money{}, err
	}
	if err := m.Validate(); err != nil {
		return Money{}, err
	}
	return m, nil
}

// ParseStoredAmount parses an amount read back from a backing store. Unlike
// ParseAmount it does not require the value to be positive.
func ParseStoredAmount(s string) (Money, error) {
	d, err := parseDecimal(s)
	if err != nil {
		return Money{}, err
	}
	return NewMoney(d), nil
}

// ParseLookupAmount parses an amount used to identify existing records. Any
// sign is allowed, but the value must already be exact in cents: "50",
// "50.0" and "50,00" are accepted, "50.004" is not.
func ParseLookupAmount(s string) (Money, error) {
	d, err := parseDecimal(s)
	if err != nil {
		return Money{}, err
	}
	if !d.Equal(d.Round(2)) {
		return Money{}, ErrInvalidAmount
	}
	return NewMoney(d), nil
}

func parseDecimal(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Decimal{}, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(s, ",", "."))
	if err != nil {
		return decimal.Decimal{}, ErrInvalidAmount
	}
	return d, nil
}

// Validate reports ErrInvalidAmount unless m is positive.
func (m Money) Validate() error {
	if !m.IsPositive() {
		return ErrInvalidAmount
	}
	return nil
}

// String renders the amount with exactly two fractional digits.
func (m Money) String() string {
	return m.StringFixed(2)
}

func (m Money) Add(o Money) Money {
	return Money{Decimal: m.Decimal.Add(o.Decimal)}
}

func (m Money) Sub(o Money) Money {
	return Money{Decimal: m.Decimal.Sub(o.Decimal)}
}

// Cmp compares numerically: -1, 0 or +1.
func (m Money) Cmp(o Money) int {
	return m.Decimal.Cmp(o.Decimal)
}
