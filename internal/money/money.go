// Package money holds the fixed-point amount rules shared by balances and transfers.
package money

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Scale is the number of fractional digits an amount may carry.
const Scale int32 = 2

var (
	// ErrNotPositive is returned for zero or negative transfer amounts.
	ErrNotPositive = errors.New("amount must be greater than zero")
	// ErrTooPrecise is returned when an amount has more fractional digits than Scale.
	ErrTooPrecise = errors.New("amount has too many fractional digits")
	// ErrNegative is returned for negative balances.
	ErrNegative = errors.New("amount must not be negative")
)

// Parse reads a decimal amount such as "300" or "12.50". It does not apply
// the positivity rule; use ValidateTransfer for that.
func Parse(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("parse amount: empty value")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse amount %q: %w", s, err)
	}
	if !Representable(d) {
		return decimal.Zero, ErrTooPrecise
	}
	return d, nil
}

// Representable reports whether d fits the currency precision.
func Representable(d decimal.Decimal) bool {
	return d.Equal(d.Truncate(Scale))
}

// ValidateTransfer checks that amount can be moved between accounts.
func ValidateTransfer(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrNotPositive
	}
	if !Representable(amount) {
		return ErrTooPrecise
	}
	return nil
}

// ValidateBalance checks an opening or seeded balance.
func ValidateBalance(balance decimal.Decimal) error {
	if balance.IsNegative() {
		return ErrNegative
	}
	if !Representable(balance) {
		return ErrTooPrecise
	}
	return nil
}

// Format renders d with exactly Scale fractional digits.
func Format(d decimal.Decimal) string {
	return d.StringFixed(Scale)
}
