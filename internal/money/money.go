// Package money converts between decimal text and the int64 cent amounts
// stored in the ledger, and computes rounded percentages over them.
package money

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	// ErrInvalidAmount is returned for text that is not a decimal number.
	ErrInvalidAmount = errors.New("invalid amount")
	// ErrNotPositive is returned for zero or negative amounts.
	ErrNotPositive = errors.New("amount must be positive")
	// ErrTooPrecise is returned for amounts with more than two fraction digits.
	ErrTooPrecise = errors.New("amount has more than 2 decimal places")
)

var hundred = decimal.NewFromInt(100)

// ParseAmount parses a positive decimal amount such as "12.50" or "12,50"
// into cents.
func ParseAmount(s string) (int64, error) {
	text := strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	if text == "" {
		return 0, fmt.Errorf("%w %q", ErrInvalidAmount, s)
	}

	d, err := decimal.NewFromString(text)
	if err != nil {
		return 0, fmt.Errorf("%w %q", ErrInvalidAmount, s)
	}
	if !d.IsPositive() {
		return 0, fmt.Errorf("%w: %q", ErrNotPositive, s)
	}
	if !d.Equal(d.Round(2)) {
		return 0, fmt.Errorf("%w: %q", ErrTooPrecise, s)
	}

	cents := d.Mul(hundred)
	if !cents.IsInteger() || cents.GreaterThan(decimal.NewFromInt(1<<62)) {
		return 0, fmt.Errorf("%w %q", ErrInvalidAmount, s)
	}
	return cents.IntPart(), nil
}

// Format renders cents as a decimal string with two fraction digits.
func Format(cents int64) string {
	return decimal.New(cents, -2).StringFixed(2)
}

// Percent returns part/whole*100 rounded to two decimals.
// A zero or negative whole yields 0.
func Percent(part, whole int64) float64 {
	if whole <= 0 {
		return 0
	}
	return decimal.NewFromInt(part).
		Mul(hundred).
		DivRound(decimal.NewFromInt(whole), 8).
		Round(2).
		InexactFloat64()
}

// SavingsRate returns (income-expense)/income*100 rounded to two decimals,
// or 0 when there is no income.
func SavingsRate(income, expense int64) float64 {
	return Percent(income-expense, income)
}
