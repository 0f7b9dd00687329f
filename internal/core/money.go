// Package core holds the ledger domain types and amount parsing.
//
// This file contains functions for parsing monetary amounts and savings
// percentages from user input into exact decimals.
package core

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// ParseAmount converts a user supplied decimal string into an exact amount.
//
// Both dot (12.34) and comma (12,34) separators are accepted. No rounding is
// applied: the full precision of the input is preserved. Signs, exponents,
// thousands separators and empty input are rejected with ErrInvalidAmount,
// so the result is always >= 0.
//
// Examples:
//
//	ParseAmount("12.34")  -> 12.34, nil
//	ParseAmount("12,345") -> 12.345, nil
//	ParseAmount(".5")     -> 0.5, nil
//	ParseAmount("-1")     -> 0, ErrInvalidAmount
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	// Normalize decimal comma to dot
	s = strings.ReplaceAll(s, ",", ".")

	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return decimal.Zero, ErrInvalidAmount
	}
	digits := 0
	for _, p := range parts {
		for _, r := range p {
			if !unicode.IsDigit(r) {
				return decimal.Zero, ErrInvalidAmount
			}
			digits++
		}
	}
	if digits == 0 {
		return decimal.Zero, ErrInvalidAmount
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// ParseRate parses a savings percentage, accepting an optional trailing "%".
// The value must fall within [0, MaxSavingsRate].
func ParseRate(s string) (decimal.Decimal, error) {
	s = strings.TrimSuffix(strings.TrimSpace(s), "%")
	rate, err := ParseAmount(s)
	if err != nil {
		return decimal.Zero, err
	}
	if rate.GreaterThan(MaxSavingsRate) {
		return decimal.Zero, ErrInvalidAmount
	}
	return rate, nil
}
