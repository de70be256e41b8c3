// Package core provides the canonical transaction model shared by the
// ingestion, categorization and query engines.
//
// This file contains monetary amount parsing. Statement exports format
// amounts inconsistently (currency symbol, thousands separators, stray
// whitespace, sometimes nothing parseable at all), so parsing is deliberately
// lenient: ParseAmount is the single place where that leniency policy lives.
package core

import (
	"errors"
	"strconv"
	"strings"
	"unicode"
)

// ErrInvalidAmount reports an amount that could not be parsed at all, for the
// few callers (JSON decoding) where leniency would hide a real mistake.
var ErrInvalidAmount = errors.New("invalid amount")

// poundPrefixes are the currency markers stripped before numeric parsing.
// "Â£" shows up when a Latin-1 export is re-read as UTF-8.
var poundPrefixes = []string{"Â£", "£"}

// ParseAmount converts a statement amount cell to Money.
//
// It trims surrounding whitespace, strips a pound sign (including the
// mis-decoded "Â£" variant) and comma thousands separators, then parses the
// remainder as a signed decimal with half-up rounding on the third decimal
// place. A cell that still fails to parse yields zero cents and ok=false;
// callers may log the coercion but must not reject the row for it.
//
// Examples:
//
//	ParseAmount("12.50")     -> 1250, true
//	ParseAmount("£2,000.00") -> 200000, true
//	ParseAmount("-4.05")     -> -405, true
//	ParseAmount("n/a")       -> 0, false
func ParseAmount(s string) (Money, bool) {
	s = strings.TrimSpace(s)
	for _, p := range poundPrefixes {
		s = strings.ReplaceAll(s, p, "")
	}
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, false
	}

	negative := false
	switch s[0] {
	case '-':
		negative = true
		s = s[1:]
	case '+':
		s = s[1:]
	}

	if s == "" || s == "." {
		return Money{}, false
	}

	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return Money{}, false
	}
	intPart := parts[0]
	fracPart := ""
	if len(parts) == 2 {
		fracPart = parts[1]
	}
	if intPart == "" {
		intPart = "0"
	}
	for _, r := range intPart {
		if !unicode.IsDigit(r) {
			return Money{}, false
		}
	}
	for _, r := range fracPart {
		if !unicode.IsDigit(r) {
			return Money{}, false
		}
	}

	iv, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return Money{}, false
	}
	// Prevent overflow when scaling to cents.
	const maxSafeInt64 = (1<<63 - 1) / 100
	if iv > maxSafeInt64 {
		return Money{}, false
	}

	// Take the first two fractional digits, half-up rounding on the third.
	var fracCents int64
	if len(fracPart) > 0 {
		fracCents = int64(fracPart[0]-'0') * 10
		if len(fracPart) > 1 {
			fracCents += int64(fracPart[1] - '0')
			if len(fracPart) > 2 && fracPart[2] >= '5' {
				fracCents++
			}
		}
	}

	cents := iv*100 + fracCents
	if negative {
		cents = -cents
	}
	return Money{Cents: cents}, true
}

// Pounds returns the pound value as a float64 for display purposes.
// Use cents for arithmetic to avoid floating-point drift.
func (m Money) Pounds() float64 {
	return float64(m.Cents) / 100.0
}

// Add returns the sum of m and other.
func (m Money) Add(other Money) Money {
	return Money{Cents: m.Cents + other.Cents}
}

// Sub returns m minus other.
func (m Money) Sub(other Money) Money {
	return Money{Cents: m.Cents - other.Cents}
}

// IsZero reports whether the amount is exactly zero.
func (m Money) IsZero() bool {
	return m.Cents == 0
}

// MarshalJSON emits the amount as a plain decimal number in pounds.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatFloat(m.Pounds(), 'f', 2, 64)), nil
}

// UnmarshalJSON accepts a plain decimal number in pounds.
func (m *Money) UnmarshalJSON(data []byte) error {
	parsed, ok := ParseAmount(strings.Trim(string(data), `"`))
	if !ok {
		return ErrInvalidAmount
	}
	*m = parsed
	return nil
}
