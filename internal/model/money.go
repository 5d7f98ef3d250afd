package model

import (
	"fmt"
	"math"
	"strconv"
)

// The WooCommerce Store API reports every amount as a minor-unit integer
// string ("150000") alongside a currency_minor_unit exponent and a display
// symbol. Conversions in both directions live here so that each caller uses
// the same rounding rules.

// ParseMinorUnits converts a minor-unit string to int64.
// Examples: "8900" → 8900, "" → 0. Malformed input parses to 0.
func ParseMinorUnits(s string) int64 {
	if s == "" {
		return 0
	}
	// Parse as float to tolerate stray decimals, then truncate.
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return int64(f)
}

// MinorToMajor converts a minor-unit string to major units using the
// currency exponent. "150000" with exponent 2 → 1500.00.
func MinorToMajor(s string, exponent int) float64 {
	if exponent < 0 {
		exponent = 2
	}
	return float64(ParseMinorUnits(s)) / math.Pow10(exponent)
}

// MajorToMinor converts a major-unit amount back to minor units.
// MajorToMinor(MinorToMajor(s, e), e) recovers ParseMinorUnits(s).
func MajorToMinor(v float64, exponent int) int64 {
	if exponent < 0 {
		exponent = 2
	}
	return int64(math.Round(v * math.Pow10(exponent)))
}

// MinorToMajorString renders a minor-unit string as a plain two-decimal
// major-unit string ("8900", 2 → "89.00"). The REST order API expects
// shipping line totals in this form.
func MinorToMajorString(s string, exponent int) string {
	return strconv.FormatFloat(MinorToMajor(s, exponent), 'f', 2, 64)
}

// FormatMinor renders a minor-unit string for display with the currency
// symbol: ("150000", 2, "₱") → "₱1500.00".
func FormatMinor(s string, exponent int, symbol string) string {
	return fmt.Sprintf("%s%.2f", symbol, MinorToMajor(s, exponent))
}
