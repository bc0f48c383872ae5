// Package parse implements field extraction over normalized OCR lines:
// shared price/date/quantity primitives plus the chain-specific,
// generic, and template-guided parsers.
package parse

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	rePriceComma = regexp.MustCompile(`\d{1,4},\d{2}\b`)
	rePriceDot   = regexp.MustCompile(`\d{1,4}\.\d{2}\b`)
	rePriceToken = regexp.MustCompile(`\d{1,4}[.,]\d{2}`)

	// A line that is just a price, optionally wrapped in currency or a
	// trailing tax mark.
	rePriceOnly = regexp.MustCompile(`^[€$£]?\s*\d{1,4}[.,]\d{2}\s*[€$£]?\s*[A-C]?$`)
)

// maxPlausiblePrice bounds a single line-item price; larger numbers are
// usually phone numbers or ticket IDs the OCR glued to a line.
var maxPlausiblePrice = decimal.NewFromInt(10000)

// DetectDecimalSeparator compares the frequency of comma-decimal and
// dot-decimal two-digit-fraction numbers and returns the winner, or
// fallback on a tie with no evidence.
func DetectDecimalSeparator(text, fallback string) string {
	commas := len(rePriceComma.FindAllString(text, -1))
	dots := len(rePriceDot.FindAllString(text, -1))
	switch {
	case commas > dots:
		return ","
	case dots > commas:
		return "."
	default:
		if fallback == "." {
			return "."
		}
		return ","
	}
}

// ParsePrice parses an amount using the given decimal separator.
// Currency symbols, grouping separators and surrounding noise are
// stripped. Exact: no float round-trip.
func ParsePrice(s, sep string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, "€$£ ")
	if s == "" {
		return decimal.Zero, false
	}
	if sep == "," {
		s = strings.ReplaceAll(s, ".", "") // thousands
		s = strings.ReplaceAll(s, ",", ".")
	} else {
		s = strings.ReplaceAll(s, ",", "") // thousands
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// FormatPrice renders d with two decimals using the given separator.
// ParsePrice(FormatPrice(d, sep), sep) recovers d for any two-decimal
// amount.
func FormatPrice(d decimal.Decimal, sep string) string {
	s := d.StringFixed(2)
	if sep == "," {
		s = strings.ReplaceAll(s, ".", ",")
	}
	return s
}

// IsPriceOnly reports whether the line carries nothing but one price.
func IsPriceOnly(line string) bool {
	return rePriceOnly.MatchString(strings.TrimSpace(line))
}

// FindPrices returns all price-shaped tokens in the line, left to
// right.
func FindPrices(line string) []string {
	return rePriceToken.FindAllString(line, -1)
}

// RightmostPrice returns the last price-shaped token in the line and
// its byte offset, or ok=false.
func RightmostPrice(line string) (token string, start int, ok bool) {
	locs := rePriceToken.FindAllStringIndex(line, -1)
	if len(locs) == 0 {
		return "", 0, false
	}
	last := locs[len(locs)-1]
	return line[last[0]:last[1]], last[0], true
}

// PlausiblePrice bounds a single item price to a sane range.
func PlausiblePrice(d decimal.Decimal) bool {
	return d.IsPositive() && d.LessThan(maxPlausiblePrice)
}

// CurrencySymbol returns the first currency symbol found in the text,
// or "".
func CurrencySymbol(text string) string {
	for _, sym := range []string{"€", "$", "£"} {
		if strings.Contains(text, sym) {
			return sym
		}
	}
	switch {
	case strings.Contains(text, "EUR"):
		return "€"
	case strings.Contains(text, "USD"):
		return "$"
	}
	return ""
}
