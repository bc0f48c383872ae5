package parse

import (
	"github.com/shopspring/decimal"

	"github.com/dcastano/reciboscan/internal/registry"
)

// Totals carries the declared summary amounts found on the receipt.
type Totals struct {
	Subtotal *decimal.Decimal
	Tax      *decimal.Decimal
	Discount *decimal.Decimal
	Total    *decimal.Decimal
}

// totalsKeywords groups the keyword sets for one extraction run.
type totalsKeywords struct {
	total    []string
	subtotal []string
	tax      []string
	discount []string
}

// extractTotals scans bottom-to-top for keyword-plus-price lines. A
// keyword line without a price takes the next line's standalone price
// (common when OCR splits keyword and amount). Classification order
// matters: discount, subtotal and tax are tested before total, so that
// "SUBTOTAL" or "IVA 21% 1,05" lines are never mistaken for the total.
func extractTotals(lines []string, kw totalsKeywords, sep string) Totals {
	var t Totals
	for i := len(lines) - 1; i >= 0; i-- {
		line := lines[i]
		amount, ok := amountOnOrBelow(lines, i, sep)
		if !ok {
			continue
		}
		switch {
		case registry.ContainsKeyword(line, kw.discount):
			if t.Discount == nil {
				v := amount.Abs()
				t.Discount = &v
			}
		case registry.ContainsKeyword(line, kw.subtotal):
			if t.Subtotal == nil {
				t.Subtotal = &amount
			}
		case registry.ContainsKeyword(line, kw.tax):
			if t.Tax == nil {
				t.Tax = &amount
			}
		case registry.ContainsKeyword(line, kw.total):
			if t.Total == nil {
				t.Total = &amount
			}
		}
	}
	return t
}

// amountOnOrBelow returns the rightmost price on line i, falling back
// to a standalone price on line i+1.
func amountOnOrBelow(lines []string, i int, sep string) (decimal.Decimal, bool) {
	if token, _, ok := RightmostPrice(lines[i]); ok {
		if v, pok := ParsePrice(token, sep); pok {
			return v, true
		}
	}
	if i+1 < len(lines) && IsPriceOnly(lines[i+1]) {
		if token, _, ok := RightmostPrice(lines[i+1]); ok {
			if v, pok := ParsePrice(token, sep); pok {
				return v, true
			}
		}
	}
	return decimal.Zero, false
}
