package parse

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/dcastano/reciboscan/constants"
)

var (
	reQtyPrefix  = regexp.MustCompile(`^(\d{1,3})\s*[xX]\s+(.+)$`)
	reQtySuffix  = regexp.MustCompile(`^(.+?)\s+[xX]\s*(\d{1,3})$`)
	reQtyLeading = regexp.MustCompile(`^(\d{1,3})\s+(\D.+)$`)
	reWeightLead = regexp.MustCompile(`^(\d{1,3}[.,]\d{1,3})\s*(kg|g|l|ml|lb|oz)\b\s*(.*)$`)
	reWeightTail = regexp.MustCompile(`^(.+?)\s+(\d{1,3}[.,]\d{1,3})\s*(kg|g|l|ml|lb|oz)$`)
)

// Quantity is the result of quantity/unit token extraction from an
// item name.
type Quantity struct {
	Value decimal.Decimal
	Unit  constants.Unit
	// Name is the remaining text after the tokens were consumed.
	Name string
}

// ExtractQuantity pulls embedded quantity/unit tokens ("2 x", "x2",
// leading or trailing weight plus unit) out of an item name. Quantity
// defaults to 1 each.
func ExtractQuantity(name, sep string) Quantity {
	name = strings.TrimSpace(name)
	q := Quantity{Value: decimal.NewFromInt(1), Unit: constants.UnitEach, Name: name}

	if m := reWeightLead.FindStringSubmatch(name); m != nil {
		if v, ok := ParsePrice(m[1], sep); ok && v.IsPositive() {
			if u, uok := constants.ParseUnit(m[2]); uok {
				q.Value, q.Unit = v, u
				q.Name = strings.TrimSpace(m[3])
				return q
			}
		}
	}
	if m := reWeightTail.FindStringSubmatch(name); m != nil {
		if v, ok := ParsePrice(m[2], sep); ok && v.IsPositive() {
			if u, uok := constants.ParseUnit(m[3]); uok {
				q.Value, q.Unit = v, u
				q.Name = strings.TrimSpace(m[1])
				return q
			}
		}
	}
	if m := reQtyPrefix.FindStringSubmatch(name); m != nil {
		if v, err := decimal.NewFromString(m[1]); err == nil && v.IsPositive() {
			q.Value = v
			q.Name = strings.TrimSpace(m[2])
			return q
		}
	}
	if m := reQtySuffix.FindStringSubmatch(name); m != nil {
		if v, err := decimal.NewFromString(m[2]); err == nil && v.IsPositive() {
			q.Value = v
			q.Name = strings.TrimSpace(m[1])
			return q
		}
	}
	if m := reQtyLeading.FindStringSubmatch(name); m != nil {
		if v, err := decimal.NewFromString(m[1]); err == nil && v.IsPositive() {
			q.Value = v
			q.Name = strings.TrimSpace(m[2])
			return q
		}
	}
	return q
}
