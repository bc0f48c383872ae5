package constants

import "strings"

// Unit is a sale unit attached to a line item.
type Unit string

const (
	UnitKilogram   Unit = "kg"
	UnitGram       Unit = "g"
	UnitLiter      Unit = "l"
	UnitMilliliter Unit = "ml"
	UnitPound      Unit = "lb"
	UnitOunce      Unit = "oz"
	UnitEach       Unit = "each"
)

// unitAliases maps OCR/regional spellings onto canonical units.
var unitAliases = map[string]Unit{
	"kg":    UnitKilogram,
	"kgs":   UnitKilogram,
	"kilo":  UnitKilogram,
	"kilos": UnitKilogram,
	"g":     UnitGram,
	"gr":    UnitGram,
	"grs":   UnitGram,
	"l":     UnitLiter,
	"lt":    UnitLiter,
	"ltr":   UnitLiter,
	"ml":    UnitMilliliter,
	"lb":    UnitPound,
	"lbs":   UnitPound,
	"oz":    UnitOunce,
	"ud":    UnitEach,
	"uds":   UnitEach,
	"un":    UnitEach,
	"u":     UnitEach,
	"ea":    UnitEach,
	"each":  UnitEach,
}

// ParseUnit normalizes a raw unit token. ok is false for tokens that do
// not name a known unit.
func ParseUnit(s string) (Unit, bool) {
	u, ok := unitAliases[strings.ToLower(strings.TrimSpace(s))]
	return u, ok
}
