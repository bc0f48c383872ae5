package constants

// ZoneType names a rectangular region of a receipt image expected to
// contain one semantic field.
type ZoneType string

// Stable values (persisted inside StoreParsingTemplate zones).
const (
	ZoneStoreName    ZoneType = "store_name"
	ZoneDate         ZoneType = "date"
	ZoneProductNames ZoneType = "product_names"
	ZonePrices       ZoneType = "prices"
	ZoneTotal        ZoneType = "total"
	ZoneSubtotal     ZoneType = "subtotal"
	ZoneTax          ZoneType = "tax"
	ZoneQuantities   ZoneType = "quantities"
)

// AllZoneTypes lists every zone type, in the order zones are usually
// stacked on a receipt.
var AllZoneTypes = []ZoneType{
	ZoneStoreName,
	ZoneDate,
	ZoneProductNames,
	ZoneQuantities,
	ZonePrices,
	ZoneSubtotal,
	ZoneTax,
	ZoneTotal,
}

// Valid reports whether z is one of the known zone types.
func (z ZoneType) Valid() bool {
	switch z {
	case ZoneStoreName, ZoneDate, ZoneProductNames, ZonePrices,
		ZoneTotal, ZoneSubtotal, ZoneTax, ZoneQuantities:
		return true
	}
	return false
}
