package entity

import "github.com/dcastano/reciboscan/constants"

// StoreFingerprint is a derived, comparable layout signature for one
// receipt. Two fingerprints are compared by weighted partial match,
// never by exact equality.
type StoreFingerprint struct {
	Layout           constants.LayoutType `json:"layout"`
	PriceSide        constants.PriceSide  `json:"price_side"`
	HeaderPatterns   []string             `json:"header_patterns,omitempty"`
	FooterPatterns   []string             `json:"footer_patterns,omitempty"`
	DecimalSeparator string               `json:"decimal_separator"`
	CurrencySymbol   string               `json:"currency_symbol,omitempty"`
	DateFormat       string               `json:"date_format,omitempty"`
	Keywords         []string             `json:"keywords,omitempty"`
}
