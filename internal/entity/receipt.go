package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dcastano/reciboscan/constants"
)

// ParsedItem is one extracted line item.
type ParsedItem struct {
	Name       string          `json:"name"`
	Quantity   decimal.Decimal `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	TotalPrice decimal.Decimal `json:"total_price"`
	Unit       constants.Unit  `json:"unit,omitempty"`
	Confidence int             `json:"confidence"`
	RawText    string          `json:"raw_text,omitempty"`
}

// ParsedReceipt is the structured result of one parse. It is always
// returned, never replaced by an error: on total failure every field is
// empty and Confidence sits near zero.
type ParsedReceipt struct {
	ID           uuid.UUID  `json:"id"`
	StoreName    string     `json:"store_name,omitempty"`
	StoreAddress string     `json:"store_address,omitempty"`
	Date         *time.Time `json:"date,omitempty"`

	Items []ParsedItem `json:"items"`

	Subtotal *decimal.Decimal `json:"subtotal,omitempty"`
	Tax      *decimal.Decimal `json:"tax,omitempty"`
	Discount *decimal.Decimal `json:"discount,omitempty"`
	Total    *decimal.Decimal `json:"total,omitempty"`

	PaymentMethod constants.PaymentMethod `json:"payment_method"`

	RawText    string `json:"raw_text,omitempty"`
	Confidence int    `json:"confidence"`

	// Detection provenance, set when a merchant template applied.
	MerchantID      string                    `json:"merchant_id,omitempty"`
	DetectionMethod constants.DetectionMethod `json:"detection_method"`

	Warnings []string `json:"warnings,omitempty"`
	IsValid  bool     `json:"is_valid"`

	ParsedAt time.Time `json:"parsed_at"`
}

// ItemSum returns the sum of item total prices.
func (r *ParsedReceipt) ItemSum() decimal.Decimal {
	sum := decimal.Zero
	for _, it := range r.Items {
		sum = sum.Add(it.TotalPrice)
	}
	return sum
}
