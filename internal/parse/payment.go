package parse

import (
	"github.com/dcastano/reciboscan/constants"
	"github.com/dcastano/reciboscan/internal/registry"
)

// contactless and the less common methods share vocabulary across
// regions, so they are not per-preset.
var (
	contactlessKeywords = []string{"CONTACTLESS", "SIN CONTACTO", "NFC"}
	voucherKeywords     = []string{"VALE", "CHEQUE REGALO", "VOUCHER", "GIFT CARD"}
	transferKeywords    = []string{"TRANSFERENCIA", "BIZUM", "TRANSFER", "WIRE"}
)

// DetectPaymentMethod finds the payment method from keyword evidence.
// More specific methods are tested before the broad cash/card sets.
func DetectPaymentMethod(text string, preset *registry.RegionalPreset) constants.PaymentMethod {
	if registry.ContainsKeyword(text, contactlessKeywords) {
		return constants.PaymentContactless
	}
	if registry.ContainsKeyword(text, voucherKeywords) {
		return constants.PaymentVoucher
	}
	if registry.ContainsKeyword(text, transferKeywords) {
		return constants.PaymentTransfer
	}
	if preset != nil {
		if registry.ContainsKeyword(text, preset.PaymentCard) {
			return constants.PaymentCard
		}
		if registry.ContainsKeyword(text, preset.PaymentCash) {
			return constants.PaymentCash
		}
	}
	return constants.PaymentUnknown
}
