package constants

// PaymentMethod is the closed set of payment methods the parser can
// recognize on a receipt. Unknown stays explicit rather than empty so
// switches over the type can be exhaustive.
type PaymentMethod string

const (
	PaymentCash        PaymentMethod = "CASH"
	PaymentCard        PaymentMethod = "CARD"
	PaymentContactless PaymentMethod = "CONTACTLESS"
	PaymentVoucher     PaymentMethod = "VOUCHER"
	PaymentTransfer    PaymentMethod = "TRANSFER"
	PaymentUnknown     PaymentMethod = "UNKNOWN"
)
