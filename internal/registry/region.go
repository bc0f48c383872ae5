package registry

import "strings"

// RegionalPreset carries the locale conventions and keyword sets for
// one territory. Loaded once at startup, immutable.
type RegionalPreset struct {
	Region           string // ISO territory code
	Language         string
	DecimalSeparator string
	DayFirst         bool
	CurrencySymbols  []string

	TotalKeywords    []string
	SubtotalKeywords []string
	TaxKeywords      []string
	DiscountKeywords []string
	PaymentCash      []string
	PaymentCard      []string
	SkipKeywords     []string

	// LocaleKeywords vote for this preset when detecting the region
	// from raw text (month names, legal phrases, tax vocabulary).
	LocaleKeywords []string
}

// RegionRegistry looks presets up by territory or by text evidence.
type RegionRegistry struct {
	byRegion map[string]*RegionalPreset
	ordered  []*RegionalPreset
	fallback *RegionalPreset
}

// NewRegionRegistry builds a registry; defaultRegion is returned when
// nothing else matches.
func NewRegionRegistry(presets []*RegionalPreset, defaultRegion string) *RegionRegistry {
	r := &RegionRegistry{byRegion: make(map[string]*RegionalPreset, len(presets))}
	for _, p := range presets {
		r.byRegion[p.Region] = p
		r.ordered = append(r.ordered, p)
	}
	if fb, ok := r.byRegion[defaultRegion]; ok {
		r.fallback = fb
	} else if len(r.ordered) > 0 {
		r.fallback = r.ordered[0]
	}
	return r
}

// ByRegion returns the preset for a territory code, falling back to
// the default preset.
func (r *RegionRegistry) ByRegion(region string) *RegionalPreset {
	if p, ok := r.byRegion[strings.ToUpper(region)]; ok {
		return p
	}
	return r.fallback
}

// Default returns the fallback preset.
func (r *RegionRegistry) Default() *RegionalPreset { return r.fallback }

// All returns presets in registration order.
func (r *RegionRegistry) All() []*RegionalPreset { return r.ordered }

// DetectFromText picks the preset whose locale keywords appear most
// often in the text; score 0 falls back to the default.
func (r *RegionRegistry) DetectFromText(text string) *RegionalPreset {
	folded := Fold(text)
	best := r.fallback
	bestScore := 0
	for _, p := range r.ordered {
		score := 0
		for _, k := range p.LocaleKeywords {
			if strings.Contains(folded, Fold(k)) {
				score++
			}
		}
		if score > bestScore {
			best, bestScore = p, score
		}
	}
	return best
}

// BuiltinRegions returns the shipped presets.
func BuiltinRegions() []*RegionalPreset {
	return []*RegionalPreset{
		{
			Region:           "ES",
			Language:         "es",
			DecimalSeparator: ",",
			DayFirst:         true,
			CurrencySymbols:  []string{"€", "EUR"},
			TotalKeywords:    []string{"TOTAL A PAGAR", "TOTAL COMPRA", "TOTAL (€)", "IMPORTE TOTAL", "TOTAL"},
			SubtotalKeywords: []string{"SUBTOTAL", "SUB-TOTAL", "BASE IMPONIBLE"},
			TaxKeywords:      []string{"IVA", "I.V.A", "IGIC", "IPSI", "IMPUESTO"},
			DiscountKeywords: []string{"DESCUENTO", "DTO", "AHORRO", "PROMOCION", "CUPON"},
			PaymentCash:      []string{"EFECTIVO", "CAMBIO", "ENTREGADO", "CONTADO"},
			PaymentCard:      []string{"TARJETA", "VISA", "MASTERCARD", "CREDITO", "DEBITO", "BANCARIA"},
			SkipKeywords:     []string{"TELEFONO", "TELF", "NIF", "CIF", "AVDA", "CALLE", "GRACIAS", "FACTURA", "TICKET", "CAJA", "IBAN"},
			LocaleKeywords:   []string{"IVA", "EUR", "€", "GRACIAS POR SU COMPRA", "EFECTIVO", "TARJETA", "ENERO", "FEBRERO", "MARZO", "ABRIL", "MAYO", "JUNIO", "JULIO", "AGOSTO", "SEPTIEMBRE", "OCTUBRE", "NOVIEMBRE", "DICIEMBRE"},
		},
		{
			Region:           "MX",
			Language:         "es",
			DecimalSeparator: ".",
			DayFirst:         true,
			CurrencySymbols:  []string{"$", "MXN"},
			TotalKeywords:    []string{"TOTAL A PAGAR", "IMPORTE TOTAL", "TOTAL"},
			SubtotalKeywords: []string{"SUBTOTAL", "SUB-TOTAL"},
			TaxKeywords:      []string{"IVA", "IEPS", "IMPUESTO"},
			DiscountKeywords: []string{"DESCUENTO", "AHORRO", "PROMOCION"},
			PaymentCash:      []string{"EFECTIVO", "CAMBIO", "SU PAGO"},
			PaymentCard:      []string{"TARJETA", "VISA", "MASTERCARD", "CREDITO", "DEBITO"},
			SkipKeywords:     []string{"TELEFONO", "RFC", "SUCURSAL", "GRACIAS", "TICKET", "CAJA"},
			LocaleKeywords:   []string{"RFC", "MXN", "IEPS", "SUCURSAL", "PESOS"},
		},
		{
			Region:           "US",
			Language:         "en",
			DecimalSeparator: ".",
			DayFirst:         false,
			CurrencySymbols:  []string{"$", "USD"},
			TotalKeywords:    []string{"GRAND TOTAL", "BALANCE DUE", "AMOUNT DUE", "TOTAL"},
			SubtotalKeywords: []string{"SUBTOTAL", "SUB TOTAL", "SUB-TOTAL"},
			TaxKeywords:      []string{"SALES TAX", "TAX", "VAT"},
			DiscountKeywords: []string{"DISCOUNT", "SAVINGS", "COUPON", "PROMO"},
			PaymentCash:      []string{"CASH", "CHANGE", "TENDERED"},
			PaymentCard:      []string{"CARD", "VISA", "MASTERCARD", "AMEX", "DISCOVER", "CREDIT", "DEBIT"},
			SkipKeywords:     []string{"PHONE", "TEL", "THANK YOU", "RECEIPT", "CASHIER", "STORE", "REG"},
			LocaleKeywords:   []string{"SALES TAX", "USD", "CASHIER", "THANK YOU", "CHANGE DUE"},
		},
		{
			Region:           "PT",
			Language:         "pt",
			DecimalSeparator: ",",
			DayFirst:         true,
			CurrencySymbols:  []string{"€", "EUR"},
			TotalKeywords:    []string{"TOTAL A PAGAR", "TOTAL"},
			SubtotalKeywords: []string{"SUBTOTAL", "SUB-TOTAL"},
			TaxKeywords:      []string{"IVA", "IMPOSTO"},
			DiscountKeywords: []string{"DESCONTO", "POUPANCA"},
			PaymentCash:      []string{"DINHEIRO", "TROCO", "NUMERARIO"},
			PaymentCard:      []string{"CARTAO", "MULTIBANCO", "VISA", "CREDITO", "DEBITO"},
			SkipKeywords:     []string{"TELEFONE", "NIF", "OBRIGADO", "FATURA", "CAIXA"},
			LocaleKeywords:   []string{"OBRIGADO", "FATURA", "MULTIBANCO", "TROCO", "CONTRIBUINTE"},
		},
	}
}
