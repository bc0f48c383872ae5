package registry

import (
	"regexp"
	"strings"
)

// TaxRegion is the static description of one tax regime: how to
// recognize it (postal prefixes, vocabulary, merchant indicators) and
// which rates are legal under it.
type TaxRegion struct {
	ID   string
	Name string

	PostalPrefixes     []string
	Keywords           []string
	MerchantIndicators []string

	// Rates are the legal percentage rates, highest first.
	Rates []float64
	// StandardRate is the usual rate applied to most goods.
	StandardRate float64
}

// TaxRegionRegistry resolves regimes by postal code, text, or
// merchant name.
type TaxRegionRegistry struct {
	byID    map[string]*TaxRegion
	ordered []*TaxRegion
	def     *TaxRegion
}

// NewTaxRegionRegistry builds a registry; defaultID wins when no
// signal resolves a regime.
func NewTaxRegionRegistry(regions []*TaxRegion, defaultID string) *TaxRegionRegistry {
	r := &TaxRegionRegistry{byID: make(map[string]*TaxRegion, len(regions))}
	for _, t := range regions {
		r.byID[t.ID] = t
		r.ordered = append(r.ordered, t)
	}
	if d, ok := r.byID[defaultID]; ok {
		r.def = d
	} else if len(r.ordered) > 0 {
		r.def = r.ordered[0]
	}
	return r
}

// ByID returns the regime with the given ID, or the default.
func (r *TaxRegionRegistry) ByID(id string) *TaxRegion {
	if t, ok := r.byID[id]; ok {
		return t
	}
	return r.def
}

// Default returns the default regime.
func (r *TaxRegionRegistry) Default() *TaxRegion { return r.def }

// ByPostalCode matches the longest declared postal prefix.
func (r *TaxRegionRegistry) ByPostalCode(code string) (*TaxRegion, bool) {
	code = strings.TrimSpace(code)
	var best *TaxRegion
	bestLen := 0
	for _, t := range r.ordered {
		for _, p := range t.PostalPrefixes {
			if strings.HasPrefix(code, p) && len(p) > bestLen {
				best, bestLen = t, len(p)
			}
		}
	}
	return best, best != nil
}

var rePostalCode = regexp.MustCompile(`(?:^|[^0-9])([0-9]{5})(?:[^0-9]|$)`)

// ExtractPostalCode finds the first standalone five-digit group whose
// two-digit province prefix is a real Spanish code (01-52). Longer
// digit runs (phone numbers, barcodes) never match.
func ExtractPostalCode(text string) (string, bool) {
	for _, m := range rePostalCode.FindAllStringSubmatch(text, -1) {
		code := m[1]
		if p := code[:2]; p >= "01" && p <= "52" {
			return code, true
		}
	}
	return "", false
}

// ByText returns the regime whose keywords appear most often in the
// folded text.
func (r *TaxRegionRegistry) ByText(text string) (*TaxRegion, bool) {
	folded := Fold(text)
	var best *TaxRegion
	bestScore := 0
	for _, t := range r.ordered {
		score := 0
		for _, k := range t.Keywords {
			if strings.Contains(folded, Fold(k)) {
				score++
			}
		}
		if score > bestScore {
			best, bestScore = t, score
		}
	}
	return best, best != nil
}

// ByMerchant matches declared merchant indicators against a merchant
// name.
func (r *TaxRegionRegistry) ByMerchant(name string) (*TaxRegion, bool) {
	folded := Fold(name)
	for _, t := range r.ordered {
		for _, m := range t.MerchantIndicators {
			if strings.Contains(folded, Fold(m)) {
				return t, true
			}
		}
	}
	return nil, false
}

// PlausibleRate reports whether pct is within 1 point of a legal rate
// of the regime. Used to sanity-check an extracted tax percentage.
func (t *TaxRegion) PlausibleRate(pct float64) bool {
	for _, r := range t.Rates {
		if pct >= r-1 && pct <= r+1 {
			return true
		}
	}
	return false
}

// BuiltinTaxRegions returns the shipped regimes.
func BuiltinTaxRegions() []*TaxRegion {
	return []*TaxRegion{
		{
			ID:             "ES_IVA",
			Name:           "IVA (peninsular Spain and Balearics)",
			PostalPrefixes: []string{"0", "1", "2", "3", "4", "5", "6", "7", "8", "9"},
			Keywords:       []string{"IVA", "I.V.A"},
			Rates:          []float64{21, 10, 4},
			StandardRate:   21,
		},
		{
			ID:             "ES_IGIC",
			Name:           "IGIC (Canary Islands)",
			PostalPrefixes: []string{"35", "38"},
			Keywords:       []string{"IGIC"},
			MerchantIndicators: []string{
				"HIPERDINO", "SPAR GRAN CANARIA", "SPAR TENERIFE",
			},
			Rates:        []float64{15, 9.5, 7, 3, 0},
			StandardRate: 7,
		},
		{
			ID:             "ES_IPSI",
			Name:           "IPSI (Ceuta and Melilla)",
			PostalPrefixes: []string{"51", "52"},
			Keywords:       []string{"IPSI"},
			Rates:          []float64{10, 8, 4, 2, 1, 0.5},
			StandardRate:   4,
		},
		{
			ID:           "MX_IVA",
			Name:         "IVA (Mexico)",
			Keywords:     []string{"IVA", "IEPS", "RFC"},
			Rates:        []float64{16, 8, 0},
			StandardRate: 16,
		},
		{
			ID:           "US_SALES",
			Name:         "US sales tax",
			Keywords:     []string{"SALES TAX", "TAX"},
			Rates:        []float64{0, 4, 5, 6, 7, 8, 9, 10},
			StandardRate: 7,
		},
	}
}
