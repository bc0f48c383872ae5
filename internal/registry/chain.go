// Package registry holds the static reference data the pipeline is
// wired with at startup: per-merchant chain templates, regional
// presets, and tax regions. Registries are immutable after load and
// injected into the detector/parser components, so tests can
// substitute fixtures.
package registry

import (
	"regexp"
	"strings"
)

// GrammarRole names a capture group's meaning inside an item grammar.
type GrammarRole string

const (
	RoleName       GrammarRole = "name"
	RoleQuantity   GrammarRole = "quantity"
	RoleUnitPrice  GrammarRole = "unitPrice"
	RoleTotalPrice GrammarRole = "totalPrice"
	RoleUnit       GrammarRole = "unit"
)

// ItemGrammar is one structured line pattern: a regex plus the role of
// each capture group. Grammars are data, not code; new merchants need
// no logic changes.
type ItemGrammar struct {
	Name    string
	Pattern *regexp.Regexp
	// Roles maps a role to its capture group index (1-based).
	Roles map[GrammarRole]int
	// Continuation grammars match the second line of a weighted item
	// (a quantity-only line followed by weight and unit price).
	Continuation bool
}

// Correction is one merchant-specific OCR self-correction rule applied
// before parsing.
type Correction struct {
	Pattern     *regexp.Regexp
	Replacement string
}

// ChainTemplate is the static, versioned configuration for one
// merchant chain. Immutable at runtime.
type ChainTemplate struct {
	ID          string
	DisplayName string
	Version     int

	// Identification.
	NamePatterns []*regexp.Regexp
	TaxIDs       []string // national tax identifiers, no separators
	Fingerprints []string // phrases unique to this merchant's receipts

	// Parsing.
	ItemGrammars     []ItemGrammar
	DatePatterns     []*regexp.Regexp
	SkipKeywords     []string
	TotalKeywords    []string
	SubtotalKeywords []string
	TaxKeywords      []string
	DiscountKeywords []string
	Corrections      []Correction

	DecimalSeparator string
	DayFirst         bool
	TaxRegime        string // tax-region ID, e.g. "ES_IVA"
}

// ChainRegistry looks chains up by ID, tax ID, or iteration order.
type ChainRegistry struct {
	byID    map[string]*ChainTemplate
	byTaxID map[string]*ChainTemplate
	ordered []*ChainTemplate
}

// NewChainRegistry builds a registry over the given templates.
// Templates are indexed by ID and by every declared tax ID, with
// hyphenated and unhyphenated variants.
func NewChainRegistry(templates []*ChainTemplate) *ChainRegistry {
	r := &ChainRegistry{
		byID:    make(map[string]*ChainTemplate, len(templates)),
		byTaxID: make(map[string]*ChainTemplate),
	}
	for _, t := range templates {
		r.byID[t.ID] = t
		r.ordered = append(r.ordered, t)
		for _, id := range t.TaxIDs {
			key := normalizeTaxID(id)
			if key != "" {
				r.byTaxID[key] = t
			}
		}
	}
	return r
}

// ByID returns the template for a merchant ID.
func (r *ChainRegistry) ByID(id string) (*ChainTemplate, bool) {
	t, ok := r.byID[id]
	return t, ok
}

// ByTaxID returns the template owning a national tax identifier,
// tolerating separators inside the candidate.
func (r *ChainRegistry) ByTaxID(taxID string) (*ChainTemplate, bool) {
	t, ok := r.byTaxID[normalizeTaxID(taxID)]
	return t, ok
}

// All returns templates in registration order.
func (r *ChainRegistry) All() []*ChainTemplate {
	return r.ordered
}

// Len returns the number of registered templates.
func (r *ChainRegistry) Len() int { return len(r.ordered) }

func normalizeTaxID(id string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(id) {
		if (r >= '0' && r <= '9') || (r >= 'A' && r <= 'Z') {
			b.WriteRune(r)
		}
	}
	return b.String()
}
