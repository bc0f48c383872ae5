package parse

import (
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dcastano/reciboscan/constants"
	"github.com/dcastano/reciboscan/internal/detect"
	"github.com/dcastano/reciboscan/internal/entity"
	"github.com/dcastano/reciboscan/internal/registry"
)

// Generic noise that never carries an item regardless of merchant:
// tax-ID lines, card-masking sequences, postal addresses.
var noisePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b[A-Z][-. ]?\d{8}\b`),
	regexp.MustCompile(`[*Xx]{4,}\s*\d{2,4}`),
	regexp.MustCompile(`(?i)^\s*(C/|CALLE|AVDA|AVENIDA|PLAZA|CTRA)\b`),
	regexp.MustCompile(`^\s*\d{5}\s+[A-ZÁÉÍÓÚÑ]`), // postal code + town
}

// reconciliationTolerance is the max relative gap between the item sum
// and the declared total for the sum-match confidence bonus.
const reconciliationTolerance = 0.15

// ChainParser applies a matched merchant template's grammars and
// keyword sets to extract fields with high precision.
type ChainParser struct {
	regions *registry.RegionRegistry
	logger  *slog.Logger
}

// NewChainParser builds a ChainParser.
func NewChainParser(regions *registry.RegionRegistry, logger *slog.Logger) *ChainParser {
	if logger == nil {
		logger = slog.Default()
	}
	return &ChainParser{regions: regions, logger: logger}
}

// Parse extracts a receipt using the matched chain template. It never
// fails: missing fields stay empty and lower the confidence.
func (p *ChainParser) Parse(lines []string, match detect.Match, now time.Time) *entity.ParsedReceipt {
	tmpl := match.Template
	corrected := applyCorrections(lines, tmpl.Corrections)
	sep := tmpl.DecimalSeparator

	r := &entity.ParsedReceipt{
		ID:              uuid.New(),
		StoreName:       tmpl.DisplayName,
		MerchantID:      tmpl.ID,
		DetectionMethod: match.Method,
		RawText:         strings.Join(lines, "\n"),
		PaymentMethod:   constants.PaymentUnknown,
		ParsedAt:        now,
	}

	r.Date = ExtractDate(corrected, tmpl.DatePatterns, tmpl.DayFirst)
	r.Items = p.extractItems(corrected, tmpl, sep)

	totals := extractTotals(corrected, totalsKeywords{
		total:    tmpl.TotalKeywords,
		subtotal: tmpl.SubtotalKeywords,
		tax:      tmpl.TaxKeywords,
		discount: tmpl.DiscountKeywords,
	}, sep)
	r.Total = totals.Total
	r.Subtotal = totals.Subtotal
	r.Tax = totals.Tax
	r.Discount = totals.Discount

	if preset := p.regions.Default(); preset != nil {
		r.PaymentMethod = DetectPaymentMethod(r.RawText, preset)
	}

	r.Confidence = p.confidence(r, match.Confidence)
	p.logger.Debug("parse.chain.done",
		"merchant", tmpl.ID, "items", len(r.Items), "confidence", r.Confidence)
	return r
}

// extractItems scans lines top-to-bottom, skipping noise, and tries
// each grammar in the template's declared order, taking the first
// structural match per line. Weighted items (a quantity-only line
// followed by a weight-and-unit-price line) are resolved with explicit
// two-line state, not backtracking.
func (p *ChainParser) extractItems(lines []string, tmpl *registry.ChainTemplate, sep string) []entity.ParsedItem {
	var items []entity.ParsedItem

	// pendingName holds the name line of a two-line item.
	var pendingName string

	for _, line := range lines {
		if line == "" {
			continue
		}
		if p.skipLine(line, tmpl) {
			pendingName = ""
			continue
		}

		for _, g := range tmpl.ItemGrammars {
			m := g.Pattern.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			f := grammarFields(g, m, sep)

			switch {
			case g.Continuation:
				if pendingName == "" {
					break
				}
				item := buildItem(pendingName, f, sep)
				pendingName = ""
				if item != nil {
					items = append(items, *item)
				}
			case f.total == nil && f.unitPrice == nil:
				// structural match without any price: first line of a
				// two-line item
				pendingName = f.name
			default:
				pendingName = ""
				if item := buildItem(f.name, f, sep); item != nil {
					items = append(items, *item)
				}
			}
			break
		}
	}
	return items
}

func (p *ChainParser) skipLine(line string, tmpl *registry.ChainTemplate) bool {
	if registry.ContainsKeyword(line, tmpl.SkipKeywords) ||
		registry.ContainsKeyword(line, tmpl.TotalKeywords) ||
		registry.ContainsKeyword(line, tmpl.SubtotalKeywords) ||
		registry.ContainsKeyword(line, tmpl.TaxKeywords) ||
		registry.ContainsKeyword(line, tmpl.DiscountKeywords) {
		return true
	}
	for _, re := range noisePatterns {
		if re.MatchString(line) {
			return true
		}
	}
	return false
}

// fields are the role values captured by one grammar match.
type fields struct {
	name      string
	qty       decimal.Decimal
	unit      constants.Unit
	unitPrice *decimal.Decimal
	total     *decimal.Decimal
}

func grammarFields(g registry.ItemGrammar, m []string, sep string) fields {
	f := fields{qty: decimal.NewFromInt(1), unit: constants.UnitEach}
	if idx, ok := g.Roles[registry.RoleName]; ok && idx < len(m) {
		f.name = strings.TrimSpace(m[idx])
	}
	if idx, ok := g.Roles[registry.RoleQuantity]; ok && idx < len(m) {
		if v, vok := ParsePrice(m[idx], sep); vok && v.IsPositive() {
			f.qty = v
		}
	}
	if idx, ok := g.Roles[registry.RoleUnit]; ok && idx < len(m) {
		if u, uok := constants.ParseUnit(m[idx]); uok {
			f.unit = u
		}
	}
	if idx, ok := g.Roles[registry.RoleUnitPrice]; ok && idx < len(m) {
		if v, vok := ParsePrice(m[idx], sep); vok {
			f.unitPrice = &v
		}
	}
	if idx, ok := g.Roles[registry.RoleTotalPrice]; ok && idx < len(m) {
		if v, vok := ParsePrice(m[idx], sep); vok {
			f.total = &v
		}
	}
	return f
}

// buildItem assembles a ParsedItem, deriving whichever of unit/total
// price is missing from the other.
func buildItem(name string, f fields, sep string) *entity.ParsedItem {
	q := ExtractQuantity(name, sep)
	if q.Name == "" {
		return nil
	}
	// grammar roles beat tokens re-extracted from the name
	qty := f.qty
	unit := f.unit
	if qty.Equal(decimal.NewFromInt(1)) && !q.Value.Equal(decimal.NewFromInt(1)) {
		qty = q.Value
		unit = q.Unit
	}

	item := entity.ParsedItem{
		Name:       q.Name,
		Quantity:   qty,
		Unit:       unit,
		Confidence: 85,
		RawText:    name,
	}
	switch {
	case f.total != nil && f.unitPrice != nil:
		item.TotalPrice = *f.total
		item.UnitPrice = *f.unitPrice
	case f.total != nil:
		item.TotalPrice = *f.total
		if qty.IsPositive() {
			item.UnitPrice = f.total.DivRound(qty, 2)
		}
	case f.unitPrice != nil:
		item.UnitPrice = *f.unitPrice
		item.TotalPrice = f.unitPrice.Mul(qty).Round(2)
	default:
		return nil
	}
	if !PlausiblePrice(item.TotalPrice) {
		return nil
	}
	return &item
}

// confidence combines a fixed base, a fraction of the detection
// confidence, per-field bonuses, and a bonus when the item sum matches
// the declared total within tolerance.
func (p *ChainParser) confidence(r *entity.ParsedReceipt, detection int) int {
	conf := 30 + (detection*30)/100
	if r.Date != nil {
		conf += 10
	}
	if len(r.Items) > 0 {
		conf += 10
	}
	if r.Total != nil {
		conf += 10
	}
	if r.Subtotal != nil {
		conf += 3
	}
	if r.Tax != nil {
		conf += 3
	}
	if r.Total != nil && len(r.Items) > 0 && withinTolerance(r.ItemSum(), *r.Total, reconciliationTolerance) {
		conf += 15
	}
	if conf > 100 {
		conf = 100
	}
	return conf
}

// withinTolerance reports whether got is within frac of want.
func withinTolerance(got, want decimal.Decimal, frac float64) bool {
	if want.IsZero() {
		return got.IsZero()
	}
	diff := got.Sub(want).Abs()
	limit := want.Abs().Mul(decimal.NewFromFloat(frac))
	return diff.LessThanOrEqual(limit)
}

// applyCorrections runs the template's OCR self-correction rules over
// every line before any extraction.
func applyCorrections(lines []string, corrections []registry.Correction) []string {
	if len(corrections) == 0 {
		return lines
	}
	out := make([]string, len(lines))
	for i, line := range lines {
		for _, c := range corrections {
			line = c.Pattern.ReplaceAllString(line, c.Replacement)
		}
		out[i] = line
	}
	return out
}
