// Package fingerprint derives comparable layout signatures from
// receipt text and scores them against stored ones. A fingerprint
// never identifies a merchant on its own; it is the tertiary
// recognition path behind tax-ID and name matching.
package fingerprint

import (
	"log/slog"
	"regexp"
	"strings"

	"github.com/dcastano/reciboscan/constants"
	"github.com/dcastano/reciboscan/internal/entity"
	"github.com/dcastano/reciboscan/internal/parse"
	"github.com/dcastano/reciboscan/internal/registry"
)

const (
	headerPatternLines = 5
	footerPatternLines = 3
	maxKeywords        = 12

	// MinScore is the floor below which a comparison is treated as no
	// match at all.
	MinScore = 40
)

// Score weights. Structural traits dominate; text overlap refines.
const (
	weightLayout    = 20
	weightPriceSide = 15
	weightSeparator = 10
	weightCurrency  = 10
	weightDate      = 5
	weightHeaders   = 20
	weightKeywords  = 20
)

var (
	reNumberRun = regexp.MustCompile(`\d+`)
	reSpaces    = regexp.MustCompile(`\s+`)
	reWord      = regexp.MustCompile(`[A-ZÑ]{4,}`)
)

// stopwords are receipt vocabulary too common to discriminate stores.
var stopwords = map[string]struct{}{
	"TOTAL": {}, "SUBTOTAL": {}, "IVA": {}, "FECHA": {}, "HORA": {},
	"EURO": {}, "EUROS": {}, "TARJETA": {}, "EFECTIVO": {}, "CAMBIO": {},
	"GRACIAS": {}, "TICKET": {}, "FACTURA": {}, "CAJA": {}, "CLIENTE": {},
	"PRECIO": {}, "CANTIDAD": {}, "DESCRIPCION": {}, "IMPORTE": {},
	"ARTICULO": {}, "ARTICULOS": {}, "VISA": {}, "MASTERCARD": {},
	"CASH": {}, "CARD": {}, "CHANGE": {}, "THANK": {},
}

// Builder derives fingerprints from parsed receipt text.
type Builder struct {
	logger *slog.Logger
}

// NewBuilder builds a Builder.
func NewBuilder(logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{logger: logger}
}

// Build derives a fingerprint from the receipt's lines and the layout
// traits observed while parsing it. Lines must already be
// OCR-normalized and non-empty.
func (b *Builder) Build(lines []string, layout constants.LayoutType, side constants.PriceSide, sep string) *entity.StoreFingerprint {
	if len(lines) == 0 {
		return nil
	}
	fp := &entity.StoreFingerprint{
		Layout:           layout,
		PriceSide:        side,
		DecimalSeparator: sep,
		CurrencySymbol:   parse.CurrencySymbol(strings.Join(lines, "\n")),
		DateFormat:       dateFormatOf(lines),
	}
	for i := 0; i < len(lines) && i < headerPatternLines; i++ {
		if p := Generalize(lines[i]); p != "" {
			fp.HeaderPatterns = append(fp.HeaderPatterns, p)
		}
	}
	start := len(lines) - footerPatternLines
	if start < headerPatternLines {
		start = headerPatternLines
	}
	for i := start; i < len(lines); i++ {
		if p := Generalize(lines[i]); p != "" {
			fp.FooterPatterns = append(fp.FooterPatterns, p)
		}
	}
	fp.Keywords = distinctiveKeywords(lines)
	return fp
}

// Generalize replaces the volatile parts of a line (amounts, dates,
// times, phone numbers, ticket counters) with placeholders so the same
// store's receipts produce the same pattern across visits.
func Generalize(line string) string {
	s := registry.Fold(line)
	s = reNumberRun.ReplaceAllString(s, "#")
	s = reSpaces.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)
	if len(s) < 3 {
		return ""
	}
	return s
}

// distinctiveKeywords picks folded words unlikely to occur on other
// stores' receipts, in first-seen order.
func distinctiveKeywords(lines []string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, line := range lines {
		for _, w := range reWord.FindAllString(registry.Fold(line), -1) {
			if _, dup := seen[w]; dup {
				continue
			}
			if _, stop := stopwords[w]; stop {
				continue
			}
			seen[w] = struct{}{}
			out = append(out, w)
			if len(out) >= maxKeywords {
				return out
			}
		}
	}
	return out
}

// dateFormatOf classifies the dominant date shape in the text.
func dateFormatOf(lines []string) string {
	iso := regexp.MustCompile(`\d{4}-\d{1,2}-\d{1,2}`)
	slash := regexp.MustCompile(`\d{1,2}[/.-]\d{1,2}[/.-]\d{2,4}`)
	for _, line := range lines {
		if iso.MatchString(line) {
			return "iso"
		}
		if slash.MatchString(line) {
			return "slash"
		}
	}
	return ""
}

// Score compares two fingerprints with the weighted rubric. The result
// is 0-100; callers treat anything below MinScore as no match.
func Score(a, b *entity.StoreFingerprint) int {
	if a == nil || b == nil {
		return 0
	}
	score := 0
	if a.Layout != "" && a.Layout == b.Layout {
		score += weightLayout
	}
	if a.PriceSide != "" && a.PriceSide == b.PriceSide {
		score += weightPriceSide
	}
	if a.DecimalSeparator != "" && a.DecimalSeparator == b.DecimalSeparator {
		score += weightSeparator
	}
	if a.CurrencySymbol != "" && a.CurrencySymbol == b.CurrencySymbol {
		score += weightCurrency
	}
	if a.DateFormat != "" && a.DateFormat == b.DateFormat {
		score += weightDate
	}
	score += overlapScore(a.HeaderPatterns, b.HeaderPatterns, weightHeaders)
	score += overlapScore(a.Keywords, b.Keywords, weightKeywords)
	if score > 100 {
		score = 100
	}
	return score
}

// overlapScore scales weight by the fraction of the smaller set found
// in the larger one.
func overlapScore(a, b []string, weight int) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	small, large := a, b
	if len(b) < len(a) {
		small, large = b, a
	}
	set := make(map[string]struct{}, len(large))
	for _, s := range large {
		set[s] = struct{}{}
	}
	hits := 0
	for _, s := range small {
		if _, ok := set[s]; ok {
			hits++
		}
	}
	return weight * hits / len(small)
}

// Match is a fingerprint comparison outcome.
type Match struct {
	Template *entity.StoreParsingTemplate
	Score    int
}

// BestMatch scores the candidate against every stored template that
// carries a fingerprint and returns the best one at or above MinScore.
func BestMatch(candidate *entity.StoreFingerprint, templates []*entity.StoreParsingTemplate) (Match, bool) {
	var best Match
	for _, t := range templates {
		if t.Fingerprint == nil {
			continue
		}
		if s := Score(candidate, t.Fingerprint); s > best.Score {
			best = Match{Template: t, Score: s}
		}
	}
	if best.Score < MinScore {
		return Match{}, false
	}
	return best, true
}
