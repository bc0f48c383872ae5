// Package detect identifies which chain template, if any, applies to a
// receipt. Four strategies run in strict priority order; each has a
// fixed confidence ceiling reflecting its reliability.
package detect

import (
	"log/slog"
	"regexp"
	"strings"

	"github.com/dcastano/reciboscan/constants"
	"github.com/dcastano/reciboscan/internal/registry"
)

// taxIDPattern matches national tax identifiers: one letter plus eight
// digits, with or without a separator after the letter.
var taxIDPattern = regexp.MustCompile(`\b([A-Z])[-. ]?(\d{8})\b`)

// headerLines is how deep the heuristic strategy looks for a merchant
// display-name word.
const headerLines = 10

// Match is one merchant-detection result.
type Match struct {
	Template   *registry.ChainTemplate
	Method     constants.DetectionMethod
	Confidence int
}

// strategy returns a Match or nil; strategies are tried in order and
// the first non-empty result wins.
type strategy func(text string, lines []string) *Match

// Detector resolves a receipt's merchant against the chain registry.
type Detector struct {
	chains     *registry.ChainRegistry
	strategies []strategy
	logger     *slog.Logger
}

// NewDetector builds a Detector over the given chain registry.
func NewDetector(chains *registry.ChainRegistry, logger *slog.Logger) *Detector {
	if logger == nil {
		logger = slog.Default()
	}
	d := &Detector{chains: chains, logger: logger}
	d.strategies = []strategy{
		d.matchTaxID,
		d.matchName,
		d.matchFingerprint,
		d.matchHeuristic,
	}
	return d
}

// Detect runs the strategies in priority order over the normalized
// lines. A nil Template with DetectionNone means no merchant matched.
func (d *Detector) Detect(lines []string) Match {
	text := strings.Join(lines, "\n")
	for _, s := range d.strategies {
		if m := s(text, lines); m != nil {
			d.logger.Debug("detect.merchant.matched",
				"merchant", m.Template.ID,
				"method", m.Method,
				"confidence", m.Confidence)
			return *m
		}
	}
	d.logger.Debug("detect.merchant.none")
	return Match{Method: constants.DetectionNone}
}

// matchTaxID searches for known national tax-identifier patterns and
// looks them up against the registry, trying hyphenated and
// unhyphenated variants.
func (d *Detector) matchTaxID(text string, _ []string) *Match {
	for _, m := range taxIDPattern.FindAllStringSubmatch(strings.ToUpper(text), -1) {
		candidates := []string{
			m[1] + m[2],
			m[1] + "-" + m[2],
		}
		for _, c := range candidates {
			if t, ok := d.chains.ByTaxID(c); ok {
				return &Match{Template: t, Method: constants.DetectionTaxID, Confidence: 98}
			}
		}
	}
	return nil
}

// matchName tests each merchant's name patterns against the full text.
func (d *Detector) matchName(text string, _ []string) *Match {
	for _, t := range d.chains.All() {
		for _, re := range t.NamePatterns {
			if re.MatchString(text) {
				return &Match{Template: t, Method: constants.DetectionName, Confidence: 90}
			}
		}
	}
	return nil
}

// matchFingerprint counts how many of each merchant's declared unique
// phrases appear and picks the merchant with the most matches.
// Confidence scales with match count: min(70 + 5*matches, 85).
func (d *Detector) matchFingerprint(text string, _ []string) *Match {
	folded := registry.Fold(text)
	var best *registry.ChainTemplate
	bestCount := 0
	for _, t := range d.chains.All() {
		count := 0
		for _, phrase := range t.Fingerprints {
			if strings.Contains(folded, registry.Fold(phrase)) {
				count++
			}
		}
		if count > bestCount {
			best, bestCount = t, count
		}
	}
	if best == nil || bestCount == 0 {
		return nil
	}
	conf := 70 + 5*bestCount
	if conf > 85 {
		conf = 85
	}
	return &Match{Template: best, Method: constants.DetectionFingerprint, Confidence: conf}
}

// matchHeuristic looks for any word of a merchant's display name (at
// least 4 characters) inside the first few lines.
func (d *Detector) matchHeuristic(_ string, lines []string) *Match {
	n := len(lines)
	if n > headerLines {
		n = headerLines
	}
	header := registry.Fold(strings.Join(lines[:n], "\n"))
	for _, t := range d.chains.All() {
		for _, word := range strings.Fields(registry.Fold(t.DisplayName)) {
			if len(word) < 4 {
				continue
			}
			if strings.Contains(header, word) {
				return &Match{Template: t, Method: constants.DetectionHeuristic, Confidence: 60}
			}
		}
	}
	return nil
}
