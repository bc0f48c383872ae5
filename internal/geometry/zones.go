package geometry

import (
	"log/slog"
	"strings"

	"github.com/dcastano/reciboscan/constants"
	"github.com/dcastano/reciboscan/internal/entity"
	"github.com/dcastano/reciboscan/internal/parse"
	"github.com/dcastano/reciboscan/internal/registry"
)

const (
	// totalSearchWindow is the vertical window below a totals keyword
	// searched for a standalone price when keyword and price sit in
	// separate blocks.
	totalSearchWindow = 0.08
	// totalMergePadding is the extra vertical padding added when the
	// keyword and price boxes are merged, to tolerate later
	// aspect-ratio distortion.
	totalMergePadding = 0.01
)

// ZoneResult is the outcome of heuristic zone detection.
type ZoneResult struct {
	Zones      entity.ZoneSet
	Confidence int
}

// ZoneDetector infers rectangular receipt regions purely from block
// and line positions, with no text grammar beyond keyword lists.
type ZoneDetector struct {
	chains *registry.ChainRegistry
	logger *slog.Logger
}

// NewZoneDetector builds a ZoneDetector. The chain registry is used
// only to recognize known merchant names in the header.
func NewZoneDetector(chains *registry.ChainRegistry, logger *slog.Logger) *ZoneDetector {
	if logger == nil {
		logger = slog.Default()
	}
	return &ZoneDetector{chains: chains, logger: logger}
}

// Detect infers zones from the document's normalized elements.
// preset supplies the keyword sets for totals and noise.
func (z *ZoneDetector) Detect(doc entity.OcrDocument, width, height float64, preset *registry.RegionalPreset) ZoneResult {
	elements := ElementsFromDocument(doc, width, height)
	if len(elements) == 0 {
		return ZoneResult{Zones: entity.ZoneSet{}}
	}

	zones := entity.ZoneSet{}
	score := 0

	if def, ok := z.detectStoreName(elements, preset); ok {
		zones[constants.ZoneStoreName] = def
		score += 25
	}
	if def, ok := z.detectDate(elements); ok {
		zones[constants.ZoneDate] = def
		score += 15
	}
	if def, ok := z.detectTotal(elements, preset); ok {
		zones[constants.ZoneTotal] = def
		score += 20
	}

	itemZones, hasItems, hasPrices := z.detectItems(elements, zones, preset)
	for t, def := range itemZones {
		zones[t] = def
	}
	if hasItems {
		score += 25
	}
	if hasPrices {
		score += 15
	}

	if score > 100 {
		score = 100
	}
	z.logger.Debug("geometry.zones.detected", "zones", len(zones), "confidence", score)
	return ZoneResult{Zones: zones, Confidence: score}
}

// detectStoreName takes the first top-of-receipt element matching a
// known merchant name, else the first plausible text element that is
// not a date or noise line.
func (z *ZoneDetector) detectStoreName(elements []Element, preset *registry.RegionalPreset) (entity.ZoneDefinition, bool) {
	limit := len(elements)
	if limit > 8 {
		limit = 8
	}
	for _, e := range elements[:limit] {
		for _, t := range z.chains.All() {
			for _, re := range t.NamePatterns {
				if re.MatchString(e.Text) {
					return entity.ZoneDefinition{Type: constants.ZoneStoreName, Box: e.Box, IsRequired: true}, true
				}
			}
		}
	}
	for _, e := range elements[:limit] {
		if isDateLine(e.Text) || registry.ContainsKeyword(e.Text, preset.SkipKeywords) {
			continue
		}
		if !plausibleContinuation(e.Text) {
			continue
		}
		return entity.ZoneDefinition{Type: constants.ZoneStoreName, Box: e.Box, IsRequired: true}, true
	}
	return entity.ZoneDefinition{}, false
}

// detectDate takes the first element containing a date-like pattern.
func (z *ZoneDetector) detectDate(elements []Element) (entity.ZoneDefinition, bool) {
	for _, e := range elements {
		if isDateLine(e.Text) {
			return entity.ZoneDefinition{Type: constants.ZoneDate, Box: e.Box, IsRequired: false}, true
		}
	}
	return entity.ZoneDefinition{}, false
}

// detectTotal scans bottom-to-top for an element with both a totals
// keyword and a price; failing that, it pairs a keyword element with
// the nearest standalone price in a bounded window below it and merges
// the two boxes with extra vertical padding.
func (z *ZoneDetector) detectTotal(elements []Element, preset *registry.RegionalPreset) (entity.ZoneDefinition, bool) {
	for i := len(elements) - 1; i >= 0; i-- {
		e := elements[i]
		if !registry.ContainsKeyword(e.Text, preset.TotalKeywords) {
			continue
		}
		if len(parse.FindPrices(e.Text)) > 0 {
			return entity.ZoneDefinition{Type: constants.ZoneTotal, Box: e.Box, IsRequired: true}, true
		}
		// keyword without price: look below for a standalone price
		var best *Element
		bestDist := totalSearchWindow
		for j := range elements {
			cand := elements[j]
			if !parse.IsPriceOnly(cand.Text) {
				continue
			}
			dy := cand.Box.CenterY() - e.Box.CenterY()
			if dy < -rowTolerance || dy > bestDist {
				continue
			}
			best = &elements[j]
			bestDist = dy
		}
		if best != nil {
			merged := e.Box.Union(best.Box)
			merged.Y -= totalMergePadding
			merged.Height += 2 * totalMergePadding
			return entity.ZoneDefinition{Type: constants.ZoneTotal, Box: merged.Clamp(), IsRequired: true}, true
		}
	}
	return entity.ZoneDefinition{}, false
}

// detectItems determines the items region from the span of lines
// classified as item lines. Columnar layouts get separate
// product_names and prices zones split by the average X of each group;
// otherwise one combined product_names zone is emitted.
func (z *ZoneDetector) detectItems(elements []Element, zones entity.ZoneSet, preset *registry.RegionalPreset) (entity.ZoneSet, bool, bool) {
	out := entity.ZoneSet{}
	totalZone, hasTotal := zones.Get(constants.ZoneTotal)

	var itemLines, priceOnly, productOnly []Element
	for _, e := range elements {
		if registry.ContainsKeyword(e.Text, preset.TotalKeywords) ||
			registry.ContainsKeyword(e.Text, preset.SubtotalKeywords) ||
			registry.ContainsKeyword(e.Text, preset.SkipKeywords) ||
			isDateLine(e.Text) {
			continue
		}
		if hasTotal && e.Box.Y >= totalZone.Box.Y {
			continue
		}
		switch {
		case parse.IsPriceOnly(e.Text):
			priceOnly = append(priceOnly, e)
		case len(parse.FindPrices(e.Text)) > 0:
			itemLines = append(itemLines, e)
		case plausibleContinuation(e.Text):
			productOnly = append(productOnly, e)
		}
	}

	// Columnar: many separate product and price elements, with the
	// price group at least half the size of the product group.
	if len(priceOnly) >= columnarMinPrices && len(priceOnly)*2 >= len(productOnly) && len(productOnly) > 0 {
		prodBox := unionBoxes(productOnly)
		priceBox := unionBoxes(priceOnly)
		out[constants.ZoneProductNames] = entity.ZoneDefinition{Type: constants.ZoneProductNames, Box: prodBox, IsRequired: true}
		out[constants.ZonePrices] = entity.ZoneDefinition{Type: constants.ZonePrices, Box: priceBox, IsRequired: true}
		return out, true, true
	}

	if len(itemLines) == 0 {
		return out, false, false
	}
	out[constants.ZoneProductNames] = entity.ZoneDefinition{
		Type:       constants.ZoneProductNames,
		Box:        unionBoxes(itemLines),
		IsRequired: true,
	}
	return out, true, len(parse.FindPrices(joinTexts(itemLines))) > 0
}

func isDateLine(text string) bool {
	for _, pat := range registry.DefaultDatePatterns() {
		if pat.MatchString(text) {
			return true
		}
	}
	return false
}

func unionBoxes(elements []Element) entity.NormalizedBox {
	box := elements[0].Box
	for _, e := range elements[1:] {
		box = box.Union(e.Box)
	}
	return box
}

func joinTexts(elements []Element) string {
	parts := make([]string, len(elements))
	for i, e := range elements {
		parts[i] = e.Text
	}
	return strings.Join(parts, "\n")
}
