package parse

import (
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dcastano/reciboscan/constants"
	"github.com/dcastano/reciboscan/internal/entity"
	"github.com/dcastano/reciboscan/internal/registry"
)

// zonePadBase is the slack added around every template zone; aspect
// mismatch between the authoring image and the current one widens it.
const (
	zonePadBase = 0.015
	zonePadMax  = 0.12
)

// ZoneCorrelator pairs product text inside one zone with prices inside
// another by position. Implemented by the geometry package; the
// indirection keeps this package free of layout internals.
type ZoneCorrelator interface {
	CorrelateZones(doc entity.OcrDocument, names, prices entity.NormalizedBox, sep string) []entity.ParsedItem
}

// TemplateParser refines a baseline parse using a merchant's learned
// zone template.
type TemplateParser struct {
	correlator ZoneCorrelator
	logger     *slog.Logger
}

// NewTemplateParser builds a TemplateParser.
func NewTemplateParser(correlator ZoneCorrelator, logger *slog.Logger) *TemplateParser {
	if logger == nil {
		logger = slog.Default()
	}
	return &TemplateParser{correlator: correlator, logger: logger}
}

// Refine overlays the template's zones on the document and fills or
// replaces baseline fields. A template value only wins when it is
// non-empty; the item list is swapped only when the zoned extraction
// finds at least as many items as the baseline. The baseline is
// mutated and returned.
func (p *TemplateParser) Refine(doc entity.OcrDocument, baseline *entity.ParsedReceipt, tmpl *entity.StoreParsingTemplate) *entity.ParsedReceipt {
	if baseline == nil || tmpl == nil || len(tmpl.Zones) == 0 || !doc.HasGeometry() {
		return baseline
	}

	pad := zonePadding(tmpl, doc)
	sep := tmpl.Hints.DecimalSeparator
	if sep == "" {
		sep = ","
	}

	if z, ok := tmpl.Zones.Get(constants.ZoneStoreName); ok {
		if name := firstLine(zoneText(doc, z.Box, pad)); name != "" {
			baseline.StoreName = name
		}
	}
	if z, ok := tmpl.Zones.Get(constants.ZoneDate); ok {
		if d := ExtractDate(zoneText(doc, z.Box, pad), registry.DefaultDatePatterns(), tmpl.Hints.DayFirst); d != nil {
			baseline.Date = d
		}
	}
	if z, ok := tmpl.Zones.Get(constants.ZoneTotal); ok {
		if v := zoneAmount(doc, z.Box, pad, sep); v != nil {
			baseline.Total = v
		}
	}
	if z, ok := tmpl.Zones.Get(constants.ZoneSubtotal); ok {
		if v := zoneAmount(doc, z.Box, pad, sep); v != nil {
			baseline.Subtotal = v
		}
	}
	if z, ok := tmpl.Zones.Get(constants.ZoneTax); ok {
		if v := zoneAmount(doc, z.Box, pad, sep); v != nil {
			baseline.Tax = v
		}
	}

	items := p.zoneItems(doc, tmpl, pad, sep)
	if len(items) >= len(baseline.Items) && len(items) > 0 {
		baseline.Items = items
	}

	if baseline.ParsedAt.IsZero() {
		baseline.ParsedAt = time.Now()
	}
	p.logger.Debug("parse.template.refined",
		"merchant", tmpl.MerchantID, "zones", len(tmpl.Zones), "items", len(baseline.Items))
	return baseline
}

// zoneItems extracts items from the template's item zones: a separate
// product/price zone pair goes through the correlator, a combined
// product zone is parsed inline.
func (p *TemplateParser) zoneItems(doc entity.OcrDocument, tmpl *entity.StoreParsingTemplate, pad float64, sep string) []entity.ParsedItem {
	names, hasNames := tmpl.Zones.Get(constants.ZoneProductNames)
	prices, hasPrices := tmpl.Zones.Get(constants.ZonePrices)

	if hasNames && hasPrices && p.correlator != nil {
		items := p.correlator.CorrelateZones(doc,
			padBox(names.Box, pad), padBox(prices.Box, pad), sep)
		if len(items) > 0 {
			return items
		}
	}
	if hasNames {
		return inlineZoneItems(zoneText(doc, names.Box, pad), sep)
	}
	return nil
}

func inlineZoneItems(lines []string, sep string) []entity.ParsedItem {
	var items []entity.ParsedItem
	for _, line := range lines {
		m := reInlineItem.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			continue
		}
		price, ok := ParsePrice(m[2], sep)
		if !ok || !PlausiblePrice(price) {
			continue
		}
		q := ExtractQuantity(strings.TrimSpace(m[1]), sep)
		if q.Name == "" {
			continue
		}
		item := entity.ParsedItem{
			Name:       q.Name,
			Quantity:   q.Value,
			Unit:       q.Unit,
			TotalPrice: price,
			UnitPrice:  price,
			Confidence: 70,
			RawText:    strings.TrimSpace(line),
		}
		if q.Value.GreaterThan(decimal.NewFromInt(1)) {
			item.UnitPrice = price.DivRound(q.Value, 2)
		}
		items = append(items, item)
	}
	return items
}

// zonePadding widens the base padding proportionally to the aspect
// mismatch between the authoring image and the current one. Zones from
// a squarer photo still land on a taller scan, just less precisely.
func zonePadding(tmpl *entity.StoreParsingTemplate, doc entity.OcrDocument) float64 {
	pad := zonePadBase
	ta := tmpl.AspectRatio()
	if ta > 0 && doc.ImageHeight > 0 {
		da := doc.ImageWidth / doc.ImageHeight
		pad += math.Abs(da-ta) / ta * 0.1
	}
	if pad > zonePadMax {
		pad = zonePadMax
	}
	return pad
}

func padBox(b entity.NormalizedBox, pad float64) entity.NormalizedBox {
	return entity.NormalizedBox{
		X:      b.X - pad,
		Y:      b.Y - pad,
		Width:  b.Width + 2*pad,
		Height: b.Height + 2*pad,
	}.Clamp()
}

// zoneText returns the texts of lines whose center falls inside the
// padded zone, in reading order.
func zoneText(doc entity.OcrDocument, box entity.NormalizedBox, pad float64) []string {
	zone := padBox(box, pad)
	type positioned struct {
		text string
		y, x float64
	}
	var hits []positioned
	for _, l := range doc.AllLines() {
		nb := entity.Normalize(l.Box, doc.ImageWidth, doc.ImageHeight)
		if !zone.Contains(nb.CenterX(), nb.CenterY()) {
			continue
		}
		text := strings.TrimSpace(l.Text)
		if text == "" {
			continue
		}
		hits = append(hits, positioned{text: text, y: nb.CenterY(), x: nb.X})
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if math.Abs(hits[i].y-hits[j].y) > 0.005 {
			return hits[i].y < hits[j].y
		}
		return hits[i].x < hits[j].x
	})
	out := make([]string, len(hits))
	for i, h := range hits {
		out[i] = h.text
	}
	return out
}

// zoneAmount returns the rightmost plausible price found in the zone.
func zoneAmount(doc entity.OcrDocument, box entity.NormalizedBox, pad float64, sep string) *decimal.Decimal {
	for _, line := range zoneText(doc, box, pad) {
		token, _, ok := RightmostPrice(line)
		if !ok {
			continue
		}
		if v, pok := ParsePrice(token, sep); pok && PlausiblePrice(v) {
			return &v
		}
	}
	return nil
}

func firstLine(lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	return lines[0]
}
