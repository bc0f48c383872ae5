// Package geometry infers receipt structure from block and line
// positions alone: zone detection and spatial text-to-price
// correlation. All logic runs over normalized (0-1) coordinates so it
// is independent of image resolution.
package geometry

import (
	"log/slog"
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/dcastano/reciboscan/constants"
	"github.com/dcastano/reciboscan/internal/entity"
	"github.com/dcastano/reciboscan/internal/ocr"
	"github.com/dcastano/reciboscan/internal/parse"
	"github.com/dcastano/reciboscan/internal/registry"
)

const (
	// rowTolerance is the max Y distance (fraction of image height)
	// between an element and the running cluster average for the
	// element to join that visual row.
	rowTolerance = 0.02
	// columnMatchTolerance is the max Y distance for pairing a product
	// element with a price element in columnar layout.
	columnMatchTolerance = 0.03
	// columnarStdDev: at least 3 prices whose X positions deviate less
	// than this classify the layout as columnar.
	columnarStdDev    = 0.1
	columnarMinPrices = 3
)

var reDigitsOnly = regexp.MustCompile(`^[\d\s.,:-]+$`)

// Element is one OCR line with its normalized position.
type Element struct {
	Text string
	Box  entity.NormalizedBox
}

// Result is the outcome of spatial correlation: the item candidates
// plus the layout classification used for fingerprinting.
type Result struct {
	Items     []entity.ParsedItem
	Layout    constants.LayoutType
	PriceSide constants.PriceSide
}

// Correlator pairs product text with prices by position.
type Correlator struct {
	logger *slog.Logger
}

// NewCorrelator builds a Correlator.
func NewCorrelator(logger *slog.Logger) *Correlator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Correlator{logger: logger}
}

// ElementsFromDocument converts a document's lines into normalized
// elements, OCR-corrected, empties dropped.
func ElementsFromDocument(doc entity.OcrDocument, width, height float64) []Element {
	var out []Element
	for _, l := range doc.AllLines() {
		text := ocr.NormalizeLine(l.Text)
		if text == "" {
			continue
		}
		out = append(out, Element{Text: text, Box: entity.Normalize(l.Box, width, height)})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Box.Y == out[j].Box.Y {
			return out[i].Box.X < out[j].Box.X
		}
		return out[i].Box.Y < out[j].Box.Y
	})
	return out
}

// Correlate clusters elements into visual rows and pairs product text
// with the nearest price. skipKeywords marks lines (totals, headers)
// that must not become items. sep is the active decimal separator.
func (c *Correlator) Correlate(elements []Element, skipKeywords []string, sep string) Result {
	prices := priceElements(elements)

	if len(prices) >= columnarMinPrices && xStdDev(prices) < columnarStdDev {
		res := c.correlateColumnar(elements, skipKeywords, sep)
		if len(res.Items) > 0 {
			return res
		}
	}
	return c.correlateRows(elements, skipKeywords, sep)
}

// CorrelateZones pairs product text inside the names zone with prices
// inside the prices zone by nearest Y distance. Used when a learned
// template pins the two columns down.
func (c *Correlator) CorrelateZones(doc entity.OcrDocument, names, prices entity.NormalizedBox, sep string) []entity.ParsedItem {
	width, height := doc.ImageWidth, doc.ImageHeight
	var products, priceEls []Element
	for _, e := range ElementsFromDocument(doc, width, height) {
		cx, cy := e.Box.CenterX(), e.Box.CenterY()
		switch {
		case prices.Contains(cx, cy) && parse.IsPriceOnly(e.Text):
			priceEls = append(priceEls, e)
		case names.Contains(cx, cy) && plausibleContinuation(e.Text):
			products = append(products, e)
		}
	}
	if len(products) == 0 || len(priceEls) == 0 {
		return nil
	}

	used := make([]bool, len(priceEls))
	var items []entity.ParsedItem
	for _, p := range products {
		bestIdx := -1
		bestDist := math.Inf(1)
		for i, pr := range priceEls {
			if used[i] {
				continue
			}
			d := math.Abs(p.Box.CenterY() - pr.Box.CenterY())
			if d < bestDist {
				bestIdx, bestDist = i, d
			}
		}
		if bestIdx < 0 || bestDist > columnMatchTolerance {
			continue
		}
		used[bestIdx] = true
		token, _, _ := parse.RightmostPrice(priceEls[bestIdx].Text)
		price, ok := parse.ParsePrice(token, sep)
		if !ok || !parse.PlausiblePrice(price) {
			continue
		}
		items = appendParsed(items, p.Text, price, sep)
	}
	c.logger.Debug("geometry.correlate.zones",
		"products", len(products), "prices", len(priceEls), "items", len(items))
	return items
}

// correlateRows reads row clusters: the rightmost price-shaped token in
// a row is the price, everything left of it is the product candidate.
// Price-less rows that look like plausible text are prepended to the
// next priced row.
func (c *Correlator) correlateRows(elements []Element, skipKeywords []string, sep string) Result {
	rows := clusterRows(elements)

	var items []entity.ParsedItem
	var pending []string
	var priceXs []float64

	for _, row := range rows {
		rowText := rowJoin(row)
		if registry.ContainsKeyword(rowText, skipKeywords) {
			pending = nil
			continue
		}

		priceIdx := -1
		for i := len(row) - 1; i >= 0; i-- {
			if parse.IsPriceOnly(row[i].Text) {
				priceIdx = i
				break
			}
		}

		if priceIdx < 0 {
			// Inline fallback: the row may be a single element ending
			// in a price.
			if name, price, ok := splitInline(rowText, sep); ok {
				items = appendParsed(items, strings.Join(append(pending, name), " "), price, sep)
				pending = nil
				continue
			}
			if plausibleContinuation(rowText) {
				pending = append(pending, rowText)
			} else {
				pending = nil
			}
			continue
		}

		token, _, _ := parse.RightmostPrice(row[priceIdx].Text)
		price, ok := parse.ParsePrice(token, sep)
		if !ok || !parse.PlausiblePrice(price) {
			pending = nil
			continue
		}
		var nameParts []string
		nameParts = append(nameParts, pending...)
		for i := 0; i < priceIdx; i++ {
			nameParts = append(nameParts, row[i].Text)
		}
		pending = nil
		name := strings.TrimSpace(strings.Join(nameParts, " "))
		if name == "" {
			continue
		}
		items = appendParsed(items, name, price, sep)
		priceXs = append(priceXs, row[priceIdx].Box.CenterX())
	}

	return Result{
		Items:     items,
		Layout:    constants.LayoutInline,
		PriceSide: sideOf(priceXs),
	}
}

// correlateColumnar separates product and price clusters by X position
// and matches them by nearest Y distance.
func (c *Correlator) correlateColumnar(elements []Element, skipKeywords []string, sep string) Result {
	var products, prices []Element
	for _, e := range elements {
		if parse.IsPriceOnly(e.Text) {
			prices = append(prices, e)
			continue
		}
		if registry.ContainsKeyword(e.Text, skipKeywords) || !plausibleContinuation(e.Text) {
			continue
		}
		products = append(products, e)
	}
	if len(prices) == 0 || len(products) == 0 {
		return Result{Layout: constants.LayoutColumnar}
	}

	used := make([]bool, len(prices))
	var items []entity.ParsedItem
	var priceXs []float64
	for _, p := range products {
		bestIdx := -1
		bestDist := math.Inf(1)
		for i, pr := range prices {
			if used[i] {
				continue
			}
			d := math.Abs(p.Box.CenterY() - pr.Box.CenterY())
			if d < bestDist {
				bestIdx, bestDist = i, d
			}
		}
		if bestIdx < 0 || bestDist > columnMatchTolerance {
			continue
		}
		used[bestIdx] = true
		token, _, _ := parse.RightmostPrice(prices[bestIdx].Text)
		price, ok := parse.ParsePrice(token, sep)
		if !ok || !parse.PlausiblePrice(price) {
			continue
		}
		items = appendParsed(items, p.Text, price, sep)
		priceXs = append(priceXs, prices[bestIdx].Box.CenterX())
	}

	c.logger.Debug("geometry.correlate.columnar",
		"products", len(products), "prices", len(prices), "items", len(items))

	return Result{
		Items:     items,
		Layout:    constants.LayoutColumnar,
		PriceSide: sideOf(priceXs),
	}
}

// clusterRows groups Y-sorted elements into visual rows: an element
// starts a new cluster when its Y differs from the running cluster
// average by more than rowTolerance.
func clusterRows(elements []Element) [][]Element {
	var rows [][]Element
	var current []Element
	var sumY float64

	for _, e := range elements {
		if len(current) == 0 {
			current = []Element{e}
			sumY = e.Box.CenterY()
			continue
		}
		avg := sumY / float64(len(current))
		if math.Abs(e.Box.CenterY()-avg) <= rowTolerance {
			current = append(current, e)
			sumY += e.Box.CenterY()
			continue
		}
		rows = append(rows, sortRow(current))
		current = []Element{e}
		sumY = e.Box.CenterY()
	}
	if len(current) > 0 {
		rows = append(rows, sortRow(current))
	}
	return rows
}

func sortRow(row []Element) []Element {
	sort.SliceStable(row, func(i, j int) bool { return row[i].Box.X < row[j].Box.X })
	return row
}

func rowJoin(row []Element) string {
	parts := make([]string, len(row))
	for i, e := range row {
		parts[i] = e.Text
	}
	return strings.Join(parts, " ")
}

// splitInline splits "NAME ... PRICE" when the line's last token is a
// price at the line end.
func splitInline(line, sep string) (name string, price decimal.Decimal, ok bool) {
	token, start, found := parse.RightmostPrice(line)
	if !found {
		return "", decimal.Zero, false
	}
	tail := strings.TrimSpace(strings.Trim(line[start+len(token):], "€$£ ABC"))
	if tail != "" {
		return "", decimal.Zero, false
	}
	p, pok := parse.ParsePrice(token, sep)
	if !pok || !parse.PlausiblePrice(p) {
		return "", decimal.Zero, false
	}
	name = strings.TrimSpace(line[:start])
	if name == "" {
		return "", decimal.Zero, false
	}
	return name, p, true
}

// plausibleContinuation reports whether a price-less row could be the
// start of a wrapped product name: short-ish text, not pure digits.
func plausibleContinuation(text string) bool {
	text = strings.TrimSpace(text)
	if text == "" || len(text) > 48 {
		return false
	}
	if reDigitsOnly.MatchString(text) {
		return false
	}
	letters := 0
	for _, r := range text {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			letters++
		}
	}
	return letters >= 3
}

func priceElements(elements []Element) []Element {
	var out []Element
	for _, e := range elements {
		if parse.IsPriceOnly(e.Text) {
			out = append(out, e)
		}
	}
	return out
}

func xStdDev(elements []Element) float64 {
	if len(elements) == 0 {
		return 0
	}
	var sum float64
	for _, e := range elements {
		sum += e.Box.CenterX()
	}
	mean := sum / float64(len(elements))
	var varSum float64
	for _, e := range elements {
		d := e.Box.CenterX() - mean
		varSum += d * d
	}
	return math.Sqrt(varSum / float64(len(elements)))
}

func sideOf(priceXs []float64) constants.PriceSide {
	if len(priceXs) == 0 {
		return constants.PriceSideRight
	}
	var sum float64
	for _, x := range priceXs {
		sum += x
	}
	if sum/float64(len(priceXs)) < 0.5 {
		return constants.PriceSideLeft
	}
	return constants.PriceSideRight
}

// appendParsed normalizes a (name, price) pair into a ParsedItem with
// quantity/unit extraction applied to the name text.
func appendParsed(items []entity.ParsedItem, name string, price decimal.Decimal, sep string) []entity.ParsedItem {
	q := parse.ExtractQuantity(name, sep)
	if q.Name == "" {
		return items
	}
	item := entity.ParsedItem{
		Name:       q.Name,
		Quantity:   q.Value,
		Unit:       q.Unit,
		TotalPrice: price,
		Confidence: 70,
		RawText:    name,
	}
	if q.Value.GreaterThan(decimal.NewFromInt(1)) {
		item.UnitPrice = price.DivRound(q.Value, 2)
	} else {
		item.UnitPrice = price
	}
	return append(items, item)
}
