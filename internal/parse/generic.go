package parse

import (
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dcastano/reciboscan/constants"
	"github.com/dcastano/reciboscan/internal/entity"
	"github.com/dcastano/reciboscan/internal/registry"
)

// reInlineItem matches a free-form item line: leading text followed by
// a trailing amount, optionally with a tax-class letter after it.
var reInlineItem = regexp.MustCompile(`^(.*\pL.*?)\s+[€$£]?\s*(\d{1,4}[.,]\d{2})\s*[€$£]?\s*[A-C]?$`)

// GenericParser extracts a receipt from any merchant's text using
// format detection and structural segmentation instead of per-chain
// grammars.
type GenericParser struct {
	regions *registry.RegionRegistry
	logger  *slog.Logger
}

// NewGenericParser builds a GenericParser.
func NewGenericParser(regions *registry.RegionRegistry, logger *slog.Logger) *GenericParser {
	if logger == nil {
		logger = slog.Default()
	}
	return &GenericParser{regions: regions, logger: logger}
}

// segments splits a receipt into header, items, and totals-onward.
type segments struct {
	header []string
	items  []string
	tail   []string
}

// Parse extracts what it can from unrecognized-merchant text. It never
// fails: an unparseable input yields an empty receipt with confidence
// near zero.
func (p *GenericParser) Parse(lines []string, now time.Time) *entity.ParsedReceipt {
	preset := p.regions.DetectFromText(strings.Join(lines, "\n"))

	sep := DetectDecimalSeparator(strings.Join(lines, "\n"), preset.DecimalSeparator)
	dayFirst := DetectDayFirst(lines, preset, &DateHint{DayFirst: preset.DayFirst})

	r := &entity.ParsedReceipt{
		ID:              uuid.New(),
		DetectionMethod: constants.DetectionNone,
		RawText:         strings.Join(lines, "\n"),
		PaymentMethod:   DetectPaymentMethod(strings.Join(lines, "\n"), preset),
		ParsedAt:        now,
	}

	totalsKw := p.unionTotalsKeywords()
	seg := segment(lines, totalsKw)

	r.StoreName = headerStoreName(seg.header)
	r.Date = ExtractDate(lines, registry.DefaultDatePatterns(), dayFirst)
	r.Items = p.extractItems(seg.items, totalsKw, sep)
	if len(r.Items) == 0 {
		// segmentation can misfire on sparse receipts; rescan everything
		r.Items = p.extractItems(lines, totalsKw, sep)
	}

	totals := extractTotals(lines, totalsKw, sep)
	r.Total = totals.Total
	r.Subtotal = totals.Subtotal
	r.Tax = totals.Tax
	r.Discount = totals.Discount

	r.Confidence = p.confidence(r, now)
	p.logger.Debug("parse.generic.done",
		"store", r.StoreName, "items", len(r.Items), "confidence", r.Confidence)
	return r
}

// unionTotalsKeywords merges every regional preset's keyword sets so a
// receipt in an undetected locale still finds its totals.
func (p *GenericParser) unionTotalsKeywords() totalsKeywords {
	var kw totalsKeywords
	for _, preset := range p.regions.All() {
		kw.total = append(kw.total, preset.TotalKeywords...)
		kw.subtotal = append(kw.subtotal, preset.SubtotalKeywords...)
		kw.tax = append(kw.tax, preset.TaxKeywords...)
		kw.discount = append(kw.discount, preset.DiscountKeywords...)
	}
	return kw
}

// segment splits lines at the first price-bearing line (header ends)
// and the first totals-keyword line (items end).
func segment(lines []string, kw totalsKeywords) segments {
	firstPrice := -1
	firstTotal := -1
	for i, line := range lines {
		if firstPrice == -1 && len(FindPrices(line)) > 0 {
			firstPrice = i
		}
		if firstTotal == -1 && (registry.ContainsKeyword(line, kw.total) ||
			registry.ContainsKeyword(line, kw.subtotal)) {
			firstTotal = i
		}
	}
	if firstPrice == -1 {
		return segments{header: lines}
	}
	if firstTotal == -1 || firstTotal < firstPrice {
		firstTotal = len(lines)
	}
	return segments{
		header: lines[:firstPrice],
		items:  lines[firstPrice:firstTotal],
		tail:   lines[min(firstTotal, len(lines)):],
	}
}

// headerStoreName picks the first header line that looks like a name
// rather than an address, date, or tax ID.
func headerStoreName(header []string) string {
	for _, line := range header {
		t := strings.TrimSpace(line)
		if t == "" || len(t) < 3 {
			continue
		}
		if reDateLike.MatchString(t) || reTaxIDLike.MatchString(t) || reAddressLike.MatchString(t) {
			continue
		}
		letters := 0
		for _, r := range t {
			if r >= 'A' && r <= 'Z' || r >= 'a' && r <= 'z' || r >= 'À' && r <= 'ÿ' {
				letters++
			}
		}
		if letters >= 3 {
			return t
		}
	}
	return ""
}

var (
	reDateLike    = regexp.MustCompile(`\d{1,2}[/.-]\d{1,2}[/.-]\d{2,4}`)
	reTaxIDLike   = regexp.MustCompile(`(?i)\b(NIF|CIF|RFC|VAT|EIN)\b|\b[A-Z][-. ]?\d{8}\b`)
	reAddressLike = regexp.MustCompile(`(?i)^\s*(C/|CALLE|AVDA|AVENIDA|PLAZA|CTRA|TEL|TLF)\b|^\s*\d{5}\s`)
)

// extractItems chooses between a columnar pairing (names and prices on
// separate lines) and inline parsing, then falls back to inline. Lines
// carrying a totals keyword are never items.
func (p *GenericParser) extractItems(raw []string, kw totalsKeywords, sep string) []entity.ParsedItem {
	lines := make([]string, 0, len(raw))
	for _, line := range raw {
		if registry.ContainsKeyword(line, kw.total) ||
			registry.ContainsKeyword(line, kw.subtotal) ||
			registry.ContainsKeyword(line, kw.tax) ||
			registry.ContainsKeyword(line, kw.discount) {
			continue
		}
		lines = append(lines, line)
	}

	var priceOnly, inline int
	for _, line := range lines {
		switch {
		case IsPriceOnly(line):
			priceOnly++
		case reInlineItem.MatchString(line):
			inline++
		}
	}
	if priceOnly >= 3 && priceOnly > inline*2 {
		if items := pairColumnar(lines, sep); len(items) > 0 {
			return items
		}
	}
	return p.inlineItems(lines, sep)
}

// pairColumnar matches the Nth name-only line to the Nth price-only
// line, trusting the layout's reading order.
func pairColumnar(lines []string, sep string) []entity.ParsedItem {
	var names []string
	var prices []decimal.Decimal
	for _, line := range lines {
		t := strings.TrimSpace(line)
		if t == "" {
			continue
		}
		if IsPriceOnly(t) {
			if v, ok := ParsePrice(t, sep); ok && PlausiblePrice(v) {
				prices = append(prices, v)
			}
			continue
		}
		if found := FindPrices(t); len(found) == 0 && hasLetters(t) {
			names = append(names, t)
		}
	}
	n := min(len(names), len(prices))
	// extra leading name lines are usually header text, not items
	names = names[len(names)-n:]
	prices = prices[:n]
	items := make([]entity.ParsedItem, 0, n)
	for i := 0; i < n; i++ {
		q := ExtractQuantity(names[i], sep)
		if q.Name == "" {
			continue
		}
		item := entity.ParsedItem{
			Name:       q.Name,
			Quantity:   q.Value,
			Unit:       q.Unit,
			TotalPrice: prices[i],
			UnitPrice:  prices[i],
			Confidence: 60,
			RawText:    names[i],
		}
		if q.Value.GreaterThan(decimal.NewFromInt(1)) {
			item.UnitPrice = prices[i].DivRound(q.Value, 2)
		}
		items = append(items, item)
	}
	return items
}

func (p *GenericParser) inlineItems(lines []string, sep string) []entity.ParsedItem {
	var items []entity.ParsedItem
	for _, line := range lines {
		t := strings.TrimSpace(line)
		if t == "" {
			continue
		}
		m := reInlineItem.FindStringSubmatch(t)
		if m == nil {
			continue
		}
		price, ok := ParsePrice(m[2], sep)
		if !ok || !PlausiblePrice(price) {
			continue
		}
		q := ExtractQuantity(strings.TrimSpace(m[1]), sep)
		if q.Name == "" || !hasLetters(q.Name) {
			continue
		}
		item := entity.ParsedItem{
			Name:       q.Name,
			Quantity:   q.Value,
			Unit:       q.Unit,
			TotalPrice: price,
			UnitPrice:  price,
			Confidence: 65,
			RawText:    t,
		}
		if q.Value.GreaterThan(decimal.NewFromInt(1)) {
			item.UnitPrice = price.DivRound(q.Value, 2)
		}
		items = append(items, item)
	}
	return items
}

// confidence blends field quality with the mean item confidence. A
// date outside the last year is treated as a misread and earns only a
// token bonus.
func (p *GenericParser) confidence(r *entity.ParsedReceipt, now time.Time) int {
	conf := 20
	if r.StoreName != "" {
		conf += 10
	}
	if r.Date != nil {
		if r.Date.After(now.AddDate(-1, 0, 0)) && r.Date.Before(now.Add(24*time.Hour)) {
			conf += 10
		} else {
			conf += 3
		}
	}
	if r.Total != nil {
		conf += 10
	}
	if len(r.Items) > 0 {
		sum := 0
		for _, it := range r.Items {
			sum += it.Confidence
		}
		conf += (sum / len(r.Items)) * 30 / 100
	}
	if r.Total != nil && len(r.Items) > 0 && withinTolerance(r.ItemSum(), *r.Total, 0.05) {
		conf += 15
	}
	if conf > 100 {
		conf = 100
	}
	return conf
}

func hasLetters(s string) bool {
	n := 0
	for _, r := range s {
		if r >= 'A' && r <= 'Z' || r >= 'a' && r <= 'z' || r >= 'À' && r <= 'ÿ' {
			n++
		}
	}
	return n >= 2
}
