package parse

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	"github.com/dcastano/reciboscan/constants"
	"github.com/dcastano/reciboscan/internal/entity"
)

// stubCorrelator returns a fixed item list for any zone pair.
type stubCorrelator struct {
	items []entity.ParsedItem
}

func (s stubCorrelator) CorrelateZones(_ entity.OcrDocument, _, _ entity.NormalizedBox, _ string) []entity.ParsedItem {
	return s.items
}

var _ = Describe("TemplateParser", func() {
	zoneLine := func(text string, left, top float64) entity.OcrLine {
		return entity.OcrLine{
			Text: text,
			Box:  entity.BoundingBox{Left: left, Top: top, Width: 150, Height: 20},
		}
	}
	zoneDoc := func(lines ...entity.OcrLine) entity.OcrDocument {
		return entity.OcrDocument{
			Blocks:      []entity.OcrBlock{{Lines: lines}},
			ImageWidth:  1000,
			ImageHeight: 1000,
		}
	}

	// template with store, date, total and product zones laid out for
	// the fixture documents below.
	newTemplate := func() *entity.StoreParsingTemplate {
		return &entity.StoreParsingTemplate{
			MerchantID:  "bar-pepe",
			ImageWidth:  1000,
			ImageHeight: 1000,
			Hints:       entity.ParsingHints{DecimalSeparator: ",", DayFirst: true},
			Zones: entity.ZoneSet{
				constants.ZoneStoreName: {
					Type: constants.ZoneStoreName,
					Box:  entity.NormalizedBox{X: 0, Y: 0, Width: 1, Height: 0.06},
				},
				constants.ZoneDate: {
					Type: constants.ZoneDate,
					Box:  entity.NormalizedBox{X: 0, Y: 0.08, Width: 1, Height: 0.06},
				},
				constants.ZoneProductNames: {
					Type: constants.ZoneProductNames,
					Box:  entity.NormalizedBox{X: 0, Y: 0.25, Width: 1, Height: 0.15},
				},
				constants.ZoneTotal: {
					Type: constants.ZoneTotal,
					Box:  entity.NormalizedBox{X: 0, Y: 0.55, Width: 1, Height: 0.1},
				},
			},
		}
	}

	fullDoc := func() entity.OcrDocument {
		return zoneDoc(
			zoneLine("BAR PEPE S.L.", 50, 30),
			zoneLine("29/08/2026", 50, 100),
			zoneLine("PAN 1,20", 50, 300),
			zoneLine("LECHE 0,95", 50, 350),
			zoneLine("TOTAL 12,50", 50, 600),
		)
	}

	Describe("Refine", func() {
		When("zones cover store name, date, items and total", func() {
			It("fills the baseline from the zoned text", func() {
				p := NewTemplateParser(nil, nil)
				baseline := &entity.ParsedReceipt{StoreName: "BAR"}

				r := p.Refine(fullDoc(), baseline, newTemplate())

				Expect(r.StoreName).To(Equal("BAR PEPE S.L."))
				Expect(r.Date).NotTo(BeNil())
				Expect(r.Date.Day()).To(Equal(29))
				Expect(int(r.Date.Month())).To(Equal(8))
				Expect(r.Total).NotTo(BeNil())
				Expect(r.Total.Equal(decimal.RequireFromString("12.50"))).To(BeTrue())
				Expect(r.Items).To(HaveLen(2))
				Expect(r.Items[0].Name).To(Equal("PAN"))
				Expect(r.Items[1].Name).To(Equal("LECHE"))
				Expect(r.Items[1].TotalPrice.Equal(decimal.RequireFromString("0.95"))).To(BeTrue())
			})
		})

		When("the zones find nothing", func() {
			It("keeps the baseline values", func() {
				p := NewTemplateParser(nil, nil)
				total := decimal.RequireFromString("4.40")
				baseline := &entity.ParsedReceipt{StoreName: "BAR PEPE", Total: &total}

				// all text far outside any template zone
				d := zoneDoc(zoneLine("GRACIAS POR SU VISITA", 50, 900))
				r := p.Refine(d, baseline, newTemplate())

				Expect(r.StoreName).To(Equal("BAR PEPE"))
				Expect(r.Total.Equal(total)).To(BeTrue())
				Expect(r.Items).To(BeEmpty())
			})
		})

		When("the baseline already has more items than the zones yield", func() {
			It("keeps the larger baseline item list", func() {
				p := NewTemplateParser(nil, nil)
				baseline := &entity.ParsedReceipt{
					Items: []entity.ParsedItem{
						{Name: "UNO"}, {Name: "DOS"}, {Name: "TRES"},
					},
				}

				r := p.Refine(fullDoc(), baseline, newTemplate())

				Expect(r.Items).To(HaveLen(3))
				Expect(r.Items[0].Name).To(Equal("UNO"))
			})
		})

		When("the template has separate name and price zones", func() {
			It("delegates item extraction to the correlator", func() {
				want := []entity.ParsedItem{
					{Name: "AGUA", TotalPrice: decimal.RequireFromString("0.60")},
					{Name: "CAFE", TotalPrice: decimal.RequireFromString("1.30")},
					{Name: "TOSTADA", TotalPrice: decimal.RequireFromString("2.10")},
				}
				p := NewTemplateParser(stubCorrelator{items: want}, nil)

				tmpl := newTemplate()
				tmpl.Zones[constants.ZonePrices] = entity.ZoneDefinition{
					Type: constants.ZonePrices,
					Box:  entity.NormalizedBox{X: 0.6, Y: 0.25, Width: 0.4, Height: 0.15},
				}
				r := p.Refine(fullDoc(), &entity.ParsedReceipt{}, tmpl)

				Expect(r.Items).To(HaveLen(3))
				Expect(r.Items[2].Name).To(Equal("TOSTADA"))
			})
		})

		When("the document has no geometry", func() {
			It("returns the baseline untouched", func() {
				p := NewTemplateParser(nil, nil)
				baseline := &entity.ParsedReceipt{StoreName: "BAR PEPE"}

				d := entity.DocumentFromLines([]string{"BAR PEPE S.L.", "TOTAL 12,50"})
				r := p.Refine(d, baseline, newTemplate())

				Expect(r).To(BeIdenticalTo(baseline))
				Expect(r.StoreName).To(Equal("BAR PEPE"))
			})
		})

		When("the template has no zones", func() {
			It("returns the baseline untouched", func() {
				p := NewTemplateParser(nil, nil)
				baseline := &entity.ParsedReceipt{StoreName: "BAR PEPE"}

				r := p.Refine(fullDoc(), baseline, &entity.StoreParsingTemplate{MerchantID: "bar-pepe"})

				Expect(r.StoreName).To(Equal("BAR PEPE"))
			})
		})
	})
})
