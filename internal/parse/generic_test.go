package parse

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	"github.com/dcastano/reciboscan/internal/registry"
)

var _ = Describe("GenericParser", func() {
	var (
		parser *GenericParser
		now    time.Time
	)

	BeforeEach(func() {
		regions := registry.NewRegionRegistry(registry.BuiltinRegions(), "ES")
		parser = NewGenericParser(regions, nil)
		now = time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	})

	Describe("Parse", func() {
		When("items are inline with their prices", func() {
			It("extracts store, date, items and total", func() {
				r := parser.Parse([]string{
					"TIENDA PACO",
					"28/08/2026",
					"PAN 1,20",
					"LECHE 0,95",
					"TOTAL 2,15",
				}, now)

				Expect(r.StoreName).To(Equal("TIENDA PACO"))
				Expect(r.Date).NotTo(BeNil())
				Expect(r.Items).To(HaveLen(2))
				Expect(r.Items[0].Name).To(Equal("PAN"))
				Expect(r.Items[1].Name).To(Equal("LECHE"))
				Expect(r.Total.Equal(decimal.RequireFromString("2.15"))).To(BeTrue())
			})

			It("never emits a totals line as an item", func() {
				r := parser.Parse([]string{
					"PAN 1,20",
					"IVA 21% 0,25",
					"TOTAL 1,45",
				}, now)
				Expect(r.Items).To(HaveLen(1))
				Expect(r.Items[0].Name).To(Equal("PAN"))
			})
		})

		When("names and prices come in separate columns", func() {
			It("pairs names to prices in reading order, skipping header text", func() {
				r := parser.Parse([]string{
					"SUPER AHORRO",
					"PAN",
					"LECHE",
					"HUEVOS",
					"1,20",
					"0,95",
					"2,50",
					"TOTAL 4,65",
				}, now)

				Expect(r.Items).To(HaveLen(3))
				Expect(r.Items[0].Name).To(Equal("PAN"))
				Expect(r.Items[0].TotalPrice.Equal(decimal.RequireFromString("1.20"))).To(BeTrue())
				Expect(r.Items[1].Name).To(Equal("LECHE"))
				Expect(r.Items[2].Name).To(Equal("HUEVOS"))
				Expect(r.Items[2].TotalPrice.Equal(decimal.RequireFromString("2.50"))).To(BeTrue())
			})
		})

		When("a quantity prefix is present", func() {
			It("splits the quantity out and derives the unit price", func() {
				r := parser.Parse([]string{
					"2 x AGUA MINERAL 1,10",
					"TOTAL 1,10",
				}, now)
				Expect(r.Items).To(HaveLen(1))
				item := r.Items[0]
				Expect(item.Name).To(Equal("AGUA MINERAL"))
				Expect(item.Quantity.Equal(decimal.NewFromInt(2))).To(BeTrue())
				Expect(item.UnitPrice.Equal(decimal.RequireFromString("0.55"))).To(BeTrue())
			})
		})

		When("the text is unparseable", func() {
			It("returns an empty receipt instead of failing", func() {
				r := parser.Parse([]string{"%%%%", "????"}, now)
				Expect(r).NotTo(BeNil())
				Expect(r.Items).To(BeEmpty())
				Expect(r.StoreName).To(BeEmpty())
				Expect(r.Confidence).To(BeNumerically("<=", 20))
			})
		})

		It("scores a date from years ago below a recent one", func() {
			fresh := parser.Parse([]string{
				"TIENDA PACO", "28/08/2026", "PAN 1,20", "TOTAL 1,20",
			}, now)
			stale := parser.Parse([]string{
				"TIENDA PACO", "28/08/2015", "PAN 1,20", "TOTAL 1,20",
			}, now)
			Expect(fresh.Confidence).To(BeNumerically(">", stale.Confidence))
		})

		It("rewards a reconciling total with higher confidence", func() {
			matched := parser.Parse([]string{
				"TIENDA PACO", "PAN 1,20", "LECHE 0,95", "TOTAL 2,15",
			}, now)
			off := parser.Parse([]string{
				"TIENDA PACO", "PAN 1,20", "LECHE 0,95", "TOTAL 9,99",
			}, now)
			Expect(matched.Confidence).To(BeNumerically(">", off.Confidence))
		})
	})

	Describe("headerStoreName", func() {
		It("skips addresses, dates and tax IDs", func() {
			name := headerStoreName([]string{
				"C/ MAYOR 15",
				"NIF B12345678",
				"28/08/2026",
				"BAR MANOLO",
			})
			Expect(name).To(Equal("BAR MANOLO"))
		})

		It("returns empty when nothing qualifies", func() {
			Expect(headerStoreName([]string{"12345", ""})).To(BeEmpty())
		})
	})
})
