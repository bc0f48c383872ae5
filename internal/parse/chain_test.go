package parse

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	"github.com/dcastano/reciboscan/constants"
	"github.com/dcastano/reciboscan/internal/detect"
	"github.com/dcastano/reciboscan/internal/registry"
)

var _ = Describe("ChainParser", func() {
	var (
		parser *ChainParser
		chains *registry.ChainRegistry
		now    time.Time
	)

	BeforeEach(func() {
		chains = registry.NewChainRegistry(registry.BuiltinChains())
		regions := registry.NewRegionRegistry(registry.BuiltinRegions(), "ES")
		parser = NewChainParser(regions, nil)
		now = time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	})

	mercadonaMatch := func() detect.Match {
		t, ok := chains.ByID("mercadona")
		Expect(ok).To(BeTrue())
		return detect.Match{Template: t, Method: constants.DetectionName, Confidence: 90}
	}

	Describe("Parse", func() {
		When("given a simple Mercadona receipt", func() {
			It("extracts the item with quantity and both prices", func() {
				r := parser.Parse([]string{
					"MERCADONA",
					"2 QUESO COTTAGE 1,35 2,70",
					"TOTAL 2,70",
				}, mercadonaMatch(), now)

				Expect(r.StoreName).To(Equal("Mercadona"))
				Expect(r.MerchantID).To(Equal("mercadona"))
				Expect(r.Items).To(HaveLen(1))
				item := r.Items[0]
				Expect(item.Name).To(Equal("QUESO COTTAGE"))
				Expect(item.Quantity.Equal(decimal.NewFromInt(2))).To(BeTrue())
				Expect(item.UnitPrice.Equal(decimal.RequireFromString("1.35"))).To(BeTrue())
				Expect(item.TotalPrice.Equal(decimal.RequireFromString("2.70"))).To(BeTrue())
				Expect(r.Total).NotTo(BeNil())
				Expect(r.Total.Equal(decimal.RequireFromString("2.70"))).To(BeTrue())
				Expect(r.ItemSum().Equal(*r.Total)).To(BeTrue())
			})
		})

		When("a weighted item spans two lines", func() {
			It("merges the name line with the weight line", func() {
				r := parser.Parse([]string{
					"MERCADONA",
					"1 PLATANO",
					"0,972 kg 1,99 €/kg 1,93",
					"TOTAL 1,93",
				}, mercadonaMatch(), now)

				Expect(r.Items).To(HaveLen(1))
				item := r.Items[0]
				Expect(item.Name).To(Equal("PLATANO"))
				Expect(item.Quantity.Equal(decimal.RequireFromString("0.972"))).To(BeTrue())
				Expect(item.Unit).To(Equal(constants.UnitKilogram))
				Expect(item.UnitPrice.Equal(decimal.RequireFromString("1.99"))).To(BeTrue())
				Expect(item.TotalPrice.Equal(decimal.RequireFromString("1.93"))).To(BeTrue())
			})
		})

		When("the receipt carries a date and tax lines", func() {
			It("extracts date, tax and total", func() {
				r := parser.Parse([]string{
					"MERCADONA S.A.",
					"28/08/2026 19:32",
					"1 PAN 1,20",
					"IVA 21% 1,05",
					"TOTAL 6,05",
				}, mercadonaMatch(), now)

				Expect(r.Date).NotTo(BeNil())
				Expect(r.Date.Day()).To(Equal(28))
				Expect(r.Tax.Equal(decimal.RequireFromString("1.05"))).To(BeTrue())
				Expect(r.Total.Equal(decimal.RequireFromString("6.05"))).To(BeTrue())
			})
		})

		When("lines are noise", func() {
			It("does not turn addresses or card masks into items", func() {
				r := parser.Parse([]string{
					"MERCADONA",
					"C/ MAYOR 15",
					"**** 1234",
					"TARJETA BANCARIA",
				}, mercadonaMatch(), now)
				Expect(r.Items).To(BeEmpty())
			})
		})

		It("applies template corrections before extraction", func() {
			r := parser.Parse([]string{
				"MERCAD0NA",
				"1 PAN 1,20",
				"T0TAL (€) 1,20",
			}, mercadonaMatch(), now)
			Expect(r.Total).NotTo(BeNil())
			Expect(r.Total.Equal(decimal.RequireFromString("1.20"))).To(BeTrue())
		})

		It("never returns an error value, only lower confidence", func() {
			empty := parser.Parse([]string{"MERCADONA"}, mercadonaMatch(), now)
			full := parser.Parse([]string{
				"MERCADONA",
				"28/08/2026",
				"1 PAN 1,20",
				"TOTAL 1,20",
			}, mercadonaMatch(), now)
			Expect(empty).NotTo(BeNil())
			Expect(empty.Confidence).To(BeNumerically("<", full.Confidence))
		})
	})
})
