package geometry

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/dcastano/reciboscan/constants"
	"github.com/dcastano/reciboscan/internal/registry"
)

var _ = Describe("ZoneDetector", func() {
	var (
		detector *ZoneDetector
		preset   *registry.RegionalPreset
	)

	BeforeEach(func() {
		chains := registry.NewChainRegistry(registry.BuiltinChains())
		detector = NewZoneDetector(chains, nil)
		preset = registry.NewRegionRegistry(registry.BuiltinRegions(), "ES").Default()
	})

	Describe("Detect", func() {
		It("finds store name, date, items and total zones", func() {
			d := doc(
				line("MERCADONA", 100, 40),
				line("28/08/2026", 100, 80),
				line("PAN 1,20", 100, 200),
				line("LECHE 0,95", 100, 240),
				line("TOTAL 2,15", 100, 800),
			)
			res := detector.Detect(d, 1000, 1000, preset)

			_, hasStore := res.Zones.Get(constants.ZoneStoreName)
			Expect(hasStore).To(BeTrue())
			_, hasDate := res.Zones.Get(constants.ZoneDate)
			Expect(hasDate).To(BeTrue())
			_, hasItems := res.Zones.Get(constants.ZoneProductNames)
			Expect(hasItems).To(BeTrue())
			total, hasTotal := res.Zones.Get(constants.ZoneTotal)
			Expect(hasTotal).To(BeTrue())
			Expect(total.Box.CenterY()).To(BeNumerically("~", 0.81, 0.01))
			Expect(res.Confidence).To(Equal(100))
		})

		It("merges a totals keyword with a standalone price below it", func() {
			d := doc(
				line("BAR MANOLO", 100, 40),
				line("CAFE 1,40", 100, 200),
				line("TOTAL", 100, 800),
				line("1,40", 600, 830),
			)
			res := detector.Detect(d, 1000, 1000, preset)

			total, ok := res.Zones.Get(constants.ZoneTotal)
			Expect(ok).To(BeTrue())
			// merged zone must cover both the keyword and the price
			Expect(total.Box.Contains(0.175, 0.81)).To(BeTrue())
			Expect(total.Box.Contains(0.675, 0.84)).To(BeTrue())
		})

		It("splits columnar receipts into name and price zones", func() {
			d := doc(
				line("SUPER AHORRO", 100, 40),
				line("PAN", 50, 150),
				line("LECHE", 50, 200),
				line("HUEVOS", 50, 250),
				line("1,20", 700, 150),
				line("0,95", 700, 200),
				line("2,50", 700, 250),
			)
			res := detector.Detect(d, 1000, 1000, preset)

			names, hasNames := res.Zones.Get(constants.ZoneProductNames)
			prices, hasPrices := res.Zones.Get(constants.ZonePrices)
			Expect(hasNames).To(BeTrue())
			Expect(hasPrices).To(BeTrue())
			Expect(names.Box.CenterX()).To(BeNumerically("<", prices.Box.CenterX()))
		})

		It("returns no zones for an empty document", func() {
			res := detector.Detect(doc(), 1000, 1000, preset)
			Expect(res.Zones).To(BeEmpty())
			Expect(res.Confidence).To(BeZero())
		})
	})
})
