package parse

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/dcastano/reciboscan/internal/registry"
)

var _ = Describe("ExtractDate", func() {
	patterns := registry.DefaultDatePatterns()

	It("parses a day-first date with time", func() {
		d := ExtractDate([]string{"MERCADONA", "28/08/2026 19:32"}, patterns, true)
		Expect(d).NotTo(BeNil())
		Expect(*d).To(Equal(time.Date(2026, 8, 28, 19, 32, 0, 0, time.UTC)))
	})

	It("parses a two-digit year", func() {
		d := ExtractDate([]string{"15/03/24"}, patterns, true)
		Expect(d).NotTo(BeNil())
		Expect(*d).To(Equal(time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)))
	})

	It("parses ISO dates regardless of ordering", func() {
		d := ExtractDate([]string{"2025-01-31"}, patterns, false)
		Expect(d).NotTo(BeNil())
		Expect(*d).To(Equal(time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC)))
	})

	It("swaps components when the declared ordering is impossible", func() {
		// month-first requested, but 28 cannot be a month
		d := ExtractDate([]string{"28/08/2026"}, patterns, false)
		Expect(d).NotTo(BeNil())
		Expect(d.Day()).To(Equal(28))
		Expect(d.Month()).To(Equal(time.August))
	})

	It("respects month-first for ambiguous dates", func() {
		d := ExtractDate([]string{"03/04/2026"}, patterns, false)
		Expect(d).NotTo(BeNil())
		Expect(d.Month()).To(Equal(time.March))
		Expect(d.Day()).To(Equal(4))
	})

	It("rejects implausible years", func() {
		Expect(ExtractDate([]string{"01/01/1999"}, patterns, true)).To(BeNil())
	})

	It("returns nil when no date is present", func() {
		Expect(ExtractDate([]string{"PAN 1,20", "TOTAL 1,20"}, patterns, true)).To(BeNil())
	})
})

var _ = Describe("DetectDayFirst", func() {
	preset := registry.NewRegionRegistry(registry.BuiltinRegions(), "US").ByRegion("US")

	It("uses the structural signal when a component exceeds 12", func() {
		Expect(DetectDayFirst([]string{"28/08/2026"}, preset, nil)).To(BeTrue())
		Expect(DetectDayFirst([]string{"08/28/2026"}, preset, nil)).To(BeFalse())
	})

	It("falls back to locale keyword density", func() {
		lines := []string{"03/04/2026", "SALES TAX 1.00", "THANK YOU"}
		Expect(DetectDayFirst(lines, preset, nil)).To(BeFalse())
	})

	It("uses the hint when nothing else decides", func() {
		Expect(DetectDayFirst([]string{"03/04/2026"}, nil, &DateHint{DayFirst: false})).To(BeFalse())
	})

	It("defaults to day-first", func() {
		Expect(DetectDayFirst([]string{"03/04/2026"}, nil, nil)).To(BeTrue())
	})
})
