package parse

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"
)

var _ = Describe("extractTotals", func() {
	kw := totalsKeywords{
		total:    []string{"TOTAL A PAGAR", "TOTAL"},
		subtotal: []string{"SUBTOTAL"},
		tax:      []string{"IVA", "I.V.A"},
		discount: []string{"DESCUENTO", "DTO"},
	}

	It("never mistakes a tax line for the total", func() {
		t := extractTotals([]string{"PAN 1,20", "IVA 21% 1,05", "TOTAL 6,05"}, kw, ",")
		Expect(t.Tax).NotTo(BeNil())
		Expect(t.Tax.Equal(decimal.RequireFromString("1.05"))).To(BeTrue())
		Expect(t.Total).NotTo(BeNil())
		Expect(t.Total.Equal(decimal.RequireFromString("6.05"))).To(BeTrue())
	})

	It("never mistakes a subtotal line for the total", func() {
		t := extractTotals([]string{"SUBTOTAL 5,00", "TOTAL A PAGAR 6,05"}, kw, ",")
		Expect(t.Subtotal).NotTo(BeNil())
		Expect(t.Subtotal.Equal(decimal.RequireFromString("5.00"))).To(BeTrue())
		Expect(t.Total.Equal(decimal.RequireFromString("6.05"))).To(BeTrue())
	})

	It("takes the amount from the next line when OCR split them", func() {
		t := extractTotals([]string{"TOTAL", "6,05"}, kw, ",")
		Expect(t.Total).NotTo(BeNil())
		Expect(t.Total.Equal(decimal.RequireFromString("6.05"))).To(BeTrue())
	})

	It("stores discounts as positive magnitudes", func() {
		t := extractTotals([]string{"DESCUENTO -0,50", "TOTAL 5,55"}, kw, ",")
		Expect(t.Discount).NotTo(BeNil())
		Expect(t.Discount.Equal(decimal.RequireFromString("0.50"))).To(BeTrue())
	})

	It("returns empty totals when nothing matches", func() {
		t := extractTotals([]string{"PAN 1,20"}, kw, ",")
		Expect(t.Total).To(BeNil())
		Expect(t.Tax).To(BeNil())
	})
})
