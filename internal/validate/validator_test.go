package validate

import (
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	"github.com/dcastano/reciboscan/constants"
	"github.com/dcastano/reciboscan/internal/entity"
)

func TestValidate(t *testing.T) {
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
	RegisterFailHandler(Fail)
	RunSpecs(t, "Validate Suite")
}

func item(name string, price string) entity.ParsedItem {
	p := decimal.RequireFromString(price)
	return entity.ParsedItem{
		Name:       name,
		Quantity:   decimal.NewFromInt(1),
		Unit:       constants.UnitEach,
		UnitPrice:  p,
		TotalPrice: p,
	}
}

func receipt(items []entity.ParsedItem, total string) *entity.ParsedReceipt {
	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	r := &entity.ParsedReceipt{
		StoreName:     "TIENDA PACO",
		Date:          &now,
		Items:         items,
		PaymentMethod: constants.PaymentUnknown,
	}
	if total != "" {
		t := decimal.RequireFromString(total)
		r.Total = &t
	}
	return r
}

var _ = Describe("Validator", func() {
	var v *Validator

	BeforeEach(func() {
		v = New(nil)
	})

	Describe("Validate", func() {
		When("the item sum matches the total", func() {
			It("stays valid with no warnings", func() {
				r := receipt([]entity.ParsedItem{item("PAN", "1.20"), item("LECHE", "0.95")}, "2.15")
				res := v.Validate(r)

				Expect(res.IsValid).To(BeTrue())
				Expect(res.Warnings).To(BeEmpty())
				Expect(res.SuggestedTotal).To(BeNil())
				Expect(r.Confidence).To(Equal(res.Confidence))
			})
		})

		When("the sum is off by less than the partial band", func() {
			It("warns but stays valid", func() {
				r := receipt([]entity.ParsedItem{item("PAN", "9.00")}, "10.00")
				res := v.Validate(r)

				Expect(res.IsValid).To(BeTrue())
				Expect(res.Warnings).To(HaveLen(1))
				Expect(res.Warnings[0]).To(ContainSubstring("differs from total"))
			})
		})

		When("the sum contradicts the total", func() {
			It("invalidates the receipt and suggests the item sum", func() {
				r := receipt([]entity.ParsedItem{item("JAMON", "25.00")}, "30.00")
				res := v.Validate(r)

				Expect(res.IsValid).To(BeFalse())
				Expect(r.IsValid).To(BeFalse())
				Expect(res.SuggestedTotal).NotTo(BeNil())
				Expect(res.SuggestedTotal.Equal(decimal.RequireFromString("25.00"))).To(BeTrue())
			})
		})

		When("fields are missing", func() {
			It("warns for each absent field", func() {
				res := v.Validate(&entity.ParsedReceipt{})

				Expect(res.Warnings).To(ConsistOf(
					"store name not found",
					"date not found",
					"no items extracted",
					"total not found",
				))
				Expect(res.IsValid).To(BeTrue())
			})
		})

		It("flags implausibly high prices", func() {
			r := receipt([]entity.ParsedItem{item("VINO RESERVA", "450.00")}, "450.00")
			res := v.Validate(r)
			Expect(res.Warnings).To(ContainElement(ContainSubstring("unusually high price")))
		})

		It("flags duplicated line reads once per pair", func() {
			r := receipt([]entity.ParsedItem{
				item("PAN", "1.20"), item("PAN", "1.20"), item("PAN", "1.20"),
			}, "3.60")
			res := v.Validate(r)

			dups := 0
			for _, w := range res.Warnings {
				if strings.Contains(w, "duplicate item") {
					dups++
				}
			}
			Expect(dups).To(Equal(1))
		})

		When("the date is older than a year", func() {
			It("warns and scores below an identical fresh receipt", func() {
				parsedAt := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
				stale := receipt([]entity.ParsedItem{item("PAN", "1.20")}, "1.20")
				old := time.Date(2015, 8, 28, 12, 0, 0, 0, time.UTC)
				stale.Date = &old
				stale.ParsedAt = parsedAt

				fresh := receipt([]entity.ParsedItem{item("PAN", "1.20")}, "1.20")
				fresh.ParsedAt = parsedAt

				staleRes := v.Validate(stale)
				freshRes := v.Validate(fresh)

				Expect(staleRes.Warnings).To(ContainElement(ContainSubstring("not within the last year")))
				Expect(freshRes.Warnings).To(BeEmpty())
				Expect(staleRes.Confidence).To(BeNumerically("<", freshRes.Confidence))
			})
		})

		It("folds the parser's estimate into the final score", func() {
			low := receipt([]entity.ParsedItem{item("PAN", "1.20")}, "1.20")
			low.Confidence = 40
			high := receipt([]entity.ParsedItem{item("PAN", "1.20")}, "1.20")
			high.Confidence = 90

			lowRes := v.Validate(low)
			highRes := v.Validate(high)
			Expect(lowRes.Confidence).To(BeNumerically("<", highRes.Confidence))
		})

		It("scores a complete verified receipt higher than a sparse one", func() {
			full := receipt([]entity.ParsedItem{item("PAN", "1.20")}, "1.20")
			sparse := receipt([]entity.ParsedItem{item("PAN", "1.20")}, "")

			fullRes := v.Validate(full)
			sparseRes := v.Validate(sparse)
			Expect(fullRes.Confidence).To(BeNumerically(">", sparseRes.Confidence))
		})

		It("clamps confidence to the unit interval", func() {
			r := &entity.ParsedReceipt{
				Items: []entity.ParsedItem{
					item("A", "500.00"), item("A", "500.00"),
					item("B", "500.00"), item("B", "500.00"),
				},
			}
			res := v.Validate(r)
			Expect(res.Confidence).To(BeNumerically(">=", 0))
			Expect(res.Confidence).To(BeNumerically("<=", 100))
		})
	})
})
