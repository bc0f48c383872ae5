package parse

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	"github.com/dcastano/reciboscan/constants"
)

var _ = Describe("ExtractQuantity", func() {
	It("defaults to quantity 1 each", func() {
		q := ExtractQuantity("QUESO COTTAGE", ",")
		Expect(q.Value.Equal(decimal.NewFromInt(1))).To(BeTrue())
		Expect(q.Unit).To(Equal(constants.UnitEach))
		Expect(q.Name).To(Equal("QUESO COTTAGE"))
	})

	It("extracts a prefix multiplier", func() {
		q := ExtractQuantity("2 x AGUA MINERAL", ",")
		Expect(q.Value.Equal(decimal.NewFromInt(2))).To(BeTrue())
		Expect(q.Name).To(Equal("AGUA MINERAL"))
	})

	It("extracts a suffix multiplier", func() {
		q := ExtractQuantity("AGUA MINERAL x3", ",")
		Expect(q.Value.Equal(decimal.NewFromInt(3))).To(BeTrue())
		Expect(q.Name).To(Equal("AGUA MINERAL"))
	})

	It("extracts a bare leading count", func() {
		q := ExtractQuantity("4 YOGUR NATURAL", ",")
		Expect(q.Value.Equal(decimal.NewFromInt(4))).To(BeTrue())
		Expect(q.Name).To(Equal("YOGUR NATURAL"))
	})

	It("extracts a leading weight with unit", func() {
		q := ExtractQuantity("0,972 kg PLATANO", ",")
		Expect(q.Value.Equal(decimal.RequireFromString("0.972"))).To(BeTrue())
		Expect(q.Unit).To(Equal(constants.UnitKilogram))
		Expect(q.Name).To(Equal("PLATANO"))
	})

	It("extracts a trailing weight with unit", func() {
		q := ExtractQuantity("PECHUGA POLLO 1,250 kg", ",")
		Expect(q.Value.Equal(decimal.RequireFromString("1.250"))).To(BeTrue())
		Expect(q.Unit).To(Equal(constants.UnitKilogram))
		Expect(q.Name).To(Equal("PECHUGA POLLO"))
	})
})
