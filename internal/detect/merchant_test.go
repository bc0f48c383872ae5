package detect

import (
	"io"
	"log/slog"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/dcastano/reciboscan/constants"
	"github.com/dcastano/reciboscan/internal/registry"
)

func TestDetect(t *testing.T) {
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
	RegisterFailHandler(Fail)
	RunSpecs(t, "Detect Suite")
}

var _ = Describe("Detector", func() {
	var detector *Detector

	BeforeEach(func() {
		detector = NewDetector(registry.NewChainRegistry(registry.BuiltinChains()), nil)
	})

	Describe("Detect", func() {
		When("a known tax ID appears", func() {
			It("matches the merchant with top confidence", func() {
				m := detector.Detect([]string{
					"SUPERMERCADOS S.A.",
					"NIF: A46103834",
					"1 PAN 1,20",
				})
				Expect(m.Template).NotTo(BeNil())
				Expect(m.Template.ID).To(Equal("mercadona"))
				Expect(m.Method).To(Equal(constants.DetectionTaxID))
				Expect(m.Confidence).To(Equal(98))
			})

			It("beats a conflicting name match", func() {
				m := detector.Detect([]string{
					"MERCADONA",
					"CIF A-28425270",
				})
				Expect(m.Template.ID).To(Equal("carrefour"))
				Expect(m.Method).To(Equal(constants.DetectionTaxID))
			})
		})

		When("only the store name appears", func() {
			It("matches at name confidence", func() {
				m := detector.Detect([]string{"MERCADONA", "1 PAN 1,20"})
				Expect(m.Template.ID).To(Equal("mercadona"))
				Expect(m.Method).To(Equal(constants.DetectionName))
				Expect(m.Confidence).To(Equal(90))
			})

			It("tolerates the O-to-zero confusion", func() {
				m := detector.Detect([]string{"MERCAD0NA"})
				Expect(m.Template.ID).To(Equal("mercadona"))
				Expect(m.Method).To(Equal(constants.DetectionName))
			})
		})

		When("neither tax ID nor name is legible", func() {
			It("falls back to fingerprint phrases, scaling with matches", func() {
				m := detector.Detect([]string{
					"FACTURA SIMPLIFICADA",
					"SE ADMITEN DEVOLUCIONES",
				})
				Expect(m.Template.ID).To(Equal("mercadona"))
				Expect(m.Method).To(Equal(constants.DetectionFingerprint))
				Expect(m.Confidence).To(Equal(80))
			})

			It("caps fingerprint confidence at 85", func() {
				m := detector.Detect([]string{
					"FACTURA SIMPLIFICADA",
					"TARJETA CLIENTE",
					"SE ADMITEN DEVOLUCIONES",
					"PARKING",
				})
				Expect(m.Method).To(Equal(constants.DetectionFingerprint))
				Expect(m.Confidence).To(Equal(85))
			})
		})

		When("only a mangled header word survives", func() {
			It("uses the display-name heuristic at low confidence", func() {
				m := detector.Detect([]string{"SUPERALCAMPO", "1 PAN 1,20"})
				Expect(m.Template.ID).To(Equal("alcampo"))
				Expect(m.Method).To(Equal(constants.DetectionHeuristic))
				Expect(m.Confidence).To(Equal(60))
			})
		})

		When("nothing matches", func() {
			It("reports no merchant", func() {
				m := detector.Detect([]string{"BAR PEPE", "CAFE 1,40"})
				Expect(m.Template).To(BeNil())
				Expect(m.Method).To(Equal(constants.DetectionNone))
			})
		})
	})
})
