package registry

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestRegistry(t *testing.T) {
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
	RegisterFailHandler(Fail)
	RunSpecs(t, "Registry Suite")
}

var _ = Describe("Fold", func() {
	It("uppercases and strips diacritics", func() {
		Expect(Fold("Teléfono")).To(Equal("TELEFONO"))
		Expect(Fold("PANADERÍA")).To(Equal("PANADERIA"))
	})

	It("folds the ene like any other diacritic", func() {
		Expect(Fold("año")).To(Equal("ANO"))
	})
})

var _ = Describe("ContainsKeyword", func() {
	It("matches case- and accent-insensitively", func() {
		Expect(ContainsKeyword("total a pagar: 12,50", []string{"TOTAL A PAGAR"})).To(BeTrue())
		Expect(ContainsKeyword("TELÉFONO 912345678", []string{"TELEFONO"})).To(BeTrue())
		Expect(ContainsKeyword("PAN 1,20", []string{"TOTAL"})).To(BeFalse())
	})

	It("never matches a keyword embedded in a longer word", func() {
		Expect(ContainsKeyword("GEL DIVA 2,95", []string{"IVA"})).To(BeFalse())
		Expect(ContainsKeyword("SUBTOTAL 9,00", []string{"TOTAL"})).To(BeFalse())
		Expect(ContainsKeyword("IVA 21% 1,05", []string{"IVA"})).To(BeTrue())
		Expect(ContainsKeyword("I.V.A. 21%", []string{"I.V.A"})).To(BeTrue())
	})

	It("accepts punctuation-edged keywords beside words", func() {
		Expect(ContainsKeyword("C/ MAYOR 15", []string{"C/"})).To(BeTrue())
		Expect(ContainsKeyword("TOTAL (€) 1,20", []string{"TOTAL (€)"})).To(BeTrue())
	})
})

var _ = Describe("ChainRegistry", func() {
	var reg *ChainRegistry

	BeforeEach(func() {
		reg = NewChainRegistry(BuiltinChains())
	})

	Describe("ByTaxID", func() {
		It("resolves separator variants to the same merchant", func() {
			for _, id := range []string{"A46103834", "A-46103834", "a 46103834", "A.46103834"} {
				t, ok := reg.ByTaxID(id)
				Expect(ok).To(BeTrue(), id)
				Expect(t.ID).To(Equal("mercadona"))
			}
		})

		It("misses unknown identifiers", func() {
			_, ok := reg.ByTaxID("B99999999")
			Expect(ok).To(BeFalse())
		})
	})

	Describe("ByID", func() {
		It("finds every builtin", func() {
			for _, want := range []string{"mercadona", "carrefour", "lidl", "dia", "eroski", "alcampo"} {
				_, ok := reg.ByID(want)
				Expect(ok).To(BeTrue(), want)
			}
		})
	})
})

var _ = Describe("RegionRegistry", func() {
	var reg *RegionRegistry

	BeforeEach(func() {
		reg = NewRegionRegistry(BuiltinRegions(), "ES")
	})

	Describe("DetectFromText", func() {
		It("votes by locale vocabulary", func() {
			Expect(reg.DetectFromText("SALES TAX 1.00\nTHANK YOU\nCASHIER 4").Region).To(Equal("US"))
			Expect(reg.DetectFromText("RFC XAXX010101000\nSUCURSAL CENTRO").Region).To(Equal("MX"))
		})

		It("falls back to the default on silence", func() {
			Expect(reg.DetectFromText("12345").Region).To(Equal("ES"))
		})
	})

	Describe("ByRegion", func() {
		It("is case-insensitive and falls back when unknown", func() {
			Expect(reg.ByRegion("us").Region).To(Equal("US"))
			Expect(reg.ByRegion("FR").Region).To(Equal("ES"))
		})
	})
})

var _ = Describe("TaxRegionRegistry", func() {
	var reg *TaxRegionRegistry

	BeforeEach(func() {
		reg = NewTaxRegionRegistry(BuiltinTaxRegions(), "ES_IVA")
	})

	Describe("ExtractPostalCode", func() {
		It("finds a standalone five-digit province code", func() {
			code, ok := ExtractPostalCode("AVDA MESA Y LOPEZ 7\n35001 LAS PALMAS")
			Expect(ok).To(BeTrue())
			Expect(code).To(Equal("35001"))
		})

		It("ignores longer digit runs and bogus provinces", func() {
			_, ok := ExtractPostalCode("TEL 912345678")
			Expect(ok).To(BeFalse())
			_, ok = ExtractPostalCode("REF 99123")
			Expect(ok).To(BeFalse())
		})
	})

	Describe("ByPostalCode", func() {
		It("routes island and peninsular codes to their regimes", func() {
			igic, ok := reg.ByPostalCode("35001")
			Expect(ok).To(BeTrue())
			Expect(igic.ID).To(Equal("ES_IGIC"))

			ipsi, ok := reg.ByPostalCode("51001")
			Expect(ok).To(BeTrue())
			Expect(ipsi.ID).To(Equal("ES_IPSI"))

			iva, ok := reg.ByPostalCode("28001")
			Expect(ok).To(BeTrue())
			Expect(iva.ID).To(Equal("ES_IVA"))
		})
	})
})

var _ = Describe("ParseChainTemplate", func() {
	valid := []byte(`{
		"id": "panaderia-lopez",
		"display_name": "Panaderia Lopez",
		"version": 1,
		"name_patterns": ["(?i)PANADERIA\\s+LOPEZ"],
		"tax_ids": ["B12345678"],
		"item_grammars": [
			{
				"name": "name-total",
				"pattern": "^(\\D.+?)\\s+(\\d{1,4},\\d{2})$",
				"roles": {"name": 1, "totalPrice": 2}
			}
		],
		"total_keywords": ["TOTAL"]
	}`)

	It("compiles a valid template with defaults filled", func() {
		t, err := ParseChainTemplate(valid)
		Expect(err).NotTo(HaveOccurred())
		Expect(t.ID).To(Equal("panaderia-lopez"))
		Expect(t.DecimalSeparator).To(Equal(","))
		Expect(t.DayFirst).To(BeTrue())
		Expect(t.DatePatterns).NotTo(BeEmpty())
		Expect(t.ItemGrammars).To(HaveLen(1))
		Expect(t.ItemGrammars[0].Roles[RoleName]).To(Equal(1))
	})

	It("rejects files missing required fields", func() {
		_, err := ParseChainTemplate([]byte(`{"id": "x"}`))
		Expect(err).To(HaveOccurred())
	})

	It("rejects unknown grammar roles", func() {
		_, err := ParseChainTemplate([]byte(`{
			"id": "x",
			"display_name": "X",
			"name_patterns": ["X"],
			"item_grammars": [{"name": "g", "pattern": "x", "roles": {"bogus": 1}}],
			"total_keywords": ["TOTAL"]
		}`))
		Expect(err).To(MatchError(ContainSubstring("unknown role")))
	})

	It("rejects invalid regex patterns", func() {
		_, err := ParseChainTemplate([]byte(`{
			"id": "x",
			"display_name": "X",
			"name_patterns": ["["],
			"item_grammars": [{"name": "g", "pattern": "x", "roles": {"name": 1}}],
			"total_keywords": ["TOTAL"]
		}`))
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("LoadChainTemplates", func() {
	It("loads builtins when the directory is empty", func() {
		reg, err := LoadChainTemplates("", nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(reg.Len()).To(Equal(len(BuiltinChains())))
	})

	It("overrides a builtin when the file shares its ID", func() {
		dir := GinkgoT().TempDir()
		override := []byte(`{
			"id": "lidl",
			"display_name": "Lidl Override",
			"name_patterns": ["(?i)LIDL"],
			"item_grammars": [
				{"name": "name-total", "pattern": "^(\\D.+?)\\s+(\\d{1,4},\\d{2})$", "roles": {"name": 1, "totalPrice": 2}}
			],
			"total_keywords": ["TOTAL"]
		}`)
		Expect(os.WriteFile(filepath.Join(dir, "lidl.json"), override, 0o644)).To(Succeed())

		reg, err := LoadChainTemplates(dir, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(reg.Len()).To(Equal(len(BuiltinChains())))
		t, ok := reg.ByID("lidl")
		Expect(ok).To(BeTrue())
		Expect(t.DisplayName).To(Equal("Lidl Override"))
	})

	It("fails on a malformed template file", func() {
		dir := GinkgoT().TempDir()
		Expect(os.WriteFile(filepath.Join(dir, "bad.json"), []byte(`{"id": 7}`), 0o644)).To(Succeed())
		_, err := LoadChainTemplates(dir, nil)
		Expect(err).To(HaveOccurred())
	})
})
