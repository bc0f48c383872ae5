package registry

import "regexp"

// Shared date patterns, most specific first. Group order is always
// day-ish, month-ish, year unless the pattern is ISO.
var (
	reDateTimeES = regexp.MustCompile(`(\d{1,2})[/.-](\d{1,2})[/.-](\d{4})\s+(\d{1,2}):(\d{2})`)
	reDateES     = regexp.MustCompile(`(\d{1,2})[/.-](\d{1,2})[/.-](\d{4})`)
	reDateShort  = regexp.MustCompile(`\b(\d{1,2})[/.-](\d{1,2})[/.-](\d{2})\b`)
	reDateISO    = regexp.MustCompile(`(\d{4})-(\d{1,2})-(\d{1,2})`)
)

// DefaultDatePatterns returns the shared date patterns used when a
// template declares none. Order is most specific first.
func DefaultDatePatterns() []*regexp.Regexp {
	return []*regexp.Regexp{reDateTimeES, reDateES, reDateShort, reDateISO}
}

// grammarAmount matches a two-decimal amount with either separator.
const grammarAmount = `(\d{1,4}[.,]\d{2})`

// BuiltinChains returns the built-in Spanish chain templates. The set
// can be extended at startup from JSON files (see LoadChainTemplates).
func BuiltinChains() []*ChainTemplate {
	return []*ChainTemplate{
		mercadona(),
		carrefour(),
		lidl(),
		dia(),
		eroski(),
		alcampo(),
	}
}

func mercadona() *ChainTemplate {
	return &ChainTemplate{
		ID:          "mercadona",
		DisplayName: "Mercadona",
		Version:     3,
		NamePatterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\bMERCADONA\b`),
			regexp.MustCompile(`(?i)MERCAD[O0]NA`),
		},
		TaxIDs:       []string{"A46103834"},
		Fingerprints: []string{"FACTURA SIMPLIFICADA", "TARJETA CLIENTE", "SE ADMITEN DEVOLUCIONES", "PARKING"},
		ItemGrammars: []ItemGrammar{
			{
				Name:    "qty-name-unit-total",
				Pattern: regexp.MustCompile(`^(\d{1,3})\s+(\D.*?)\s+` + grammarAmount + `\s+` + grammarAmount + `$`),
				Roles: map[GrammarRole]int{
					RoleQuantity: 1, RoleName: 2, RoleUnitPrice: 3, RoleTotalPrice: 4,
				},
			},
			{
				Name:    "qty-name-total",
				Pattern: regexp.MustCompile(`^(\d{1,3})\s+(\D.*?)\s+` + grammarAmount + `$`),
				Roles: map[GrammarRole]int{
					RoleQuantity: 1, RoleName: 2, RoleTotalPrice: 3,
				},
			},
			{
				Name:    "weighted-continuation",
				Pattern: regexp.MustCompile(`^(\d{1,3}[.,]\d{1,3})\s*(kg|g|l|ml)\s+` + grammarAmount + `\s*(?:€|EUR)?/(?:kg|g|l|ml)\s+` + grammarAmount + `$`),
				Roles: map[GrammarRole]int{
					RoleQuantity: 1, RoleUnit: 2, RoleUnitPrice: 3, RoleTotalPrice: 4,
				},
				Continuation: true,
			},
			{
				Name:    "name-total",
				Pattern: regexp.MustCompile(`^(\D.+?)\s+` + grammarAmount + `$`),
				Roles: map[GrammarRole]int{
					RoleName: 1, RoleTotalPrice: 2,
				},
			},
			{
				// first line of a weighted item: "1 PLATANO", weight and
				// unit price follow on the next line
				Name:    "qty-name",
				Pattern: regexp.MustCompile(`^(\d{1,3})\s+([A-ZÁÉÍÓÚÑ]\D*?)$`),
				Roles: map[GrammarRole]int{
					RoleQuantity: 1, RoleName: 2,
				},
			},
		},
		DatePatterns:     []*regexp.Regexp{reDateTimeES, reDateES, reDateShort, reDateISO},
		SkipKeywords:     []string{"TELEFONO", "TELF", "AVDA", "CALLE", "C/", "POLIGONO", "FACTURA SIMPLIFICADA", "OP:", "CAJA", "TARJETA", "DEVOLUCION", "PRECIO", "DESCRIPCION", "IMPORTE"},
		TotalKeywords:    []string{"TOTAL (€)", "TOTAL"},
		SubtotalKeywords: []string{"SUBTOTAL"},
		TaxKeywords:      []string{"IVA", "I.V.A"},
		DiscountKeywords: []string{"DESCUENTO", "DTO"},
		Corrections: []Correction{
			{regexp.MustCompile(`(?i)MERCAD[O0]NA`), "MERCADONA"},
			{regexp.MustCompile(`T[O0]TAL\s*\(€\)`), "TOTAL (€)"},
		},
		DecimalSeparator: ",",
		DayFirst:         true,
		TaxRegime:        "ES_IVA",
	}
}

func carrefour() *ChainTemplate {
	return &ChainTemplate{
		ID:          "carrefour",
		DisplayName: "Carrefour",
		Version:     2,
		NamePatterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\bCARREFOUR\b`),
			regexp.MustCompile(`(?i)CARREF[O0]UR`),
		},
		TaxIDs:       []string{"A28425270"},
		Fingerprints: []string{"CLUB CARREFOUR", "EL CHEQUE AHORRO", "GRACIAS POR SU VISITA"},
		ItemGrammars: []ItemGrammar{
			{
				Name:    "name-qty-unit-total",
				Pattern: regexp.MustCompile(`^(\D.*?)\s+(\d{1,3})\s*[xX]\s*` + grammarAmount + `\s+` + grammarAmount + `$`),
				Roles: map[GrammarRole]int{
					RoleName: 1, RoleQuantity: 2, RoleUnitPrice: 3, RoleTotalPrice: 4,
				},
			},
			{
				Name:    "weighted-continuation",
				Pattern: regexp.MustCompile(`^(\d{1,3}[.,]\d{1,3})\s*(kg|g)\s*[xX]?\s*` + grammarAmount + `\s*(?:€|EUR)?/(?:kg|g)\s+` + grammarAmount + `$`),
				Roles: map[GrammarRole]int{
					RoleQuantity: 1, RoleUnit: 2, RoleUnitPrice: 3, RoleTotalPrice: 4,
				},
				Continuation: true,
			},
			{
				Name:    "name-total",
				Pattern: regexp.MustCompile(`^(\D.+?)\s+` + grammarAmount + `\s*[A-Z]?$`),
				Roles: map[GrammarRole]int{
					RoleName: 1, RoleTotalPrice: 2,
				},
			},
		},
		DatePatterns:     []*regexp.Regexp{reDateTimeES, reDateES, reDateShort},
		SkipKeywords:     []string{"CENTRO COMERCIAL", "TELEFONO", "CLUB CARREFOUR", "TICKET", "CAJA", "VENDEDOR", "N.I.F", "NIF"},
		TotalKeywords:    []string{"TOTAL A PAGAR", "TOTAL COMPRA", "TOTAL"},
		SubtotalKeywords: []string{"SUBTOTAL", "SUB-TOTAL"},
		TaxKeywords:      []string{"IVA", "I.V.A"},
		DiscountKeywords: []string{"DESCUENTO", "AHORRO", "DTO"},
		DecimalSeparator: ",",
		DayFirst:         true,
		TaxRegime:        "ES_IVA",
	}
}

func lidl() *ChainTemplate {
	return &ChainTemplate{
		ID:          "lidl",
		DisplayName: "Lidl",
		Version:     2,
		NamePatterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\bLIDL\b`),
			regexp.MustCompile(`(?i)\bL[I1]DL\b`),
		},
		TaxIDs:       []string{"A60195278"},
		Fingerprints: []string{"LIDL SUPERMERCADOS", "WWW.LIDL.ES", "COPIA CLIENTE"},
		ItemGrammars: []ItemGrammar{
			{
				Name:    "name-total-taxmark",
				Pattern: regexp.MustCompile(`^(\D.*?)\s+` + grammarAmount + `\s*[ABC]?$`),
				Roles: map[GrammarRole]int{
					RoleName: 1, RoleTotalPrice: 2,
				},
			},
			{
				Name:    "qty-x-unit",
				Pattern: regexp.MustCompile(`^(\d{1,3})\s*[xX]\s*` + grammarAmount + `$`),
				Roles: map[GrammarRole]int{
					RoleQuantity: 1, RoleUnitPrice: 2,
				},
				Continuation: true,
			},
			{
				Name:    "weighted-continuation",
				Pattern: regexp.MustCompile(`^(\d{1,3}[.,]\d{1,3})\s*(kg|g)\s*[xX]\s*` + grammarAmount + `\s*(?:€|EUR)?/(?:kg|g)$`),
				Roles: map[GrammarRole]int{
					RoleQuantity: 1, RoleUnit: 2, RoleUnitPrice: 3,
				},
				Continuation: true,
			},
			{
				// bare product name, price or weight on the next line
				Name:    "name-only",
				Pattern: regexp.MustCompile(`^(\D{3,})$`),
				Roles: map[GrammarRole]int{
					RoleName: 1,
				},
			},
		},
		DatePatterns:     []*regexp.Regexp{reDateTimeES, reDateES, reDateShort},
		SkipKeywords:     []string{"LIDL SUPERMERCADOS", "WWW.LIDL.ES", "TELEFONO", "EUR", "COPIA CLIENTE", "TICKET"},
		TotalKeywords:    []string{"TOTAL A PAGAR", "TOTAL"},
		SubtotalKeywords: []string{"SUBTOTAL"},
		TaxKeywords:      []string{"IVA", "I.V.A"},
		DiscountKeywords: []string{"DESCUENTO", "DTO"},
		DecimalSeparator: ",",
		DayFirst:         true,
		TaxRegime:        "ES_IVA",
	}
}

func dia() *ChainTemplate {
	return &ChainTemplate{
		ID:          "dia",
		DisplayName: "Dia",
		Version:     1,
		NamePatterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\bDIA\s+(?:S\.?A\.?|RETAIL|%)`),
			regexp.MustCompile(`(?i)SUPERMERCADOS\s+DIA`),
		},
		TaxIDs:       []string{"A28164754"},
		Fingerprints: []string{"CLUB DIA", "AHORRO CLUB DIA", "DIA.ES"},
		ItemGrammars: []ItemGrammar{
			{
				Name:    "qty-name-total",
				Pattern: regexp.MustCompile(`^(\d{1,3})\s+(\D.*?)\s+` + grammarAmount + `$`),
				Roles: map[GrammarRole]int{
					RoleQuantity: 1, RoleName: 2, RoleTotalPrice: 3,
				},
			},
			{
				Name:    "name-total",
				Pattern: regexp.MustCompile(`^(\D.+?)\s+` + grammarAmount + `$`),
				Roles: map[GrammarRole]int{
					RoleName: 1, RoleTotalPrice: 2,
				},
			},
		},
		DatePatterns:     []*regexp.Regexp{reDateTimeES, reDateES, reDateShort},
		SkipKeywords:     []string{"CLUB DIA", "TELEFONO", "CAJA", "TICKET", "AHORRO"},
		TotalKeywords:    []string{"TOTAL COMPRA", "TOTAL"},
		SubtotalKeywords: []string{"SUBTOTAL"},
		TaxKeywords:      []string{"IVA", "I.V.A"},
		DiscountKeywords: []string{"DESCUENTO", "AHORRO CLUB", "DTO"},
		DecimalSeparator: ",",
		DayFirst:         true,
		TaxRegime:        "ES_IVA",
	}
}

func eroski() *ChainTemplate {
	return &ChainTemplate{
		ID:          "eroski",
		DisplayName: "Eroski",
		Version:     1,
		NamePatterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\bEROSKI\b`),
		},
		TaxIDs:       []string{"F20033361"},
		Fingerprints: []string{"EROSKI CLUB", "CONTIGO"},
		ItemGrammars: []ItemGrammar{
			{
				Name:    "qty-name-unit-total",
				Pattern: regexp.MustCompile(`^(\d{1,3})\s+(\D.*?)\s+` + grammarAmount + `\s+` + grammarAmount + `$`),
				Roles: map[GrammarRole]int{
					RoleQuantity: 1, RoleName: 2, RoleUnitPrice: 3, RoleTotalPrice: 4,
				},
			},
			{
				Name:    "name-total",
				Pattern: regexp.MustCompile(`^(\D.+?)\s+` + grammarAmount + `$`),
				Roles: map[GrammarRole]int{
					RoleName: 1, RoleTotalPrice: 2,
				},
			},
		},
		DatePatterns:     []*regexp.Regexp{reDateTimeES, reDateES, reDateShort},
		SkipKeywords:     []string{"EROSKI CLUB", "TELEFONO", "CAJA", "TICKET"},
		TotalKeywords:    []string{"TOTAL A PAGAR", "TOTAL"},
		SubtotalKeywords: []string{"SUBTOTAL"},
		TaxKeywords:      []string{"IVA", "I.V.A"},
		DiscountKeywords: []string{"DESCUENTO", "DTO"},
		DecimalSeparator: ",",
		DayFirst:         true,
		TaxRegime:        "ES_IVA",
	}
}

func alcampo() *ChainTemplate {
	return &ChainTemplate{
		ID:          "alcampo",
		DisplayName: "Alcampo",
		Version:     1,
		NamePatterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\bALCAMPO\b`),
		},
		TaxIDs:       []string{"A28581882"},
		Fingerprints: []string{"ALCAMPO S.A", "GRACIAS POR SU COMPRA"},
		ItemGrammars: []ItemGrammar{
			{
				Name:    "name-qty-unit-total",
				Pattern: regexp.MustCompile(`^(\D.*?)\s+(\d{1,3})\s*[xX]\s*` + grammarAmount + `\s+` + grammarAmount + `$`),
				Roles: map[GrammarRole]int{
					RoleName: 1, RoleQuantity: 2, RoleUnitPrice: 3, RoleTotalPrice: 4,
				},
			},
			{
				Name:    "name-total",
				Pattern: regexp.MustCompile(`^(\D.+?)\s+` + grammarAmount + `$`),
				Roles: map[GrammarRole]int{
					RoleName: 1, RoleTotalPrice: 2,
				},
			},
		},
		DatePatterns:     []*regexp.Regexp{reDateTimeES, reDateES, reDateShort},
		SkipKeywords:     []string{"TELEFONO", "CAJA", "TICKET", "GRACIAS"},
		TotalKeywords:    []string{"TOTAL A PAGAR", "TOTAL"},
		SubtotalKeywords: []string{"SUBTOTAL"},
		TaxKeywords:      []string{"IVA", "I.V.A"},
		DiscountKeywords: []string{"DESCUENTO", "DTO"},
		DecimalSeparator: ",",
		DayFirst:         true,
		TaxRegime:        "ES_IVA",
	}
}
