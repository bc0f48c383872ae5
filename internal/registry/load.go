package registry

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// chainTemplateFile is the on-disk JSON shape of a chain template.
// Patterns are strings and compiled on load.
type chainTemplateFile struct {
	ID           string   `json:"id"`
	DisplayName  string   `json:"display_name"`
	Version      int      `json:"version"`
	NamePatterns []string `json:"name_patterns"`
	TaxIDs       []string `json:"tax_ids,omitempty"`
	Fingerprints []string `json:"fingerprints,omitempty"`

	ItemGrammars []struct {
		Name         string         `json:"name"`
		Pattern      string         `json:"pattern"`
		Roles        map[string]int `json:"roles"`
		Continuation bool           `json:"continuation,omitempty"`
	} `json:"item_grammars"`

	DatePatterns     []string `json:"date_patterns,omitempty"`
	SkipKeywords     []string `json:"skip_keywords,omitempty"`
	TotalKeywords    []string `json:"total_keywords"`
	SubtotalKeywords []string `json:"subtotal_keywords,omitempty"`
	TaxKeywords      []string `json:"tax_keywords,omitempty"`
	DiscountKeywords []string `json:"discount_keywords,omitempty"`

	Corrections []struct {
		Pattern     string `json:"pattern"`
		Replacement string `json:"replacement"`
	} `json:"corrections,omitempty"`

	DecimalSeparator string `json:"decimal_separator,omitempty"`
	DayFirst         *bool  `json:"day_first,omitempty"`
	TaxRegime        string `json:"tax_regime,omitempty"`
}

// chainTemplateSchema constrains chain template files before decoding.
func chainTemplateSchema() map[string]any {
	pattern := map[string]any{"type": "string", "minLength": 1}
	stringList := map[string]any{"type": "array", "items": pattern}
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"required":             []any{"id", "display_name", "name_patterns", "item_grammars", "total_keywords"},
		"properties": map[string]any{
			"id":            map[string]any{"type": "string", "pattern": `^[a-z0-9_-]+$`},
			"display_name":  pattern,
			"version":       map[string]any{"type": "integer", "minimum": 0},
			"name_patterns": stringList,
			"tax_ids":       stringList,
			"fingerprints":  stringList,
			"item_grammars": map[string]any{
				"type":     "array",
				"minItems": 1,
				"items": map[string]any{
					"type":                 "object",
					"additionalProperties": false,
					"required":             []any{"name", "pattern", "roles"},
					"properties": map[string]any{
						"name":    pattern,
						"pattern": pattern,
						"roles": map[string]any{
							"type": "object",
							"additionalProperties": map[string]any{
								"type": "integer", "minimum": 1,
							},
						},
						"continuation": map[string]any{"type": "boolean"},
					},
				},
			},
			"date_patterns":     stringList,
			"skip_keywords":     stringList,
			"total_keywords":    stringList,
			"subtotal_keywords": stringList,
			"tax_keywords":      stringList,
			"discount_keywords": stringList,
			"corrections": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type":                 "object",
					"additionalProperties": false,
					"required":             []any{"pattern", "replacement"},
					"properties": map[string]any{
						"pattern":     pattern,
						"replacement": map[string]any{"type": "string"},
					},
				},
			},
			"decimal_separator": map[string]any{"type": "string", "enum": []any{",", "."}},
			"day_first":         map[string]any{"type": "boolean"},
			"tax_regime":        pattern,
		},
	}
}

// validateAgainstSchema validates data against schemaMap.
func validateAgainstSchema(schemaMap map[string]any, data []byte) error {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(b)); err != nil {
		return fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}

// ParseChainTemplate validates and compiles one chain template file.
func ParseChainTemplate(data []byte) (*ChainTemplate, error) {
	if err := validateAgainstSchema(chainTemplateSchema(), data); err != nil {
		return nil, err
	}
	var f chainTemplateFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode template: %w", err)
	}

	t := &ChainTemplate{
		ID:               f.ID,
		DisplayName:      f.DisplayName,
		Version:          f.Version,
		TaxIDs:           f.TaxIDs,
		Fingerprints:     f.Fingerprints,
		SkipKeywords:     f.SkipKeywords,
		TotalKeywords:    f.TotalKeywords,
		SubtotalKeywords: f.SubtotalKeywords,
		TaxKeywords:      f.TaxKeywords,
		DiscountKeywords: f.DiscountKeywords,
		DecimalSeparator: f.DecimalSeparator,
		DayFirst:         true,
		TaxRegime:        f.TaxRegime,
	}
	if f.DayFirst != nil {
		t.DayFirst = *f.DayFirst
	}
	if t.DecimalSeparator == "" {
		t.DecimalSeparator = ","
	}

	for _, p := range f.NamePatterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("name pattern %q: %w", p, err)
		}
		t.NamePatterns = append(t.NamePatterns, re)
	}
	for _, g := range f.ItemGrammars {
		re, err := regexp.Compile(g.Pattern)
		if err != nil {
			return nil, fmt.Errorf("item grammar %q: %w", g.Name, err)
		}
		roles := make(map[GrammarRole]int, len(g.Roles))
		for role, idx := range g.Roles {
			switch GrammarRole(role) {
			case RoleName, RoleQuantity, RoleUnitPrice, RoleTotalPrice, RoleUnit:
				roles[GrammarRole(role)] = idx
			default:
				return nil, fmt.Errorf("item grammar %q: unknown role %q", g.Name, role)
			}
		}
		t.ItemGrammars = append(t.ItemGrammars, ItemGrammar{
			Name:         g.Name,
			Pattern:      re,
			Roles:        roles,
			Continuation: g.Continuation,
		})
	}
	for _, p := range f.DatePatterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("date pattern %q: %w", p, err)
		}
		t.DatePatterns = append(t.DatePatterns, re)
	}
	if len(t.DatePatterns) == 0 {
		t.DatePatterns = []*regexp.Regexp{reDateTimeES, reDateES, reDateShort, reDateISO}
	}
	for _, c := range f.Corrections {
		re, err := regexp.Compile(c.Pattern)
		if err != nil {
			return nil, fmt.Errorf("correction %q: %w", c.Pattern, err)
		}
		t.Corrections = append(t.Corrections, Correction{Pattern: re, Replacement: c.Replacement})
	}
	return t, nil
}

// LoadChainTemplates returns the builtin chains plus any *.json
// templates found under dir (empty dir loads builtins only). A file
// whose ID collides with a builtin replaces it, so deployments can
// override shipped templates.
func LoadChainTemplates(dir string, logger *slog.Logger) (*ChainRegistry, error) {
	if logger == nil {
		logger = slog.Default()
	}
	templates := BuiltinChains()
	if dir != "" {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, fmt.Errorf("read template dir: %w", err)
		}
		index := make(map[string]int, len(templates))
		for i, t := range templates {
			index[t.ID] = i
		}
		for _, e := range entries {
			if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
				continue
			}
			path := filepath.Join(dir, e.Name())
			data, err := os.ReadFile(path)
			if err != nil {
				return nil, fmt.Errorf("read %s: %w", path, err)
			}
			t, err := ParseChainTemplate(data)
			if err != nil {
				return nil, fmt.Errorf("template %s: %w", path, err)
			}
			if i, ok := index[t.ID]; ok {
				logger.Info("chain template overridden", "id", t.ID, "file", e.Name())
				templates[i] = t
				continue
			}
			index[t.ID] = len(templates)
			templates = append(templates, t)
			logger.Debug("chain template loaded", "id", t.ID, "file", e.Name())
		}
	}
	logger.Info("chain registry ready", "templates", len(templates))
	return NewChainRegistry(templates), nil
}
