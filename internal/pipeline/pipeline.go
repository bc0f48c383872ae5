// Package pipeline wires the parsing stages into the single entry
// point callers use: OCR document in, structured receipt out.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dcastano/reciboscan/constants"
	"github.com/dcastano/reciboscan/internal/common"
	"github.com/dcastano/reciboscan/internal/detect"
	"github.com/dcastano/reciboscan/internal/entity"
	"github.com/dcastano/reciboscan/internal/fingerprint"
	"github.com/dcastano/reciboscan/internal/geometry"
	"github.com/dcastano/reciboscan/internal/ocr"
	"github.com/dcastano/reciboscan/internal/parse"
	"github.com/dcastano/reciboscan/internal/registry"
	"github.com/dcastano/reciboscan/internal/repository"
	"github.com/dcastano/reciboscan/internal/validate"
)

// Config are the pipeline's tunables.
type Config struct {
	// MinChainConfidence is the detection floor for taking the
	// chain-specific path instead of the generic one.
	MinChainConfidence int
	// MinLearnConfidence is the final-confidence floor for persisting a
	// learned template after a parse.
	MinLearnConfidence int
	// DefaultRegion seeds region detection when the text is silent.
	DefaultRegion string
}

// Pipeline runs the full parse: normalize, detect merchant, parse by
// the best available strategy, refine with a learned template,
// validate, and record the outcome. Stateless between parses except
// for the template repository.
type Pipeline struct {
	cfg        Config
	chains     *registry.ChainRegistry
	regions    *registry.RegionRegistry
	taxRegions *registry.TaxRegionRegistry

	detector   *detect.Detector
	chain      *parse.ChainParser
	generic    *parse.GenericParser
	template   *parse.TemplateParser
	zones      *geometry.ZoneDetector
	correlator *geometry.Correlator
	builder    *fingerprint.Builder
	validator  *validate.Validator

	repo   repository.TemplateRepository
	logger *slog.Logger
}

// New assembles a Pipeline over the given registries and template
// repository.
func New(cfg Config, chains *registry.ChainRegistry, regions *registry.RegionRegistry, taxRegions *registry.TaxRegionRegistry, repo repository.TemplateRepository, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	correlator := geometry.NewCorrelator(logger)
	return &Pipeline{
		cfg:        cfg,
		chains:     chains,
		regions:    regions,
		taxRegions: taxRegions,
		detector:   detect.NewDetector(chains, logger),
		chain:      parse.NewChainParser(regions, logger),
		generic:    parse.NewGenericParser(regions, logger),
		template:   parse.NewTemplateParser(correlator, logger),
		zones:      geometry.NewZoneDetector(chains, logger),
		correlator: correlator,
		builder:    fingerprint.NewBuilder(logger),
		validator:  validate.New(logger),
		repo:       repo,
		logger:     logger,
	}
}

// Parse turns one OCR document into a structured receipt. The receipt
// is always non-nil; the error reports template-store failures only,
// so callers can retry recording without losing the parse.
func (p *Pipeline) Parse(ctx context.Context, doc entity.OcrDocument) (*entity.ParsedReceipt, error) {
	start := time.Now()
	width, height := ocr.InferImageSize(doc)
	_, lines := ocr.NormalizeDocument(doc)

	match := p.detector.Detect(lines)
	preset := p.regions.DetectFromText(strings.Join(lines, "\n"))
	sep := parse.DetectDecimalSeparator(strings.Join(lines, "\n"), preset.DecimalSeparator)

	var r *entity.ParsedReceipt
	var storeErrs []error
	kind := repository.OutcomeGeneric
	layout := constants.LayoutInline
	side := constants.PriceSideRight
	templateUsed := ""

	if match.Template != nil && match.Confidence >= p.cfg.MinChainConfidence {
		kind = repository.OutcomeChain
		r = p.chain.Parse(lines, match, start)
		if match.Template.DecimalSeparator != "" {
			sep = match.Template.DecimalSeparator
		}
		templateUsed = p.touchTemplate(ctx, r.MerchantID, &storeErrs)
	} else {
		r = p.generic.Parse(lines, start)
		if match.Template != nil {
			// detection below the chain floor still names the merchant
			r.MerchantID = match.Template.ID
			r.DetectionMethod = match.Method
			if r.StoreName == "" {
				r.StoreName = match.Template.DisplayName
			}
		}
		if doc.HasGeometry() {
			layout, side = p.refineWithGeometry(doc, r, preset, sep, width, height)
		}
		templateUsed = p.refineWithTemplate(ctx, doc, r, lines, layout, side, sep, &storeErrs)
	}

	p.validator.Validate(r)
	p.checkTaxPlausibility(r)

	if templateUsed != "" {
		if err := p.repo.RecordOutcome(ctx, templateUsed, kind, r.IsValid); err != nil {
			storeErrs = append(storeErrs, common.WrapError(err, "recording outcome"))
		}
	}
	p.learn(ctx, doc, r, lines, preset, layout, side, sep, width, height, &storeErrs)

	p.logger.Info("pipeline.parse.done",
		"merchant", r.MerchantID,
		"method", r.DetectionMethod,
		"items", len(r.Items),
		"confidence", r.Confidence,
		"valid", r.IsValid,
		"duration", time.Since(start))
	return r, errors.Join(storeErrs...)
}

// refineWithGeometry re-extracts items spatially and keeps the larger
// list, returning the observed layout traits for fingerprinting.
func (p *Pipeline) refineWithGeometry(doc entity.OcrDocument, r *entity.ParsedReceipt, preset *registry.RegionalPreset, sep string, width, height float64) (constants.LayoutType, constants.PriceSide) {
	skip := append([]string{}, preset.SkipKeywords...)
	skip = append(skip, preset.TotalKeywords...)
	skip = append(skip, preset.SubtotalKeywords...)
	skip = append(skip, preset.TaxKeywords...)

	elements := geometry.ElementsFromDocument(doc, width, height)
	res := p.correlator.Correlate(elements, skip, sep)
	if len(res.Items) > len(r.Items) {
		r.Items = res.Items
	}
	return res.Layout, res.PriceSide
}

// refineWithTemplate overlays a persisted template: looked up by
// merchant ID when detection named one, otherwise by fingerprint
// similarity. Returns the merchant ID of the template that was
// applied, or empty.
func (p *Pipeline) refineWithTemplate(ctx context.Context, doc entity.OcrDocument, r *entity.ParsedReceipt, lines []string, layout constants.LayoutType, side constants.PriceSide, sep string, storeErrs *[]error) string {
	if r.MerchantID != "" {
		tmpl, err := p.repo.GetByMerchantID(ctx, r.MerchantID)
		if err != nil {
			if !errors.Is(err, common.ErrNotFound) {
				*storeErrs = append(*storeErrs, common.WrapError(err, "loading template"))
			}
			return ""
		}
		p.applyTemplate(ctx, doc, r, tmpl, storeErrs)
		return tmpl.MerchantID
	}

	fp := p.builder.Build(lines, layout, side, sep)
	if fp == nil {
		return ""
	}
	candidates, err := p.repo.ListWithFingerprints(ctx)
	if err != nil {
		*storeErrs = append(*storeErrs, common.WrapError(err, "listing templates"))
		return ""
	}
	m, ok := fingerprint.BestMatch(fp, candidates)
	if !ok {
		return ""
	}
	p.logger.Debug("pipeline.fingerprint.matched",
		"merchant", m.Template.MerchantID, "score", m.Score)
	r.MerchantID = m.Template.MerchantID
	r.DetectionMethod = constants.DetectionFingerprint
	if r.StoreName == "" {
		r.StoreName = m.Template.StoreName
	}
	p.applyTemplate(ctx, doc, r, m.Template, storeErrs)
	return m.Template.MerchantID
}

// touchTemplate records a use of the merchant's persisted template
// without refining; the chain grammar already structured the parse.
// Returns the merchant ID when a template exists, so the validator
// verdict adjusts its counters afterwards.
func (p *Pipeline) touchTemplate(ctx context.Context, merchantID string, storeErrs *[]error) string {
	tmpl, err := p.repo.GetByMerchantID(ctx, merchantID)
	if err != nil {
		if !errors.Is(err, common.ErrNotFound) {
			*storeErrs = append(*storeErrs, common.WrapError(err, "loading template"))
		}
		return ""
	}
	if err := p.repo.RecordUse(ctx, tmpl.MerchantID); err != nil {
		*storeErrs = append(*storeErrs, common.WrapError(err, "recording template use"))
	}
	return tmpl.MerchantID
}

func (p *Pipeline) applyTemplate(ctx context.Context, doc entity.OcrDocument, r *entity.ParsedReceipt, tmpl *entity.StoreParsingTemplate, storeErrs *[]error) {
	p.template.Refine(doc, r, tmpl)
	if err := p.repo.RecordUse(ctx, tmpl.MerchantID); err != nil {
		*storeErrs = append(*storeErrs, common.WrapError(err, "recording template use"))
	}
}

// checkTaxPlausibility warns when the implied tax rate matches no
// legal rate of the inferred regime.
func (p *Pipeline) checkTaxPlausibility(r *entity.ParsedReceipt) {
	if r.Tax == nil || r.Subtotal == nil || r.Subtotal.IsZero() {
		return
	}
	var region *registry.TaxRegion
	ok := false
	if code, found := registry.ExtractPostalCode(r.RawText); found {
		region, ok = p.taxRegions.ByPostalCode(code)
	}
	if !ok {
		region, ok = p.taxRegions.ByMerchant(r.StoreName)
	}
	if !ok {
		if region, ok = p.taxRegions.ByText(r.RawText); !ok {
			region = p.taxRegions.Default()
		}
	}
	if region == nil {
		return
	}
	rate, _ := r.Tax.Div(*r.Subtotal).Float64()
	rate *= 100
	if !region.PlausibleRate(rate) {
		r.Warnings = append(r.Warnings,
			fmt.Sprintf("implied tax rate %.1f%% matches no %s rate", rate, region.ID))
	}
}

// learn persists a zone template for a recognized merchant after a
// confident parse.
func (p *Pipeline) learn(ctx context.Context, doc entity.OcrDocument, r *entity.ParsedReceipt, lines []string, preset *registry.RegionalPreset, layout constants.LayoutType, side constants.PriceSide, sep string, width, height float64, storeErrs *[]error) {
	if r.MerchantID == "" || r.Confidence < p.cfg.MinLearnConfidence || !doc.HasGeometry() {
		return
	}
	zr := p.zones.Detect(doc, width, height, preset)
	if len(zr.Zones) == 0 {
		return
	}
	tmpl := &entity.StoreParsingTemplate{
		MerchantID:  r.MerchantID,
		StoreName:   r.StoreName,
		Zones:       zr.Zones,
		Hints:       entity.ParsingHints{DecimalSeparator: sep, DayFirst: preset.DayFirst},
		ImageWidth:  width,
		ImageHeight: height,
		Fingerprint: p.builder.Build(lines, layout, side, sep),
		Confidence:  zr.Confidence,
	}
	if err := p.repo.Upsert(ctx, tmpl); err != nil {
		*storeErrs = append(*storeErrs, common.WrapError(err, "persisting learned template"))
		return
	}
	p.logger.Debug("pipeline.template.learned",
		"merchant", r.MerchantID, "zones", len(zr.Zones), "confidence", zr.Confidence)
}
