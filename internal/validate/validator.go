// Package validate cross-checks a parsed receipt's internal
// consistency and produces the final confidence score.
package validate

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dcastano/reciboscan/constants"
	"github.com/dcastano/reciboscan/internal/entity"
)

const (
	// matchTolerance: item sum within this fraction of the declared
	// total counts as a full match.
	matchTolerance = 0.05
	// partialTolerance: within this fraction is a warning but the
	// receipt stays valid. Beyond it the receipt is invalid.
	partialTolerance = 0.15

	highPriceLimit = 200

	baseConfidence    = 50
	sumMatchBonus     = 30
	partialMatchBonus = 10
	fieldBonus        = 5
	minorFieldBonus   = 2
	warningPenalty    = 5
)

// Result is the validator's verdict for one receipt.
type Result struct {
	IsValid        bool
	Confidence     int
	Warnings       []string
	SuggestedTotal *decimal.Decimal
}

// Validator scores parsed receipts. Stateless.
type Validator struct {
	logger *slog.Logger
}

// New builds a Validator.
func New(logger *slog.Logger) *Validator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Validator{logger: logger}
}

// Validate checks r and writes the verdict back into it (warnings,
// validity, final confidence), returning the same verdict.
func (v *Validator) Validate(r *entity.ParsedReceipt) Result {
	res := Result{IsValid: true}

	if r.StoreName == "" {
		res.Warnings = append(res.Warnings, "store name not found")
	}
	dateOK := true
	if r.Date == nil {
		res.Warnings = append(res.Warnings, "date not found")
	} else if !r.ParsedAt.IsZero() && !dateWithinLastYear(*r.Date, r.ParsedAt) {
		dateOK = false
		res.Warnings = append(res.Warnings,
			fmt.Sprintf("date %s is not within the last year", r.Date.Format("02/01/2006")))
	}
	if len(r.Items) == 0 {
		res.Warnings = append(res.Warnings, "no items extracted")
	}
	if r.Total == nil {
		res.Warnings = append(res.Warnings, "total not found")
	}

	for _, it := range r.Items {
		if it.TotalPrice.GreaterThan(decimal.NewFromInt(highPriceLimit)) {
			res.Warnings = append(res.Warnings,
				fmt.Sprintf("unusually high price for %q: %s", it.Name, it.TotalPrice.StringFixed(2)))
		}
	}
	res.Warnings = append(res.Warnings, duplicateWarnings(r.Items)...)

	sumMatch := v.checkSum(r, &res)

	conf := v.confidence(r, res, sumMatch, dateOK)
	if r.Confidence > 0 {
		// fold in the parser's own estimate so strategy quality
		// (detection method, grammar fit) survives validation
		conf = (conf + r.Confidence) / 2
	}
	res.Confidence = conf
	r.Warnings = res.Warnings
	r.IsValid = res.IsValid
	r.Confidence = res.Confidence

	v.logger.Debug("validate.done",
		"valid", res.IsValid, "confidence", res.Confidence, "warnings", len(res.Warnings))
	return res
}

type sumVerdict int

const (
	sumUnknown sumVerdict = iota
	sumMatched
	sumPartial
	sumMismatch
)

// checkSum compares the item sum against the declared total within the
// tolerance bands, appending warnings and the suggested correction.
func (v *Validator) checkSum(r *entity.ParsedReceipt, res *Result) sumVerdict {
	if r.Total == nil || len(r.Items) == 0 {
		return sumUnknown
	}
	total := *r.Total
	if total.IsZero() {
		return sumUnknown
	}
	sum := r.ItemSum()
	gap, _ := sum.Sub(total).Abs().Div(total.Abs()).Float64()

	switch {
	case gap <= matchTolerance:
		return sumMatched
	case gap <= partialTolerance:
		res.Warnings = append(res.Warnings,
			fmt.Sprintf("item sum %s differs from total %s", sum.StringFixed(2), total.StringFixed(2)))
		return sumPartial
	default:
		res.Warnings = append(res.Warnings,
			fmt.Sprintf("item sum %s contradicts total %s", sum.StringFixed(2), total.StringFixed(2)))
		res.IsValid = false
		res.SuggestedTotal = &sum
		return sumMismatch
	}
}

// confidence starts at a neutral base, rewards a verified sum and each
// present field, and pays for every warning. An implausibly dated
// receipt forfeits the date bonus.
func (v *Validator) confidence(r *entity.ParsedReceipt, res Result, sum sumVerdict, dateOK bool) int {
	conf := baseConfidence
	switch sum {
	case sumMatched:
		conf += sumMatchBonus
	case sumPartial:
		conf += partialMatchBonus
	}
	if r.StoreName != "" {
		conf += fieldBonus
	}
	if r.Date != nil && dateOK {
		conf += fieldBonus
	}
	if r.Total != nil {
		conf += fieldBonus
	}
	if len(r.Items) > 0 {
		conf += fieldBonus
	}
	if r.Subtotal != nil {
		conf += minorFieldBonus
	}
	if r.Tax != nil {
		conf += minorFieldBonus
	}
	if r.PaymentMethod != constants.PaymentUnknown && r.PaymentMethod != "" {
		conf += minorFieldBonus
	}
	conf -= warningPenalty * len(res.Warnings)
	if conf < 0 {
		conf = 0
	}
	if conf > 100 {
		conf = 100
	}
	return conf
}

// dateWithinLastYear reports whether d falls inside the year before
// ref, tolerating one day of clock skew on the future side.
func dateWithinLastYear(d, ref time.Time) bool {
	return d.After(ref.AddDate(-1, 0, 0)) && d.Before(ref.Add(24*time.Hour))
}

// duplicateWarnings flags repeated name+price pairs, which usually
// indicate the same physical line was read twice.
func duplicateWarnings(items []entity.ParsedItem) []string {
	seen := make(map[string]int)
	var out []string
	for _, it := range items {
		key := it.Name + "|" + it.TotalPrice.StringFixed(2)
		seen[key]++
		if seen[key] == 2 {
			out = append(out, fmt.Sprintf("duplicate item %q at %s", it.Name, it.TotalPrice.StringFixed(2)))
		}
	}
	return out
}
