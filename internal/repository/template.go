// Package repository persists learned store parsing templates. Three
// implementations share one interface: Postgres for deployments, bbolt
// for single-node use, and in-memory for tests and ephemeral runs.
package repository

import (
	"context"
	"fmt"

	"github.com/dcastano/reciboscan/internal/common"
	"github.com/dcastano/reciboscan/internal/entity"
)

// Outcome counter deltas. Confidence drifts slowly upward on success
// and drops fast on failure, so a template that stops working is
// abandoned quickly.
const (
	successDelta = 2
	failureDelta = -5
)

// OutcomeKind says which parsing path produced the recorded verdict.
type OutcomeKind string

const (
	OutcomeGeneric OutcomeKind = "generic"
	OutcomeChain   OutcomeKind = "chain"
)

// TemplateRepository is the only stateful dependency of the parsing
// core. Counter mutations go through explicit commands, never through
// in-place edits of a fetched template; implementations serialize
// updates per merchant ID.
type TemplateRepository interface {
	// GetByMerchantID returns the template for a merchant, or
	// common.ErrNotFound.
	GetByMerchantID(ctx context.Context, merchantID string) (*entity.StoreParsingTemplate, error)
	// ListWithFingerprints returns every template carrying a
	// fingerprint, for the fingerprint recognition path.
	ListWithFingerprints(ctx context.Context) ([]*entity.StoreParsingTemplate, error)
	// Upsert creates or replaces a template's zones, hints, dimensions
	// and fingerprint, preserving existing counters on replace.
	Upsert(ctx context.Context, tmpl *entity.StoreParsingTemplate) error
	// RecordUse increments the template's use counter.
	RecordUse(ctx context.Context, merchantID string) error
	// RecordOutcome applies the success/failure counter and confidence
	// deltas for one parse.
	RecordOutcome(ctx context.Context, merchantID string, kind OutcomeKind, success bool) error
}

// applyOutcome mutates counters by the fixed deltas, clamping
// confidence to [0,100]. Shared by the non-SQL implementations.
func applyOutcome(t *entity.StoreParsingTemplate, success bool) {
	if success {
		t.SuccessCount++
		t.Confidence += successDelta
	} else {
		t.FailureCount++
		t.Confidence += failureDelta
	}
	if t.Confidence < 0 {
		t.Confidence = 0
	}
	if t.Confidence > 100 {
		t.Confidence = 100
	}
}

// notFound builds the canonical missing-template error, matchable with
// errors.Is against common.ErrNotFound.
func notFound(merchantID string) error {
	return fmt.Errorf("%w: template %s", common.ErrNotFound, merchantID)
}
