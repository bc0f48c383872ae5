package repository

import (
	"context"
	"sync"
	"time"

	"github.com/dcastano/reciboscan/internal/entity"
)

// memoryRepository keeps templates in a map behind one mutex. Used in
// tests and in runs that don't need persistence across restarts.
type memoryRepository struct {
	mu        sync.Mutex
	templates map[string]*entity.StoreParsingTemplate
}

// NewMemoryRepository builds an empty in-memory template store.
func NewMemoryRepository() TemplateRepository {
	return &memoryRepository{templates: make(map[string]*entity.StoreParsingTemplate)}
}

func (r *memoryRepository) GetByMerchantID(_ context.Context, merchantID string) (*entity.StoreParsingTemplate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.templates[merchantID]
	if !ok {
		return nil, notFound(merchantID)
	}
	cp := *t
	return &cp, nil
}

func (r *memoryRepository) ListWithFingerprints(_ context.Context) ([]*entity.StoreParsingTemplate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.StoreParsingTemplate
	for _, t := range r.templates {
		if t.Fingerprint == nil {
			continue
		}
		cp := *t
		out = append(out, &cp)
	}
	return out, nil
}

func (r *memoryRepository) Upsert(_ context.Context, tmpl *entity.StoreParsingTemplate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	cp := *tmpl
	if existing, ok := r.templates[tmpl.MerchantID]; ok {
		cp.UseCount = existing.UseCount
		cp.SuccessCount = existing.SuccessCount
		cp.FailureCount = existing.FailureCount
		cp.CreatedAt = existing.CreatedAt
	} else if cp.CreatedAt.IsZero() {
		cp.CreatedAt = now
	}
	cp.UpdatedAt = now
	r.templates[tmpl.MerchantID] = &cp
	return nil
}

func (r *memoryRepository) RecordUse(_ context.Context, merchantID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.templates[merchantID]
	if !ok {
		return notFound(merchantID)
	}
	t.UseCount++
	t.UpdatedAt = time.Now()
	return nil
}

func (r *memoryRepository) RecordOutcome(_ context.Context, merchantID string, _ OutcomeKind, success bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.templates[merchantID]
	if !ok {
		return notFound(merchantID)
	}
	applyOutcome(t, success)
	t.UpdatedAt = time.Now()
	return nil
}
