package repository

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/dcastano/reciboscan/internal/common"
	"github.com/dcastano/reciboscan/internal/entity"
)

var templatesBucket = []byte("templates")

// boltRepository persists templates as JSON in a single bbolt bucket
// keyed by merchant ID. Bolt's single-writer transactions give the
// per-merchant read-modify-write serialization for free.
type boltRepository struct {
	db     *bolt.DB
	logger *slog.Logger
}

// NewBoltRepository opens (or creates) the database file and ensures
// the bucket exists.
func NewBoltRepository(path string, logger *slog.Logger) (TemplateRepository, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, common.WrapError(err, "opening template store")
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(templatesBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, common.WrapError(err, "creating templates bucket")
	}
	return &boltRepository{db: db, logger: logger}, nil
}

func (r *boltRepository) GetByMerchantID(_ context.Context, merchantID string) (*entity.StoreParsingTemplate, error) {
	var tmpl *entity.StoreParsingTemplate
	err := r.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(templatesBucket).Get([]byte(merchantID))
		if raw == nil {
			return notFound(merchantID)
		}
		var t entity.StoreParsingTemplate
		if err := json.Unmarshal(raw, &t); err != nil {
			return common.WrapError(err, "decoding template")
		}
		tmpl = &t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tmpl, nil
}

func (r *boltRepository) ListWithFingerprints(_ context.Context) ([]*entity.StoreParsingTemplate, error) {
	var out []*entity.StoreParsingTemplate
	err := r.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(templatesBucket).ForEach(func(_, raw []byte) error {
			var t entity.StoreParsingTemplate
			if err := json.Unmarshal(raw, &t); err != nil {
				return common.WrapError(err, "decoding template")
			}
			if t.Fingerprint != nil {
				out = append(out, &t)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *boltRepository) Upsert(_ context.Context, tmpl *entity.StoreParsingTemplate) error {
	return r.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(templatesBucket)
		now := time.Now()
		cp := *tmpl
		if raw := b.Get([]byte(tmpl.MerchantID)); raw != nil {
			var existing entity.StoreParsingTemplate
			if err := json.Unmarshal(raw, &existing); err == nil {
				cp.UseCount = existing.UseCount
				cp.SuccessCount = existing.SuccessCount
				cp.FailureCount = existing.FailureCount
				cp.CreatedAt = existing.CreatedAt
			}
		} else if cp.CreatedAt.IsZero() {
			cp.CreatedAt = now
		}
		cp.UpdatedAt = now
		return r.put(b, &cp)
	})
}

func (r *boltRepository) RecordUse(_ context.Context, merchantID string) error {
	return r.mutate(merchantID, func(t *entity.StoreParsingTemplate) {
		t.UseCount++
	})
}

func (r *boltRepository) RecordOutcome(_ context.Context, merchantID string, _ OutcomeKind, success bool) error {
	return r.mutate(merchantID, func(t *entity.StoreParsingTemplate) {
		applyOutcome(t, success)
	})
}

// mutate runs a read-modify-write of one template inside a single
// write transaction.
func (r *boltRepository) mutate(merchantID string, fn func(*entity.StoreParsingTemplate)) error {
	return r.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(templatesBucket)
		raw := b.Get([]byte(merchantID))
		if raw == nil {
			return notFound(merchantID)
		}
		var t entity.StoreParsingTemplate
		if err := json.Unmarshal(raw, &t); err != nil {
			return common.WrapError(err, "decoding template")
		}
		fn(&t)
		t.UpdatedAt = time.Now()
		return r.put(b, &t)
	})
}

func (r *boltRepository) put(b *bolt.Bucket, t *entity.StoreParsingTemplate) error {
	raw, err := json.Marshal(t)
	if err != nil {
		return common.WrapError(err, "encoding template")
	}
	return b.Put([]byte(t.MerchantID), raw)
}

// Close releases the underlying database file.
func (r *boltRepository) Close() error {
	return r.db.Close()
}
