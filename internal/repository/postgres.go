package repository

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dcastano/reciboscan/internal/common"
	"github.com/dcastano/reciboscan/internal/entity"
)

// Schema creates the template table. Counters live in columns so the
// outcome commands can mutate them atomically in SQL; everything else
// rides in the JSON document.
const Schema = `
CREATE TABLE IF NOT EXISTS store_templates (
	merchant_id   TEXT PRIMARY KEY,
	data          JSONB NOT NULL,
	confidence    INT NOT NULL DEFAULT 0,
	use_count     INT NOT NULL DEFAULT 0,
	success_count INT NOT NULL DEFAULT 0,
	failure_count INT NOT NULL DEFAULT 0,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);`

// postgresRepository stores templates in Postgres. Counter updates are
// single UPDATE statements, so concurrent parses of the same merchant
// never lose increments.
type postgresRepository struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewPostgresRepository wraps an existing pool and ensures the schema.
func NewPostgresRepository(ctx context.Context, pool *pgxpool.Pool, logger *slog.Logger) (TemplateRepository, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if _, err := pool.Exec(ctx, Schema); err != nil {
		return nil, common.WrapError(err, "ensuring template schema")
	}
	return &postgresRepository{pool: pool, logger: logger}, nil
}

func (r *postgresRepository) GetByMerchantID(ctx context.Context, merchantID string) (*entity.StoreParsingTemplate, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT data, confidence, use_count, success_count, failure_count, created_at, updated_at
		FROM store_templates WHERE merchant_id = $1`, merchantID)
	t, err := scanTemplate(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, notFound(merchantID)
	}
	if err != nil {
		r.logger.Error("failed to load template", "merchant_id", merchantID, "error", err)
		return nil, err
	}
	return t, nil
}

func (r *postgresRepository) ListWithFingerprints(ctx context.Context) ([]*entity.StoreParsingTemplate, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT data, confidence, use_count, success_count, failure_count, created_at, updated_at
		FROM store_templates WHERE data ? 'fingerprint'`)
	if err != nil {
		r.logger.Error("failed to list templates", "error", err)
		return nil, err
	}
	defer rows.Close()

	var out []*entity.StoreParsingTemplate
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *postgresRepository) Upsert(ctx context.Context, tmpl *entity.StoreParsingTemplate) error {
	raw, err := json.Marshal(tmpl)
	if err != nil {
		return common.WrapError(err, "encoding template")
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO store_templates (merchant_id, data, confidence)
		VALUES ($1, $2, $3)
		ON CONFLICT (merchant_id) DO UPDATE
		SET data = EXCLUDED.data,
		    confidence = EXCLUDED.confidence,
		    updated_at = now()`,
		tmpl.MerchantID, raw, tmpl.Confidence)
	if err != nil {
		r.logger.Error("failed to upsert template", "merchant_id", tmpl.MerchantID, "error", err)
		return common.WrapError(err, "upserting template")
	}
	return nil
}

func (r *postgresRepository) RecordUse(ctx context.Context, merchantID string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE store_templates
		SET use_count = use_count + 1, updated_at = now()
		WHERE merchant_id = $1`, merchantID)
	if err != nil {
		return common.WrapError(err, "recording template use")
	}
	if tag.RowsAffected() == 0 {
		return notFound(merchantID)
	}
	return nil
}

func (r *postgresRepository) RecordOutcome(ctx context.Context, merchantID string, _ OutcomeKind, success bool) error {
	delta := successDelta
	successInc, failureInc := 1, 0
	if !success {
		delta = failureDelta
		successInc, failureInc = 0, 1
	}
	tag, err := r.pool.Exec(ctx, `
		UPDATE store_templates
		SET success_count = success_count + $2,
		    failure_count = failure_count + $3,
		    confidence = LEAST(100, GREATEST(0, confidence + $4)),
		    updated_at = now()
		WHERE merchant_id = $1`,
		merchantID, successInc, failureInc, delta)
	if err != nil {
		return common.WrapError(err, "recording template outcome")
	}
	if tag.RowsAffected() == 0 {
		return notFound(merchantID)
	}
	return nil
}

// scanTemplate reads one row, letting the counter columns win over any
// stale values inside the JSON document.
func scanTemplate(row pgx.Row) (*entity.StoreParsingTemplate, error) {
	var raw []byte
	var t entity.StoreParsingTemplate
	err := row.Scan(&raw, &t.Confidence, &t.UseCount, &t.SuccessCount, &t.FailureCount, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	counters := t
	if err := json.Unmarshal(raw, &t); err != nil {
		return nil, common.WrapError(err, "decoding template")
	}
	t.Confidence = counters.Confidence
	t.UseCount = counters.UseCount
	t.SuccessCount = counters.SuccessCount
	t.FailureCount = counters.FailureCount
	t.CreatedAt = counters.CreatedAt
	t.UpdatedAt = counters.UpdatedAt
	return &t, nil
}
