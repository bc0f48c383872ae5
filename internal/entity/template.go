package entity

import "time"

// ParsingHints are per-store conventions learned alongside zones.
type ParsingHints struct {
	DecimalSeparator string `json:"decimal_separator,omitempty"`
	DateFormat       string `json:"date_format,omitempty"`
	DayFirst         bool   `json:"day_first"`
}

// StoreParsingTemplate is the persisted, learned record for one
// merchant: zones, hints, the image dimensions the zones were authored
// against, an optional fingerprint, and running outcome counters.
// Created on the first successful zone definition for a merchant and
// mutated (through the repository) on every subsequent parse; never
// deleted automatically.
type StoreParsingTemplate struct {
	MerchantID string  `json:"merchant_id"`
	StoreName  string  `json:"store_name,omitempty"`
	Zones      ZoneSet `json:"zones"`

	Hints       ParsingHints      `json:"hints"`
	ImageWidth  float64           `json:"image_width"`
	ImageHeight float64           `json:"image_height"`
	Fingerprint *StoreFingerprint `json:"fingerprint,omitempty"`

	// SampleRef points at the receipt the zones were authored from.
	SampleRef string `json:"sample_ref,omitempty"`

	Confidence   int `json:"confidence"` // 0-100, drifts with outcomes
	UseCount     int `json:"use_count"`
	SuccessCount int `json:"success_count"`
	FailureCount int `json:"failure_count"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AspectRatio returns width/height of the authoring image, or 0 when
// dimensions are unknown.
func (t *StoreParsingTemplate) AspectRatio() float64 {
	if t.ImageHeight <= 0 {
		return 0
	}
	return t.ImageWidth / t.ImageHeight
}
