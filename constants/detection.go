package constants

// DetectionMethod records which merchant-detection strategy produced a
// match. Strategies are tried in this order; each has a fixed
// confidence ceiling reflecting its reliability.
type DetectionMethod string

const (
	DetectionTaxID       DetectionMethod = "TAX_ID"      // national tax identifier lookup
	DetectionName        DetectionMethod = "NAME"        // merchant name pattern
	DetectionFingerprint DetectionMethod = "FINGERPRINT" // receipt phrase fingerprints
	DetectionHeuristic   DetectionMethod = "HEURISTIC"   // display-name word in header
	DetectionNone        DetectionMethod = "NONE"
)

// LayoutType classifies how item names and prices are arranged.
type LayoutType string

const (
	// LayoutColumnar: names and prices sit in visually separate
	// columns and must be correlated positionally.
	LayoutColumnar LayoutType = "COLUMNAR"
	// LayoutInline: name and price share a line.
	LayoutInline LayoutType = "INLINE"
	LayoutMixed  LayoutType = "MIXED"
)

// PriceSide is the horizontal side of the receipt where prices sit.
type PriceSide string

const (
	PriceSideLeft  PriceSide = "LEFT"
	PriceSideRight PriceSide = "RIGHT"
)
