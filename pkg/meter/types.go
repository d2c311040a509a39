package meter

import "time"

// Box is an axis-aligned bounding box in pixel coordinates.
type Box struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

// Word is a single OCR token with its position on the image.
type Word struct {
	Text string `json:"text"`
	BBox Box    `json:"bbox"`
}

// Observation is the immutable output of one OCR call: the document-level
// text plus the ordered word list as returned by the provider.
type Observation struct {
	FullText string `json:"full_text"`
	Words    []Word `json:"words"`
}

// Origin tags which strategy produced a candidate so tie-breaks stay
// reproducible across runs.
type Origin string

const (
	OriginKeyword     Origin = "keyword"
	OriginStitched    Origin = "stitched-analog"
	OriginLooseRun    Origin = "loose-digit-run"
	OriginStandard    Origin = "standard"
	OriginSpatialCrop Origin = "spatial-crop"
)

// Candidate is one parsed numeric interpretation of the image awaiting
// ranking.
type Candidate struct {
	Value  float64
	Score  int
	Origin Origin
	// Raw is the matched substring the value was parsed from, kept for
	// diagnostics only.
	Raw string
	// LiteralDecimal records whether the OCR text contained an explicit
	// decimal point for this value.
	LiteralDecimal bool
	// IntDigits is the digit count of the literal integer part, leading
	// zeros included. The expected-digit check runs against this, not
	// against the parsed value.
	IntDigits int
}

// Status is the final disposition of a reading.
type Status string

const (
	StatusVerified Status = "VERIFIED"
	StatusFlagged  Status = "FLAGGED"
	StatusRejected Status = "REJECTED"
)

// Reading is the engine's output for one image: the winning candidate
// before validation.
type Reading struct {
	Value         float64
	Score         int
	Origin        Origin
	LowConfidence bool
	// IntDigits carries the winning literal's integer digit count so the
	// validator can re-check digit discipline without losing leading zeros.
	IntDigits int
}

// Result is the validated reading handed to the ledger. Immutable after
// creation.
type Result struct {
	PointID   string
	Value     float64
	Status    Status
	Notes     string
	Timestamp time.Time
}
