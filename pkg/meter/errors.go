package meter

import "errors"

// Content-level failures are sentinel values: the pipeline returns them,
// callers branch on them with errors.Is. Transport failures from the OCR
// provider wrap and bubble as-is.
var (
	// ErrOcrUnavailable wraps transport/quota failures from the OCR provider.
	ErrOcrUnavailable = errors.New("ocr provider unavailable")
	// ErrOcrEmpty is returned when the provider answered with no text at all.
	ErrOcrEmpty = errors.New("ocr returned no text")
	// ErrOcrQuota is returned when the provider rejected the call for quota.
	ErrOcrQuota = errors.New("ocr quota exceeded")

	// ErrPointUnresolved is returned when no identifier pattern matched.
	ErrPointUnresolved = errors.New("no point id found in image")
	// ErrPointAmbiguous is returned when fuzzy matching cannot separate
	// two registry keys.
	ErrPointAmbiguous = errors.New("point id ambiguous")

	// ErrUnknownPoint is returned for an id absent from the registry.
	ErrUnknownPoint = errors.New("unknown point id")
	// ErrRegistryUnavailable is returned when the registry source cannot
	// be read.
	ErrRegistryUnavailable = errors.New("registry unavailable")

	// ErrNoReading is returned when no candidate survives filtering.
	// A zero reading is never produced silently in its place.
	ErrNoReading = errors.New("no reading detected")

	// ErrValidationFailed is returned when the winning candidate violates
	// the point's structural constraints.
	ErrValidationFailed = errors.New("reading failed validation")
)
