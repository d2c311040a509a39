package meter

import (
	"fmt"
	"math"
	"time"
)

// DefaultTolerance is the absolute mismatch between manual and engine
// values still counted as agreement. A policy choice, not a physical
// bound; override per deployment.
const DefaultTolerance = 1.0

// Validator turns a raw engine reading into a final Result.
type Validator struct {
	// Tolerance in absolute reading units; <= 0 falls back to
	// DefaultTolerance.
	Tolerance float64
	Now       func() time.Time
}

func (v *Validator) tolerance() float64 {
	if v.Tolerance > 0 {
		return v.Tolerance
	}
	return DefaultTolerance
}

func (v *Validator) now() time.Time {
	if v.Now != nil {
		return v.Now()
	}
	return time.Now()
}

// Validate applies the point's structural constraints and the operator
// cross-check.
//
//   - VERIFIED when the operator's manual value agrees within tolerance.
//   - FLAGGED when the engine is low-confidence, when no manual value was
//     supplied, or when the operator explicitly confirmed a mismatch.
//   - An unconfirmed mismatch or a structural violation returns
//     ErrValidationFailed; nothing is persisted for it.
func (v *Validator) Validate(pointID string, rd Reading, cfg PointConfig, manual *float64, confirmed bool) (Result, error) {
	if rd.Value < 0 && !cfg.AllowNegative {
		return Result{}, fmt.Errorf("%w: negative reading %v on %s", ErrValidationFailed, rd.Value, pointID)
	}
	if math.Abs(rd.Value) >= maxReadingValue {
		return Result{}, fmt.Errorf("%w: reading %v out of range", ErrValidationFailed, rd.Value)
	}
	if n := cfg.ExpectedDigits; n > 0 && rd.IntDigits != n && rd.IntDigits != n-1 {
		return Result{}, fmt.Errorf("%w: %d integer digits, expected %d or %d", ErrValidationFailed, rd.IntDigits, n, n-1)
	}

	res := Result{
		PointID:   pointID,
		Value:     rd.Value,
		Timestamp: v.now(),
	}
	switch {
	case rd.LowConfidence:
		res.Status = StatusFlagged
		res.Notes = fmt.Sprintf("low-confidence (score %d)", rd.Score)
	case manual == nil:
		res.Status = StatusFlagged
		res.Notes = "no manual value supplied"
	case math.Abs(*manual-rd.Value) <= v.tolerance():
		res.Status = StatusVerified
	case confirmed:
		res.Status = StatusFlagged
		res.Notes = fmt.Sprintf("operator confirmed mismatch: manual %v vs engine %v", *manual, rd.Value)
	default:
		return Result{}, fmt.Errorf("%w: manual %v vs engine %v exceeds tolerance %v",
			ErrValidationFailed, *manual, rd.Value, v.tolerance())
	}
	return res, nil
}
