package meter

import "fmt"

// Kind classifies the physical meter a point refers to. The enabled
// extraction strategies derive from it.
type Kind string

const (
	// KindDigital is an LCD display scrolling through labeled values.
	KindDigital Kind = "digital"
	// KindAnalog is a mechanical drum totalizer, usually with a red
	// decimal sub-dial to the right of the integer drum.
	KindAnalog Kind = "analog"
	// KindScada is a photograph of a supervisory control panel.
	KindScada Kind = "scada"
)

// PointConfig is the per-meter configuration loaded from the registry.
type PointConfig struct {
	PointID        string `json:"point_id"`
	Kind           Kind   `json:"kind"`
	Decimals       int    `json:"decimals"`        // 0..3
	ExpectedDigits int    `json:"expected_digits"` // integer digits in a plausible reading, 0 = unenforced
	Keyword        string `json:"keyword"`         // label adjacent to the reading, e.g. "Previous day"
	AllowNegative  bool   `json:"allow_negative"`
	IgnoreRed      bool   `json:"ignore_red"`    // suppress the red decimal sub-dial
	ReportColumn   string `json:"report_column"` // opaque routing tag for the export sink
}

// Validate enforces the structural invariants on a single point record.
func (c PointConfig) Validate() error {
	if c.PointID == "" {
		return fmt.Errorf("point id empty")
	}
	if c.Decimals < 0 || c.Decimals > 3 {
		return fmt.Errorf("point %s: decimals %d out of range [0,3]", c.PointID, c.Decimals)
	}
	if c.ExpectedDigits < 0 {
		return fmt.Errorf("point %s: expected_digits %d negative", c.PointID, c.ExpectedDigits)
	}
	if c.Kind == KindAnalog {
		if c.Decimals != 0 {
			return fmt.Errorf("point %s: analog meters carry no decimals, got %d", c.PointID, c.Decimals)
		}
		if !c.IgnoreRed {
			return fmt.Errorf("point %s: analog meters must ignore the red sub-dial", c.PointID)
		}
	}
	switch c.Kind {
	case KindDigital, KindAnalog, KindScada:
	default:
		return fmt.Errorf("point %s: unknown kind %q", c.PointID, c.Kind)
	}
	return nil
}
