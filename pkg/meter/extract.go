package meter

import (
	"context"
	"errors"
	"log"
	"math"
)

const (
	maxReadingValue = 1e9
	lowConfScore    = 50
)

// Engine turns a meter photograph into a single calibrated reading. It
// never throws on OCR content: the outcome is a Reading or ErrNoReading.
// Transport-level OCR failures propagate as-is.
type Engine struct {
	Provider   Provider
	Pre        *Preprocessor
	ScrubRules []ScrubRule
}

// NewEngine wires the provider bundle with the default scrub table.
func NewEngine(p Provider, pre *Preprocessor) *Engine {
	return &Engine{Provider: p, Pre: pre, ScrubRules: DefaultScrubRules()}
}

// Extract runs the strategy chain for the resolved point and selects the
// winning candidate.
func (e *Engine) Extract(ctx context.Context, img []byte, cfg PointConfig) (Reading, error) {
	auto, err := e.Pre.Render(img, VariantAuto)
	if err != nil {
		return Reading{}, err
	}
	obs, err := e.Provider.Observe(ctx, auto)
	if err != nil && !errors.Is(err, ErrOcrEmpty) {
		return Reading{}, err
	}

	ec := e.newContext(cfg, obs.FullText)
	var pool []Candidate
	for _, s := range digitStrategies() {
		pool = append(pool, s.Run(ec)...)
	}
	survivors := filterCandidates(pool, ec)

	// Spatial-crop fallback: rerun OCR with the red sub-dial excised and
	// give the rerun a flat trust bonus.
	if len(survivors) == 0 {
		if err := ctx.Err(); err != nil {
			return Reading{}, err
		}
		cropped, err := e.Pre.Render(img, VariantCropRed)
		if err != nil {
			return Reading{}, err
		}
		obs2, err := e.Provider.Observe(ctx, cropped)
		if err != nil && !errors.Is(err, ErrOcrEmpty) {
			return Reading{}, err
		}
		ec2 := e.newContext(cfg, obs2.FullText)
		var fallback []Candidate
		for _, s := range fallbackStrategies() {
			fallback = append(fallback, s.Run(ec2)...)
		}
		for i := range fallback {
			fallback[i].Score += spatialCropBonus
			fallback[i].Origin = OriginSpatialCrop
		}
		survivors = filterCandidates(fallback, ec2)
	}

	if len(survivors) == 0 {
		return Reading{}, ErrNoReading
	}
	best := selectCandidate(survivors)
	log.Printf("extract %s: value=%v score=%d origin=%s candidates=%d",
		cfg.PointID, best.Value, best.Score, best.Origin, len(survivors))
	return Reading{
		Value:         best.Value,
		Score:         best.Score,
		Origin:        best.Origin,
		LowConfidence: best.Score < lowConfScore,
		IntDigits:     best.IntDigits,
	}, nil
}

func (e *Engine) newContext(cfg PointConfig, raw string) *ExtractionContext {
	clean := Scrub(raw, e.ScrubRules)
	return &ExtractionContext{
		Config:    cfg,
		Raw:       raw,
		Clean:     clean,
		Blacklist: Blacklist(clean),
	}
}

// filterCandidates applies the structural constraints every candidate must
// clear: id blacklist, expected digit count, polarity, range sanity.
func filterCandidates(pool []Candidate, ec *ExtractionContext) []Candidate {
	var out []Candidate
	for _, c := range pool {
		if isBlacklisted(c.Value, ec.Blacklist) {
			continue
		}
		if n := ec.Config.ExpectedDigits; n > 0 {
			if c.IntDigits != n && c.IntDigits != n-1 {
				continue
			}
		}
		if c.Value < 0 && !ec.Config.AllowNegative {
			continue
		}
		if math.Abs(c.Value) >= maxReadingValue {
			continue
		}
		out = append(out, c)
	}
	return out
}

func isBlacklisted(v float64, blacklist map[int64]struct{}) bool {
	if v != math.Trunc(v) {
		return false
	}
	_, listed := blacklist[int64(v)]
	return listed
}

// selectCandidate picks the highest score; ties go to the larger value,
// since small values are disproportionately partial dial reads.
func selectCandidate(pool []Candidate) Candidate {
	best := pool[0]
	for _, c := range pool[1:] {
		if c.Score > best.Score || (c.Score == best.Score && c.Value > best.Value) {
			best = c
		}
	}
	return best
}
