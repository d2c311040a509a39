package meter

import (
	"context"
	"errors"
	"fmt"
	"log"
	"regexp"
	"sort"
)

// idPattern matches candidate identifiers in normalized OCR text: a short
// prefix starting with a letter, then underscore-joined segments.
var idPattern = regexp.MustCompile(`[A-Z][A-Z0-9]{0,3}(?:_[A-Z0-9]+)+`)

const (
	fuzzyAcceptRatio = 0.80
	fuzzyAmbiguity   = 0.05
)

// Resolver maps the free-form text on a meter photo to a canonical point id
// from a registry snapshot. It runs three explicit passes: OCR of the bottom
// strip (where the identifier plate sits), OCR of the whole image, then a
// fuzzy pass over everything seen so far.
type Resolver struct {
	Provider Provider
	Pre      *Preprocessor
}

type resolveState int

const (
	stateBottomStrip resolveState = iota
	stateFullImage
	stateFuzzy
)

// Resolve returns the canonical id for the meter in the image, or one of
// ErrOcrEmpty (no text anywhere), ErrPointUnresolved (no identifier
// pattern matched), ErrPointAmbiguous (fuzzy tie).
func (r *Resolver) Resolve(ctx context.Context, img []byte, registry map[string]string) (string, error) {
	var candidates []string
	seen := map[string]struct{}{}
	sawText := false

	for state := stateBottomStrip; ; state++ {
		switch state {
		case stateBottomStrip, stateFullImage:
			target := img
			if state == stateBottomStrip {
				strip, err := r.Pre.BottomStrip(img, 0)
				if err != nil {
					return "", err
				}
				target = strip
			}
			obs, err := r.Provider.Observe(ctx, target)
			if errors.Is(err, ErrOcrEmpty) {
				continue
			}
			if err != nil {
				return "", err
			}
			sawText = true
			for _, cand := range idPattern.FindAllString(NormalizeText(obs.FullText), -1) {
				if canonical, ok := registry[cand]; ok {
					return canonical, nil
				}
				if _, dup := seen[cand]; !dup {
					seen[cand] = struct{}{}
					candidates = append(candidates, cand)
				}
			}
		case stateFuzzy:
			if !sawText {
				return "", ErrOcrEmpty
			}
			if len(candidates) == 0 {
				return "", ErrPointUnresolved
			}
			return fuzzyResolve(candidates, registry)
		}
	}
}

// fuzzyResolve scores every (candidate, registry key) pair by LCS ratio and
// accepts the best key only when it clears the threshold with a margin over
// the runner-up.
func fuzzyResolve(candidates []string, registry map[string]string) (string, error) {
	keys := make([]string, 0, len(registry))
	for k := range registry {
		keys = append(keys, k)
	}
	sort.Strings(keys) // deterministic scan order

	bestRatio, runnerUp := 0.0, 0.0
	bestKey := ""
	for _, cand := range candidates {
		for _, key := range keys {
			ratio := lcsRatio(cand, key)
			if ratio > bestRatio {
				if key != bestKey {
					runnerUp = bestRatio
				}
				bestRatio = ratio
				bestKey = key
			} else if key != bestKey && ratio > runnerUp {
				runnerUp = ratio
			}
		}
	}
	if bestKey == "" || bestRatio < fuzzyAcceptRatio {
		return "", fmt.Errorf("%w: best ratio %.2f", ErrPointUnresolved, bestRatio)
	}
	if bestRatio-runnerUp < fuzzyAmbiguity {
		return "", fmt.Errorf("%w: %s (%.2f) vs runner-up %.2f", ErrPointAmbiguous, bestKey, bestRatio, runnerUp)
	}
	log.Printf("point id fuzzy match %s ratio=%.2f", bestKey, bestRatio)
	return registry[bestKey], nil
}

// lcsRatio is LCS(a,b) / max(len(a), len(b)).
func lcsRatio(a, b string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				cur[j] = prev[j-1] + 1
			} else if prev[j] >= cur[j-1] {
				cur[j] = prev[j]
			} else {
				cur[j] = cur[j-1]
			}
		}
		prev, cur = cur, prev
	}
	lcs := prev[len(b)]
	denom := len(a)
	if len(b) > denom {
		denom = len(b)
	}
	return float64(lcs) / float64(denom)
}
