package meter

import (
	"regexp"
	"strings"
)

var (
	reKeyJunk   = regexp.MustCompile(`[^A-Z0-9_]+`)
	reKeyUnders = regexp.MustCompile(`_{2,}`)
	reKeySLeft  = regexp.MustCompile(`([0-9]_?)S`)
	reKeySRight = regexp.MustCompile(`S(_?[0-9])`)
)

// NormalizeKey canonicalizes free-form OCR text into a registry-comparable
// identifier key: uppercase, separators collapsed to single underscores,
// everything outside [A-Z0-9_] dropped, plus fixed repairs for the OCR
// confusions the registry data is known to trip on. Idempotent.
func NormalizeKey(s string) string {
	s = strings.ToUpper(s)
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.Join(strings.Fields(s), "_")
	s = reKeyJunk.ReplaceAllString(s, "")
	s = reKeyUnders.ReplaceAllString(s, "_")
	s = strings.Trim(s, "_")

	// S misread as 3 when it sits on a digit boundary (left of, between,
	// or right of separators).
	for {
		next := reKeySLeft.ReplaceAllString(s, "${1}3")
		next = reKeySRight.ReplaceAllString(next, "3${1}")
		if next == s {
			break
		}
		s = next
	}

	// Doubled trailing digits collapse in OCR: the registry stores "3_3",
	// the photo reads "33". Split only an exact trailing pair so the
	// transform stays idempotent.
	segs := strings.Split(s, "_")
	for i, seg := range segs {
		n := len(seg)
		if n < 2 {
			continue
		}
		last := seg[n-1]
		if last < '0' || last > '9' || seg[n-2] != last {
			continue
		}
		if n > 2 && seg[n-3] >= '0' && seg[n-3] <= '9' {
			continue // longer digit run, not a collapsed pair
		}
		segs[i] = seg[:n-1] + "_" + string(last)
	}
	return strings.Join(segs, "_")
}

// NormalizeText applies the same canonical form to a whole OCR document so
// identifier patterns can be scanned positionally.
func NormalizeText(s string) string {
	return NormalizeKey(s)
}
