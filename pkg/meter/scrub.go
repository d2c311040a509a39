package meter

import (
	"regexp"
	"strconv"
	"strings"
)

// ScrubRule removes one class of nameplate text before number extraction.
// The default table reflects one meter vendor family; deployments add rules
// for new vendors instead of patching code.
type ScrubRule struct {
	Name    string
	Pattern *regexp.Regexp
}

// DefaultScrubRules is the nameplate-junk table for the installed vendor
// family: electrical ratings, compliance marks and branding that OCR picks
// up next to the digit drum.
func DefaultScrubRules() []ScrubRule {
	return []ScrubRule{
		{"ip-rating", regexp.MustCompile(`(?i)\bIP\s*51\b`)},
		{"frequency", regexp.MustCompile(`(?i)\b50\s*Hz\b`)},
		{"accuracy-class", regexp.MustCompile(`(?i)\bClass\s*2\b`)},
		{"voltage", regexp.MustCompile(`(?i)\b3\s*x\s*220\s*/\s*380\s*V?\b`)},
		{"unit", regexp.MustCompile(`(?i)\bkWh\b`)},
		{"meter-legend", regexp.MustCompile(`(?i)\bWATT[- ]?HOUR\s+METER\b`)},
		{"origin", regexp.MustCompile(`(?i)\bMade\s+in\s+Thailand\b`)},
		{"model-number", regexp.MustCompile(`\b[A-Z]{2,4}-[A-Z0-9]{2,6}\b`)},
	}
}

var (
	reScaleLabel = regexp.MustCompile(`\b10?,000\b`)

	reOneBetween  = regexp.MustCompile(`([0-9])[|Il!]([0-9])`)
	reZeroBetween = regexp.MustCompile(`([0-9])[Oo]([0-9])`)

	reTrailAlnum = regexp.MustCompile(`\b([0-9]{4,})[A-Za-z]\b`)
	reTrailPunct = regexp.MustCompile(`([0-9]{4,})[.,:;)\]?/\\']($|\s)`)

	reDateToken = regexp.MustCompile(`(^|\s)(20[2-9][0-9]|25[6-9][0-9])($|\s)`)
)

// Scrub produces the cleaned text the numeric strategies run on. The raw
// text is never scrubbed; keyword and stitcher strategies read it as-is.
// Order matters: junk, scale labels, glyph fixes, trailing repairs, dates.
func Scrub(raw string, rules []ScrubRule) string {
	clean := raw
	for _, r := range rules {
		clean = r.Pattern.ReplaceAllString(clean, " ")
	}
	clean = reScaleLabel.ReplaceAllString(clean, " ")

	// Digit lookalikes surrounded by digits. Loop to cover overlaps like
	// "1|2|3".
	for {
		next := reOneBetween.ReplaceAllString(clean, "${1}1${2}")
		next = reZeroBetween.ReplaceAllString(next, "${1}0${2}")
		if next == clean {
			break
		}
		clean = next
	}

	// Last-digit misreads on LCD panels: a stray letter closing a long
	// digit run is almost always an 8, a stray punctuation glyph a 7.
	clean = reTrailAlnum.ReplaceAllString(clean, "${1}8")
	clean = reTrailPunct.ReplaceAllString(clean, "${1}7${2}")

	// Year tokens (Gregorian and Buddhist calendar) are dates, not dials.
	for {
		next := reDateToken.ReplaceAllString(clean, "$1$3")
		if next == clean {
			break
		}
		clean = next
	}
	return clean
}

// idMarker finds identifier/serial markers whose trailing digits must never
// be mistaken for a reading.
var idMarker = regexp.MustCompile(`(?i)\b(id\b|code\b|no\.|no\b|serial\b|s/n)\s*[.:#]?[^0-9]{0,15}([0-9][0-9 ]*[0-9]|[0-9])`)

// Blacklist collects every integer that appears after an id/serial marker:
// the whole run and each whitespace-separated part.
func Blacklist(clean string) map[int64]struct{} {
	out := map[int64]struct{}{}
	for _, m := range idMarker.FindAllStringSubmatch(clean, -1) {
		run := m[2]
		parts := strings.Fields(run)
		joined := strings.Join(parts, "")
		if v, err := strconv.ParseInt(joined, 10, 64); err == nil {
			out[v] = struct{}{}
		}
		for _, p := range parts {
			if v, err := strconv.ParseInt(p, 10, 64); err == nil {
				out[v] = struct{}{}
			}
		}
	}
	return out
}
