package meter

import (
	"regexp"
	"strconv"
	"strings"
)

// ExtractionContext is the shared input of every strategy: the per-point
// config, the faithful OCR text, its scrubbed form, and the id blacklist.
type ExtractionContext struct {
	Config    PointConfig
	Raw       string
	Clean     string
	Blacklist map[int64]struct{}
}

// Strategy produces zero or more candidates from the context. Strategies
// are pure: no I/O, no shared state, so the chain is deterministic.
type Strategy struct {
	Name string
	Run  func(*ExtractionContext) []Candidate
}

const (
	scoreKeywordDecimal = 300
	scoreKeywordPlain   = 280
	scorePerDialSlot    = 100
	penaltyBinaryNoise  = 300
	scoreBase           = 100
	scorePerRunDigit    = 50
	scoreDecimalBonus   = 50
	// spatialCropBonus is calibrated, not derived: red-suppressed OCR
	// earned a flat trust bump during field tuning.
	spatialCropBonus = 25
)

// digitStrategies is the ordered chain evaluated on the faithful variant.
func digitStrategies() []Strategy {
	return []Strategy{
		{"keyword-hunter", keywordHunter},
		{"analog-stitcher", analogStitcher},
		{"loose-digit-run", looseDigitRun},
		{"standard-numeric", standardNumeric},
	}
}

// fallbackStrategies is the chain rerun over the red-suppressed text.
func fallbackStrategies() []Strategy {
	return []Strategy{
		{"loose-digit-run", looseDigitRun},
		{"standard-numeric", standardNumeric},
	}
}

// glyphDigits repairs digit lookalikes inside a keyword-adjacent run.
var glyphRepairer = strings.NewReplacer("O", "0", "o", "0", "l", "1", "I", "1", "|", "1")

// keywordHunter (S1) looks for the configured label followed closely by a
// digit-like run. The label sits next to the reading on LCD and SCADA
// screens, so a hit outranks everything else.
func keywordHunter(ec *ExtractionContext) []Candidate {
	kw := ec.Config.Keyword
	if kw == "" {
		return nil
	}
	re := regexp.MustCompile(`(?i)` + regexp.QuoteMeta(kw) + `[^0-9OolI|]{0,15}([0-9OolI|]+(?:[.,][0-9OolI|]+)?)`)
	var out []Candidate
	for _, line := range strings.Split(ec.Raw, "\n") {
		if ec.Config.Kind == KindScada {
			// SCADA panels render "Previous day" and "Previous hour"
			// side by side; only the former is the reading.
			low := strings.ToLower(line)
			if !strings.Contains(low, "previous day") || strings.Contains(low, "previous hour") {
				continue
			}
		}
		m := re.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		lit := glyphRepairer.Replace(m[1])
		lit = strings.ReplaceAll(lit, ",", ".")
		hasPoint := strings.Contains(lit, ".")
		v, err := strconv.ParseFloat(lit, 64)
		if err != nil {
			continue
		}
		if !hasPoint && ec.Config.Decimals > 0 {
			v /= pow10(ec.Config.Decimals)
		}
		score := scoreKeywordPlain
		if hasPoint {
			score = scoreKeywordDecimal
		}
		out = append(out, Candidate{
			Value:          v,
			Score:          score,
			Origin:         OriginKeyword,
			Raw:            m[1],
			LiteralDecimal: hasPoint,
			IntDigits:      len(onlyDigits(strings.SplitN(lit, ".", 2)[0])),
		})
	}
	return out
}

// dialLabels in descending order of magnitude, as engraved on the dial.
var dialLabels = []string{"10,000", "1,000", "100", "10", "1"}

// analogStitcher (S2) rebuilds a drum reading digit by digit from the dial
// value engravings. Only meaningful on totalizers with a wide drum.
func analogStitcher(ec *ExtractionContext) []Candidate {
	if ec.Config.ExpectedDigits < 4 {
		return nil
	}
	slots := make([]byte, len(dialLabels))
	populated := 0
	for i, label := range dialLabels {
		re := regexp.MustCompile(`\b` + regexp.QuoteMeta(label) + `\b[^0-9]{0,30}\s([0-9])`)
		m := re.FindStringSubmatch(ec.Raw)
		if m == nil {
			continue
		}
		slots[i] = m[1][0]
		populated++
	}
	if populated < 2 {
		return nil
	}
	var sb strings.Builder
	for _, d := range slots {
		if d != 0 {
			sb.WriteByte(d)
		}
	}
	digits := sb.String()
	v, err := strconv.ParseFloat(digits, 64)
	if err != nil {
		return nil
	}
	score := scorePerDialSlot * populated
	if binaryNoise(digits) {
		score -= penaltyBinaryNoise
	}
	return []Candidate{{
		Value:     v,
		Score:     score,
		Origin:    OriginStitched,
		Raw:       digits,
		IntDigits: len(digits),
	}}
}

// binaryNoise reports a string made only of 0s and 1s, the signature of
// dial-label fragments stitched together instead of drum digits.
func binaryNoise(s string) bool {
	for _, r := range s {
		if r != '0' && r != '1' {
			return false
		}
	}
	return true
}

// reLooseRun stitches digits across short gaps. A decimal point never
// counts as a gap: literals with a point belong to standard-numeric, and
// letting the run swallow them would read 38.87 as 3887.
var reLooseRun = regexp.MustCompile(`[0-9](?:[^0-9.\n]{0,10}[0-9]){3,6}`)

// scaleValues are dial-label amounts that sometimes survive scrubbing.
var scaleValues = map[int64]struct{}{1: {}, 10: {}, 100: {}, 1000: {}, 10000: {}}

// looseDigitRun (S3) stitches digits scattered by glare or drum edges back
// into one run.
func looseDigitRun(ec *ExtractionContext) []Candidate {
	var out []Candidate
	for _, m := range reLooseRun.FindAllString(ec.Clean, -1) {
		digits := onlyDigits(m)
		v, err := strconv.ParseFloat(digits, 64)
		if err != nil {
			continue
		}
		if _, scale := scaleValues[int64(v)]; scale {
			continue
		}
		if _, listed := ec.Blacklist[int64(v)]; listed {
			continue
		}
		out = append(out, Candidate{
			Value:     v,
			Score:     scoreBase + scorePerRunDigit*len(digits),
			Origin:    OriginLooseRun,
			Raw:       m,
			IntDigits: len(digits),
		})
	}
	return out
}

var (
	reDecimalLit = regexp.MustCompile(`-?[0-9]+(?:\.[0-9]+)?`)
	reIntegerLit = regexp.MustCompile(`-?[0-9]+`)
)

// standardNumeric (S4) takes every plain numeric literal from the scrubbed
// text.
func standardNumeric(ec *ExtractionContext) []Candidate {
	re := reIntegerLit
	if ec.Config.Decimals > 0 {
		re = reDecimalLit
	}
	var out []Candidate
	for _, m := range re.FindAllString(ec.Clean, -1) {
		v, err := strconv.ParseFloat(m, 64)
		if err != nil {
			continue
		}
		hasPoint := strings.Contains(m, ".")
		score := scoreBase
		if hasPoint && ec.Config.Decimals > 0 {
			score += scoreDecimalBonus
		}
		out = append(out, Candidate{
			Value:          v,
			Score:          score,
			Origin:         OriginStandard,
			Raw:            m,
			LiteralDecimal: hasPoint,
			IntDigits:      len(onlyDigits(strings.SplitN(m, ".", 2)[0])),
		})
	}
	return out
}

func pow10(n int) float64 {
	v := 1.0
	for i := 0; i < n; i++ {
		v *= 10
	}
	return v
}

// onlyDigits keeps decimal digits.
func onlyDigits(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
}
