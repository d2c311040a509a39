package meter

import (
	"context"
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"
)

// Provider is the black-box text detector the pipeline consumes. It returns
// the document-level text plus per-word boxes exactly as detected; no
// caching, no retries. Retry policy belongs to the caller.
type Provider interface {
	Observe(ctx context.Context, image []byte) (Observation, error)
}

// TesseractProvider runs OCR through a local Tesseract engine. A fresh
// client is created per call, so one provider value may serve concurrent
// requests.
type TesseractProvider struct {
	// Whitelist restricts recognition to the given character set when
	// non-empty. Meter faces carry digits, unit labels and identifiers.
	Whitelist string
	// Languages passed to Tesseract, default "eng".
	Languages string
}

// NewTesseractProvider returns a provider tuned for meter faces: dictionary
// correction off so identifier strings are not "fixed" into English words.
func NewTesseractProvider() *TesseractProvider {
	return &TesseractProvider{Languages: "eng"}
}

// Observe implements Provider.
func (p *TesseractProvider) Observe(ctx context.Context, image []byte) (Observation, error) {
	if err := ctx.Err(); err != nil {
		return Observation{}, err
	}
	client := gosseract.NewClient()
	defer client.Close()

	lang := p.Languages
	if lang == "" {
		lang = "eng"
	}
	_ = client.SetLanguage(lang)
	if p.Whitelist != "" {
		_ = client.SetWhitelist(p.Whitelist)
	}
	// Identifier strings and drum readings are not dictionary words.
	_ = client.SetVariable("load_system_dawg", "false")
	_ = client.SetVariable("load_freq_dawg", "false")
	_ = client.SetVariable("preserve_interword_spaces", "1")

	if err := client.SetImageFromBytes(image); err != nil {
		return Observation{}, fmt.Errorf("%w: set image: %v", ErrOcrUnavailable, err)
	}
	text, err := client.Text()
	if err != nil {
		return Observation{}, fmt.Errorf("%w: %v", ErrOcrUnavailable, err)
	}
	if strings.TrimSpace(text) == "" {
		return Observation{}, ErrOcrEmpty
	}

	boxes, err := client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return Observation{}, fmt.Errorf("%w: bounding boxes: %v", ErrOcrUnavailable, err)
	}
	obs := Observation{FullText: text}
	for _, b := range boxes {
		w := strings.TrimSpace(b.Word)
		if w == "" {
			continue
		}
		obs.Words = append(obs.Words, Word{
			Text: w,
			BBox: Box{
				X: b.Box.Min.X,
				Y: b.Box.Min.Y,
				W: b.Box.Dx(),
				H: b.Box.Dy(),
			},
		})
	}
	return obs, nil
}
