package meter

import (
	"bytes"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// Variant selects a preprocessing rendition of the source photo.
type Variant string

const (
	// VariantRaw passes the image through untouched.
	VariantRaw Variant = "raw"
	// VariantAuto is the faithful enhancement pass: grayscale, contrast,
	// sharpen, upscale when small. OCR full text is taken from this one.
	VariantAuto Variant = "auto"
	// VariantCropRed is the analog rendition: ROI band plus red sub-dial
	// suppression.
	VariantCropRed Variant = "crop-red"
)

const (
	roiTop    = 0.30
	roiBottom = 0.70

	redMinSatVal   = 40  // of 255
	redMinArea     = 200 // px
	redMinAspect   = 0.5
	redMaxAspect   = 5.0
	redMinXFrac    = 0.40
	redCropXFrac   = 0.90
	redCropPadding = 10

	bottomStripFrac = 0.40
)

// Preprocessor renders OCR-ready variants of a meter photograph. It is
// stateless: the same (input, variant) pair always yields the same bytes.
type Preprocessor struct{}

// Render returns the requested variant encoded as PNG (raw returns the
// input bytes unchanged).
func (p *Preprocessor) Render(img []byte, v Variant) ([]byte, error) {
	switch v {
	case VariantRaw:
		return img, nil
	case VariantAuto:
		src, err := imaging.Decode(bytes.NewReader(img))
		if err != nil {
			return nil, fmt.Errorf("decode image: %w", err)
		}
		return encodePNG(enhance(src))
	case VariantCropRed:
		src, err := imaging.Decode(bytes.NewReader(img))
		if err != nil {
			return nil, fmt.Errorf("decode image: %w", err)
		}
		band := roiBand(src)
		cropped := suppressRed(band)
		return encodePNG(enhance(cropped))
	default:
		return nil, fmt.Errorf("unknown preprocess variant %q", v)
	}
}

// BottomStrip returns the lowest frac of the image (default 0.40 when
// frac <= 0), used by the point-id resolver: identifier plates sit below
// the dial.
func (p *Preprocessor) BottomStrip(img []byte, frac float64) ([]byte, error) {
	if frac <= 0 || frac > 1 {
		frac = bottomStripFrac
	}
	src, err := imaging.Decode(bytes.NewReader(img))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	b := src.Bounds()
	top := b.Min.Y + int(float64(b.Dy())*(1-frac))
	strip := imaging.Crop(src, image.Rect(b.Min.X, top, b.Max.X, b.Max.Y))
	return encodePNG(strip)
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// enhance is the base OCR-friendly pass.
func enhance(src image.Image) *image.NRGBA {
	out := imaging.Grayscale(src)
	out = imaging.AdjustContrast(out, 15)
	out = imaging.Sharpen(out, 0.7)
	if out.Bounds().Dy() < 900 {
		out = imaging.Resize(out, 0, 1300, imaging.Lanczos)
	}
	return out
}

// roiBand cuts the vertical band where an analog dial sits.
func roiBand(src image.Image) *image.NRGBA {
	b := src.Bounds()
	h := b.Dy()
	y0 := b.Min.Y + int(float64(h)*roiTop)
	y1 := b.Min.Y + int(float64(h)*roiBottom)
	return imaging.Crop(src, image.Rect(b.Min.X, y0, b.Max.X, y1))
}

// suppressRed excises the red decimal sub-dial: build a red mask in HSV,
// close it, keep components that look like a digit window on the right
// half, and crop everything from the leftmost such component on.
func suppressRed(img *image.NRGBA) *image.NRGBA {
	w := img.Bounds().Dx()
	h := img.Bounds().Dy()
	mask := redMask(img)
	mask = closeMask(mask, w, h)

	xRed := w
	for _, c := range components(mask, w, h) {
		if c.area < redMinArea {
			continue
		}
		cw := c.maxX - c.minX + 1
		ch := c.maxY - c.minY + 1
		aspect := float64(cw) / float64(ch)
		if aspect < redMinAspect || aspect > redMaxAspect {
			continue
		}
		if float64(c.minX) < redMinXFrac*float64(w) {
			continue
		}
		if c.minX < xRed {
			xRed = c.minX
		}
	}
	if float64(xRed) >= redCropXFrac*float64(w) {
		return img // no sub-dial found, pass through
	}
	cut := xRed - redCropPadding
	if cut < 1 {
		cut = 1
	}
	return imaging.Crop(img, image.Rect(0, 0, cut, h))
}

// redMask marks pixels whose hue falls in the red windows with enough
// saturation and value.
func redMask(img *image.NRGBA) []bool {
	w := img.Bounds().Dx()
	h := img.Bounds().Dy()
	mask := make([]bool, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := img.PixOffset(x, y)
			r := img.Pix[i]
			g := img.Pix[i+1]
			b := img.Pix[i+2]
			hue, sat, val := rgbToHSV(r, g, b)
			if sat < redMinSatVal || val < redMinSatVal {
				continue
			}
			if (hue >= 0 && hue <= 25) || (hue >= 155 && hue <= 180) {
				mask[y*w+x] = true
			}
		}
	}
	return mask
}

// rgbToHSV converts to hue in [0,180] degrees-halved (OpenCV convention,
// matching the windows the thresholds were tuned with), sat/val in [0,255].
func rgbToHSV(r, g, b uint8) (hue float64, sat, val uint8) {
	maxc := r
	if g > maxc {
		maxc = g
	}
	if b > maxc {
		maxc = b
	}
	minc := r
	if g < minc {
		minc = g
	}
	if b < minc {
		minc = b
	}
	val = maxc
	delta := float64(maxc) - float64(minc)
	if maxc == 0 || delta == 0 {
		return 0, 0, val
	}
	sat = uint8(delta / float64(maxc) * 255)
	var deg float64
	switch maxc {
	case r:
		deg = 60 * (float64(g) - float64(b)) / delta
	case g:
		deg = 120 + 60*(float64(b)-float64(r))/delta
	default:
		deg = 240 + 60*(float64(r)-float64(g))/delta
	}
	if deg < 0 {
		deg += 360
	}
	return deg / 2, sat, val
}

// ellipse5 is the 5x5 elliptical structuring element.
var ellipse5 = func() [][2]int {
	rows := [5][5]int{
		{0, 0, 1, 0, 0},
		{1, 1, 1, 1, 1},
		{1, 1, 1, 1, 1},
		{1, 1, 1, 1, 1},
		{0, 0, 1, 0, 0},
	}
	var offs [][2]int
	for dy := 0; dy < 5; dy++ {
		for dx := 0; dx < 5; dx++ {
			if rows[dy][dx] == 1 {
				offs = append(offs, [2]int{dx - 2, dy - 2})
			}
		}
	}
	return offs
}()

// closeMask performs a morphological close (dilate then erode).
func closeMask(mask []bool, w, h int) []bool {
	dil := make([]bool, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if !mask[y*w+x] {
				continue
			}
			for _, d := range ellipse5 {
				x2, y2 := x+d[0], y+d[1]
				if x2 < 0 || y2 < 0 || x2 >= w || y2 >= h {
					continue
				}
				dil[y2*w+x2] = true
			}
		}
	}
	out := make([]bool, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			keep := true
			for _, d := range ellipse5 {
				x2, y2 := x+d[0], y+d[1]
				if x2 < 0 || y2 < 0 || x2 >= w || y2 >= h {
					continue
				}
				if !dil[y2*w+x2] {
					keep = false
					break
				}
			}
			out[y*w+x] = keep && dil[y*w+x]
		}
	}
	return out
}

type component struct {
	area                   int
	minX, minY, maxX, maxY int
}

// components labels 4-connected regions of the mask.
func components(mask []bool, w, h int) []component {
	seen := make([]bool, w*h)
	var comps []component
	var queue []int
	for start := 0; start < w*h; start++ {
		if !mask[start] || seen[start] {
			continue
		}
		c := component{minX: w, minY: h, maxX: -1, maxY: -1}
		queue = queue[:0]
		queue = append(queue, start)
		seen[start] = true
		for len(queue) > 0 {
			i := queue[len(queue)-1]
			queue = queue[:len(queue)-1]
			x, y := i%w, i/w
			c.area++
			if x < c.minX {
				c.minX = x
			}
			if x > c.maxX {
				c.maxX = x
			}
			if y < c.minY {
				c.minY = y
			}
			if y > c.maxY {
				c.maxY = y
			}
			for _, d := range [4][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}} {
				x2, y2 := x+d[0], y+d[1]
				if x2 < 0 || y2 < 0 || x2 >= w || y2 >= h {
					continue
				}
				j := y2*w + x2
				if mask[j] && !seen[j] {
					seen[j] = true
					queue = append(queue, j)
				}
			}
		}
		comps = append(comps, c)
	}
	return comps
}
