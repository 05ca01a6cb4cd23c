package imaging

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	"image/png"
	"math"
	"strconv"
	"strings"

	"github.com/chai2010/webp"
	"github.com/lehigh-university-libraries/batchedit/internal/models"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// Quality is the encoder quality used for lossy formats (0.92 on a 0-1 scale)
const Quality = 92

// Output limits. Larger targets are rejected before any pixel buffer is allocated.
const (
	MaxLongestEdge = 16384
	MaxPixels      = 64 << 20
)

// Options controls the post-processing applied to an image
type Options struct {
	// AspectRatio is "w:h", or "original"/"" to keep the source framing
	AspectRatio string
	// LongestEdge is the target size of the longer side in pixels; 0 keeps the size
	LongestEdge int
	Format      models.Format
}

// ParseAspectRatio turns "w:h" into w/h. "original" and "" yield 0.
func ParseAspectRatio(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == models.Original {
		return 0, nil
	}

	ws, hs, ok := strings.Cut(s, ":")
	if !ok {
		return 0, fmt.Errorf("invalid aspect ratio %q: expected w:h", s)
	}
	w, err := strconv.ParseFloat(strings.TrimSpace(ws), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid aspect ratio %q: %w", s, err)
	}
	h, err := strconv.ParseFloat(strings.TrimSpace(hs), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid aspect ratio %q: %w", s, err)
	}
	if w <= 0 || h <= 0 || math.IsInf(w, 0) || math.IsInf(h, 0) {
		return 0, fmt.Errorf("invalid aspect ratio %q: sides must be positive", s)
	}

	return w / h, nil
}

// CropRect returns the centered region of a width x height image that has the
// given aspect ratio. A ratio <= 0 selects the full image.
func CropRect(width, height int, ratio float64) image.Rectangle {
	full := image.Rect(0, 0, width, height)
	if ratio <= 0 || width <= 0 || height <= 0 {
		return full
	}

	w, h := float64(width), float64(height)
	x, y := 0.0, 0.0
	current := w / h

	if ratio > current {
		newH := w / ratio
		y = (h - newH) / 2
		h = newH
	} else {
		newW := h * ratio
		x = (w - newW) / 2
		w = newW
	}

	x0 := int(math.Round(x))
	y0 := int(math.Round(y))
	r := image.Rect(x0, y0, x0+max(1, int(math.Round(w))), y0+max(1, int(math.Round(h))))
	return r.Intersect(full)
}

// OutputSize scales width x height so the longer side equals longestEdge.
// A longestEdge <= 0 keeps the dimensions.
func OutputSize(width, height, longestEdge int) (int, int) {
	if longestEdge <= 0 || width <= 0 || height <= 0 {
		return width, height
	}

	w, h := float64(width), float64(height)
	l := float64(longestEdge)
	if w > h {
		h = h / w * l
		w = l
	} else {
		w = w / h * l
		h = l
	}

	return max(1, int(math.Round(w))), max(1, int(math.Round(h)))
}

// Transform crops, resizes and re-encodes an image payload.
func Transform(p models.Payload, opts Options) (models.Payload, error) {
	format := opts.Format
	if format == "" {
		format = models.FormatJPEG
	}
	sameFormat := p.MIMEType == format.MIMEType()

	ratio, err := ParseAspectRatio(opts.AspectRatio)
	if err != nil {
		return models.Payload{}, fmt.Errorf("%w: %v", models.ErrTransform, err)
	}

	if ratio == 0 && opts.LongestEdge <= 0 && sameFormat {
		return p, nil
	}

	if sameFormat {
		cfg, _, err := image.DecodeConfig(bytes.NewReader(p.Data))
		if err == nil {
			crop := CropRect(cfg.Width, cfg.Height, ratio)
			ow, oh := OutputSize(crop.Dx(), crop.Dy(), opts.LongestEdge)
			if crop.Dx() == cfg.Width && crop.Dy() == cfg.Height && ow == cfg.Width && oh == cfg.Height {
				return p, nil
			}
		}
	}

	src, _, err := image.Decode(bytes.NewReader(p.Data))
	if err != nil {
		return models.Payload{}, fmt.Errorf("%w: failed to decode image: %v", models.ErrTransform, err)
	}

	b := src.Bounds()
	crop := CropRect(b.Dx(), b.Dy(), ratio).Add(b.Min)
	ow, oh := OutputSize(crop.Dx(), crop.Dy(), opts.LongestEdge)
	if ow > MaxLongestEdge || oh > MaxLongestEdge || ow*oh > MaxPixels {
		return models.Payload{}, fmt.Errorf("%w: output size %dx%d exceeds limit", models.ErrTransform, ow, oh)
	}

	dst := image.NewRGBA(image.Rect(0, 0, ow, oh))
	if ow == crop.Dx() && oh == crop.Dy() {
		draw.Draw(dst, dst.Bounds(), src, crop.Min, draw.Src)
	} else {
		draw.CatmullRom.Scale(dst, dst.Bounds(), src, crop, draw.Src, nil)
	}

	data, err := Encode(dst, format)
	if err != nil {
		return models.Payload{}, err
	}

	return models.Payload{MIMEType: format.MIMEType(), Data: data}, nil
}

// Encode serializes img in the given format
func Encode(img image.Image, format models.Format) ([]byte, error) {
	var buf bytes.Buffer
	var err error

	switch format {
	case models.FormatPNG:
		err = png.Encode(&buf, img)
	case models.FormatWebP:
		err = webp.Encode(&buf, img, &webp.Options{Quality: Quality})
	default:
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: Quality})
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to encode %s: %v", models.ErrTransform, format, err)
	}

	return buf.Bytes(), nil
}
