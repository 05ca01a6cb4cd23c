package imaging

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"math"
	"testing"

	"github.com/lehigh-university-libraries/batchedit/internal/models"
)

func testImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 128, A: 255})
		}
	}
	return img
}

func pngPayload(t *testing.T, w, h int) models.Payload {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, testImage(w, h)); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return models.Payload{MIMEType: "image/png", Data: buf.Bytes()}
}

func jpegPayload(t *testing.T, w, h int) models.Payload {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, testImage(w, h), nil); err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}
	return models.Payload{MIMEType: "image/jpeg", Data: buf.Bytes()}
}

func decodeConfig(t *testing.T, p models.Payload) (image.Config, string) {
	t.Helper()
	cfg, format, err := image.DecodeConfig(bytes.NewReader(p.Data))
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	return cfg, format
}

func TestParseAspectRatio(t *testing.T) {
	tests := []struct {
		in      string
		want    float64
		wantErr bool
	}{
		{in: "original", want: 0},
		{in: "", want: 0},
		{in: "1:1", want: 1},
		{in: "16:9", want: 16.0 / 9.0},
		{in: "3:4", want: 0.75},
		{in: "16x9", wantErr: true},
		{in: "0:1", wantErr: true},
		{in: "a:b", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseAspectRatio(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tt.in)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseAspectRatio(%q) error = %v", tt.in, err)
			}
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("ParseAspectRatio(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestCropRectIsCenteredAndMatchesRatio(t *testing.T) {
	sizes := [][2]int{{4000, 3000}, {3000, 4000}, {1920, 1080}, {1080, 1920}, {1001, 999}, {640, 640}}
	ratios := []string{"1:1", "16:9", "9:16", "4:3", "3:4"}

	for _, size := range sizes {
		for _, rs := range ratios {
			ratio, err := ParseAspectRatio(rs)
			if err != nil {
				t.Fatal(err)
			}
			w, h := size[0], size[1]
			r := CropRect(w, h, ratio)

			got := float64(r.Dx()) / float64(r.Dy())
			// one pixel of rounding on the cropped axis
			tolerance := ratio / float64(min(r.Dx(), r.Dy()))
			if math.Abs(got-ratio) > tolerance+1e-9 {
				t.Errorf("%dx%d %s: crop %v ratio %.4f, want %.4f", w, h, rs, r, got, ratio)
			}

			if r.Dx() != w && r.Dy() != h {
				t.Errorf("%dx%d %s: crop %v trims both axes", w, h, rs, r)
			}
			if r.Dx() < w {
				want := float64(w-r.Dx()) / 2
				if math.Abs(float64(r.Min.X)-want) > 1 {
					t.Errorf("%dx%d %s: x offset %d, want ~%.1f", w, h, rs, r.Min.X, want)
				}
			}
			if r.Dy() < h {
				want := float64(h-r.Dy()) / 2
				if math.Abs(float64(r.Min.Y)-want) > 1 {
					t.Errorf("%dx%d %s: y offset %d, want ~%.1f", w, h, rs, r.Min.Y, want)
				}
			}
		}
	}
}

func TestCropRectWithoutRatioIsFullFrame(t *testing.T) {
	r := CropRect(800, 600, 0)
	if r != image.Rect(0, 0, 800, 600) {
		t.Fatalf("CropRect() = %v, want full frame", r)
	}
}

func TestOutputSize(t *testing.T) {
	tests := []struct {
		name          string
		w, h, longest int
		wantW, wantH  int
	}{
		{name: "landscape", w: 4000, h: 3000, longest: 1920, wantW: 1920, wantH: 1440},
		{name: "portrait", w: 3000, h: 4000, longest: 1920, wantW: 1440, wantH: 1920},
		{name: "square", w: 500, h: 500, longest: 1280, wantW: 1280, wantH: 1280},
		{name: "unchanged", w: 500, h: 300, longest: 0, wantW: 500, wantH: 300},
		{name: "upscale", w: 100, h: 50, longest: 3840, wantW: 3840, wantH: 1920},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h := OutputSize(tt.w, tt.h, tt.longest)
			if w != tt.wantW || h != tt.wantH {
				t.Fatalf("OutputSize() = %dx%d, want %dx%d", w, h, tt.wantW, tt.wantH)
			}
			if tt.longest > 0 {
				if max(w, h) != tt.longest {
					t.Errorf("longest edge = %d, want %d", max(w, h), tt.longest)
				}
				before := float64(tt.w) / float64(tt.h)
				after := float64(w) / float64(h)
				if math.Abs(before-after) > 0.01 {
					t.Errorf("aspect %.4f -> %.4f", before, after)
				}
			}
		})
	}
}

func TestTransformPassThrough(t *testing.T) {
	in := jpegPayload(t, 64, 48)

	out, err := Transform(in, Options{AspectRatio: "original", Format: models.FormatJPEG})
	if err != nil {
		t.Fatalf("Transform() error = %v", err)
	}
	if !bytes.Equal(out.Data, in.Data) || out.MIMEType != in.MIMEType {
		t.Fatal("expected byte-for-byte pass-through")
	}
}

func TestTransformPassThroughSkipsDecode(t *testing.T) {
	// not a decodable image; the fast path must not look at the bytes
	in := models.Payload{MIMEType: "image/png", Data: []byte("not really a png")}

	out, err := Transform(in, Options{AspectRatio: "original", Format: models.FormatPNG})
	if err != nil {
		t.Fatalf("Transform() error = %v", err)
	}
	if !bytes.Equal(out.Data, in.Data) {
		t.Fatal("expected pass-through")
	}
}

func TestTransformCropResizeEncode(t *testing.T) {
	tests := []struct {
		name       string
		in         models.Payload
		opts       Options
		wantW      int
		wantH      int
		wantFormat string
		wantMIME   string
	}{
		{
			name:       "jpeg to png at 1920",
			in:         jpegPayload(t, 400, 300),
			opts:       Options{AspectRatio: "original", LongestEdge: 1920, Format: models.FormatPNG},
			wantW:      1920,
			wantH:      1440,
			wantFormat: "png",
			wantMIME:   "image/png",
		},
		{
			name:       "square crop keeps size",
			in:         pngPayload(t, 400, 300),
			opts:       Options{AspectRatio: "1:1", Format: models.FormatJPEG},
			wantW:      300,
			wantH:      300,
			wantFormat: "jpeg",
			wantMIME:   "image/jpeg",
		},
		{
			name:       "portrait crop then shrink",
			in:         pngPayload(t, 800, 600),
			opts:       Options{AspectRatio: "9:16", LongestEdge: 320, Format: models.FormatPNG},
			wantW:      180,
			wantH:      320,
			wantFormat: "png",
			wantMIME:   "image/png",
		},
		{
			name:       "format change only",
			in:         pngPayload(t, 120, 80),
			opts:       Options{AspectRatio: "original", Format: models.FormatWebP},
			wantW:      120,
			wantH:      80,
			wantFormat: "webp",
			wantMIME:   "image/webp",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Transform(tt.in, tt.opts)
			if err != nil {
				t.Fatalf("Transform() error = %v", err)
			}
			if out.MIMEType != tt.wantMIME {
				t.Errorf("MIMEType = %q, want %q", out.MIMEType, tt.wantMIME)
			}
			cfg, format := decodeConfig(t, out)
			if format != tt.wantFormat {
				t.Errorf("encoded format = %q, want %q", format, tt.wantFormat)
			}
			if cfg.Width != tt.wantW || cfg.Height != tt.wantH {
				t.Errorf("size = %dx%d, want %dx%d", cfg.Width, cfg.Height, tt.wantW, tt.wantH)
			}
		})
	}
}

func TestTransformIsIdempotent(t *testing.T) {
	opts := Options{AspectRatio: "16:9", LongestEdge: 640, Format: models.FormatPNG}

	first, err := Transform(jpegPayload(t, 1000, 800), opts)
	if err != nil {
		t.Fatalf("first Transform() error = %v", err)
	}
	second, err := Transform(first, opts)
	if err != nil {
		t.Fatalf("second Transform() error = %v", err)
	}
	if !bytes.Equal(first.Data, second.Data) {
		t.Fatal("second transform re-encoded an already transformed image")
	}
}

func TestTransformDecodeFailure(t *testing.T) {
	in := models.Payload{MIMEType: "image/png", Data: []byte("garbage")}

	_, err := Transform(in, Options{LongestEdge: 100, Format: models.FormatJPEG})
	if !errors.Is(err, models.ErrTransform) {
		t.Fatalf("error = %v, want ErrTransform", err)
	}
}

func TestTransformInvalidRatio(t *testing.T) {
	_, err := Transform(pngPayload(t, 10, 10), Options{AspectRatio: "wide", Format: models.FormatPNG})
	if !errors.Is(err, models.ErrTransform) {
		t.Fatalf("error = %v, want ErrTransform", err)
	}
}

func TestTransformRejectsOversizeOutput(t *testing.T) {
	tests := []struct {
		name string
		opts Options
	}{
		{name: "edge over limit", opts: Options{LongestEdge: MaxLongestEdge + 1, Format: models.FormatPNG}},
		{name: "area over limit", opts: Options{AspectRatio: "1:1", LongestEdge: MaxLongestEdge, Format: models.FormatPNG}},
		{name: "absurd edge", opts: Options{LongestEdge: math.MaxInt32, Format: models.FormatJPEG}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Transform(pngPayload(t, 10, 10), tt.opts)
			if !errors.Is(err, models.ErrTransform) {
				t.Fatalf("error = %v, want ErrTransform", err)
			}
		})
	}
}
