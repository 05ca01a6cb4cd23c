package models

import (
	"strings"
	"time"
)

// Format is an output container format for processed images
type Format string

const (
	FormatJPEG Format = "jpg"
	FormatPNG  Format = "png"
	FormatWebP Format = "webp"
)

// ParseFormat accepts jpg, jpeg, png and webp (case-insensitive)
func ParseFormat(s string) (Format, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "jpg", "jpeg":
		return FormatJPEG, true
	case "png":
		return FormatPNG, true
	case "webp":
		return FormatWebP, true
	default:
		return "", false
	}
}

// MIMEType returns the media type written for this format
func (f Format) MIMEType() string {
	switch f {
	case FormatPNG:
		return "image/png"
	case FormatWebP:
		return "image/webp"
	default:
		return "image/jpeg"
	}
}

// Lossy reports whether the format is encoded with a quality factor
func (f Format) Lossy() bool {
	return f != FormatPNG
}

// SourceImage represents an ingested image
type SourceImage struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Payload    Payload   `json:"preview"`
	IngestedAt time.Time `json:"ingested_at"`
}

// ProcessedResult is the latest edited version of a SourceImage
type ProcessedResult struct {
	OriginalID string  `json:"original_id"`
	Payload    Payload `json:"payload"`
}

// GeneratedResult is an image produced from a text prompt
type GeneratedResult struct {
	Payload Payload `json:"payload"`
	Prompt  string  `json:"prompt"`
}

// Preference keys, as stored in the preference store
const (
	KeyCropAspectRatio = "cropAspectRatio"
	KeyResolution      = "resolution"
	KeyPixelDensity    = "ppi"
	KeyOutputFormat    = "outputFormat"
)

// Original marks an unchanged aspect ratio or resolution
const Original = "original"

// OutputPreferences are the process-wide post-processing settings
type OutputPreferences struct {
	CropAspectRatio string `json:"cropAspectRatio" yaml:"cropAspectRatio"`
	Resolution      string `json:"resolution" yaml:"resolution"`
	PixelDensity    string `json:"ppi" yaml:"ppi"`
	OutputFormat    Format `json:"outputFormat" yaml:"outputFormat"`
}

// DefaultPreferences returns the settings used on first launch
func DefaultPreferences() OutputPreferences {
	return OutputPreferences{
		CropAspectRatio: Original,
		Resolution:      Original,
		PixelDensity:    "300",
		OutputFormat:    FormatJPEG,
	}
}
