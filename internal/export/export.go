package export

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/lehigh-university-libraries/batchedit/internal/models"
)

var nonAlphanumeric = regexp.MustCompile(`[^a-z0-9]`)

// EditedFileName names the download of a processed image after its original
func EditedFileName(originalName string, p models.Payload) string {
	base := originalName
	if i := strings.LastIndex(base, "."); i != -1 {
		base = base[:i]
	}
	if base == "" {
		base = "image"
	}

	ext := p.Subtype()
	if ext == "" {
		ext = "jpg"
	}
	return fmt.Sprintf("edited-%s.%s", base, ext)
}

// GeneratedFileName derives a download name from the first 30 characters of
// the prompt
func GeneratedFileName(prompt string) string {
	runes := []rune(prompt)
	if len(runes) > 30 {
		runes = runes[:30]
	}
	slug := nonAlphanumeric.ReplaceAllString(strings.ToLower(string(runes)), "_")
	if slug == "" {
		slug = "image"
	}
	return fmt.Sprintf("generated-%s.jpg", slug)
}

// Write saves the payload as dir/name, creating dir if needed
func Write(dir, name string, p models.Payload) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, p.Data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}
