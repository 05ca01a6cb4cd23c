package images

import (
	"fmt"
	"log/slog"
	"mime"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/lehigh-university-libraries/batchedit/internal/models"
)

// Input is a candidate file for ingestion
type Input struct {
	Name        string
	ContentType string
	Data        []byte
}

// Ingest converts inputs into source images. Inputs that are not images are
// dropped without error.
func Ingest(inputs []Input, now time.Time) []models.SourceImage {
	var out []models.SourceImage

	for _, in := range inputs {
		mediaType := MediaType(in)
		if !strings.HasPrefix(mediaType, "image/") {
			slog.Debug("Skipping non-image input", "name", in.Name, "media_type", mediaType)
			continue
		}

		out = append(out, models.SourceImage{
			ID:         NewID(in.Name, now),
			Name:       in.Name,
			Payload:    models.Payload{MIMEType: mediaType, Data: in.Data},
			IngestedAt: now,
		})
	}

	return out
}

// MediaType returns the declared media type, or a sniffed one when nothing
// useful was declared
func MediaType(in Input) string {
	declared := strings.TrimSpace(in.ContentType)
	if declared != "" {
		if mt, _, err := mime.ParseMediaType(declared); err == nil {
			declared = strings.ToLower(mt)
		}
	}
	if declared != "" && declared != "application/octet-stream" {
		return declared
	}
	if len(in.Data) == 0 {
		return ""
	}

	mt := mimetype.Detect(in.Data).String()
	if i := strings.Index(mt, ";"); i != -1 {
		mt = mt[:i]
	}
	return mt
}

// NewID derives a session-unique id from the file name and ingestion time
func NewID(name string, now time.Time) string {
	return fmt.Sprintf("%s-%d-%s", name, now.UnixMilli(), uuid.New().String()[:8])
}
