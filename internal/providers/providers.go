package providers

import (
	"context"

	"github.com/lehigh-university-libraries/batchedit/internal/models"
)

// BackgroundRemovalPrompt is the fixed instruction sent for background removal
const BackgroundRemovalPrompt = "Please remove the background from this image. The main subject should be perfectly isolated. The new background must be transparent. Output the result as a PNG file."

// Editor defines the interface for a remote generative image provider
type Editor interface {
	// PromptEdit applies a free-text edit to image
	PromptEdit(ctx context.Context, image models.Payload, prompt string) (models.Payload, error)
	// RemoveBackground isolates the main subject on a transparent background
	RemoveBackground(ctx context.Context, image models.Payload) (models.Payload, error)
	// GenerateFromText creates one new image at the given aspect ratio
	GenerateFromText(ctx context.Context, prompt, aspectRatio string) (models.Payload, error)
}
