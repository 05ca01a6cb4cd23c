package gemini

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/generative-ai-go/genai"
	"github.com/lehigh-university-libraries/batchedit/internal/models"
	"github.com/lehigh-university-libraries/batchedit/internal/providers"
	"google.golang.org/api/option"
	googlegenai "google.golang.org/genai"
)

const (
	DefaultEditModel  = "gemini-2.5-flash-image"
	DefaultImageModel = "imagen-4.0-generate-001"

	// generated images are always requested as JPEG
	generatedMIMEType = "image/jpeg"
)

type contentModel interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

type imageModels interface {
	GenerateImages(ctx context.Context, model, prompt string, config *googlegenai.GenerateImagesConfig) (*googlegenai.GenerateImagesResponse, error)
}

// Gemini is a provider for Google Gemini image editing and Imagen generation
type Gemini struct {
	EditModel  string
	ImageModel string

	openContent func(ctx context.Context, apiKey, model string) (contentModel, func() error, error)
	openImages  func(ctx context.Context, apiKey string) (imageModels, error)
}

// New returns a new Gemini provider with models taken from the environment
func New() *Gemini {
	g := &Gemini{
		EditModel:   os.Getenv("GEMINI_EDIT_MODEL"),
		ImageModel:  os.Getenv("GEMINI_IMAGE_MODEL"),
		openContent: openContentModel,
		openImages:  openImageModels,
	}
	if g.EditModel == "" {
		g.EditModel = DefaultEditModel
	}
	if g.ImageModel == "" {
		g.ImageModel = DefaultImageModel
	}
	return g
}

var _ providers.Editor = (*Gemini)(nil)

func openContentModel(ctx context.Context, apiKey, model string) (contentModel, func() error, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create new gemini client: %w", err)
	}
	return client.GenerativeModel(model), client.Close, nil
}

func openImageModels(ctx context.Context, apiKey string) (imageModels, error) {
	client, err := googlegenai.NewClient(ctx, &googlegenai.ClientConfig{
		APIKey:  apiKey,
		Backend: googlegenai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create new imagen client: %w", err)
	}
	return client.Models, nil
}

func apiKey() (string, error) {
	key := os.Getenv("GEMINI_API_KEY")
	if key == "" {
		return "", fmt.Errorf("%w: GEMINI_API_KEY environment variable not set", models.ErrConfiguration)
	}
	return key, nil
}

// PromptEdit edits the image according to prompt
func (g *Gemini) PromptEdit(ctx context.Context, image models.Payload, prompt string) (models.Payload, error) {
	return g.editImage(ctx, image, prompt)
}

// RemoveBackground asks the model for a transparent PNG of the main subject.
// A non-PNG response is returned as-is.
func (g *Gemini) RemoveBackground(ctx context.Context, image models.Payload) (models.Payload, error) {
	result, err := g.editImage(ctx, image, providers.BackgroundRemovalPrompt)
	if err != nil {
		return models.Payload{}, err
	}
	if result.MIMEType != "image/png" {
		slog.Warn("Background removal returned a non-PNG image, transparency may be lost", "mime_type", result.MIMEType)
	}
	return result, nil
}

func (g *Gemini) editImage(ctx context.Context, image models.Payload, instruction string) (models.Payload, error) {
	key, err := apiKey()
	if err != nil {
		return models.Payload{}, err
	}

	model, closeFn, err := g.openContent(ctx, key, g.EditModel)
	if err != nil {
		return models.Payload{}, err
	}
	defer closeFn()

	resp, err := model.GenerateContent(ctx,
		genai.Blob{MIMEType: image.MIMEType, Data: image.Data},
		genai.Text(instruction),
	)
	if err != nil {
		return models.Payload{}, fmt.Errorf("failed to generate content: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return models.Payload{}, fmt.Errorf("%w: no candidates returned from Gemini", models.ErrNoImage)
	}

	result, ok := FirstImage(resp.Candidates[0].Content.Parts)
	if !ok {
		return models.Payload{}, fmt.Errorf("%w: Gemini response had no inline image", models.ErrNoImage)
	}

	slog.Debug("Gemini returned image", "model", g.EditModel, "mime_type", result.MIMEType, "bytes", len(result.Data))
	return result, nil
}

// FirstImage returns the first part carrying inline image bytes
func FirstImage(parts []genai.Part) (models.Payload, bool) {
	for _, part := range parts {
		switch p := part.(type) {
		case genai.Blob:
			if len(p.Data) > 0 {
				return models.Payload{MIMEType: p.MIMEType, Data: p.Data}, true
			}
		case *genai.Blob:
			if p != nil && len(p.Data) > 0 {
				return models.Payload{MIMEType: p.MIMEType, Data: p.Data}, true
			}
		}
	}
	return models.Payload{}, false
}

// GenerateFromText generates a single JPEG image with Imagen
func (g *Gemini) GenerateFromText(ctx context.Context, prompt, aspectRatio string) (models.Payload, error) {
	key, err := apiKey()
	if err != nil {
		return models.Payload{}, err
	}

	images, err := g.openImages(ctx, key)
	if err != nil {
		return models.Payload{}, err
	}

	resp, err := images.GenerateImages(ctx, g.ImageModel, prompt, &googlegenai.GenerateImagesConfig{
		NumberOfImages: 1,
		OutputMIMEType: generatedMIMEType,
		AspectRatio:    aspectRatio,
	})
	if err != nil {
		return models.Payload{}, fmt.Errorf("failed to generate images: %w", err)
	}

	if resp == nil || len(resp.GeneratedImages) == 0 {
		return models.Payload{}, fmt.Errorf("%w: no images generated", models.ErrNoImage)
	}
	first := resp.GeneratedImages[0]
	if first == nil || first.Image == nil || len(first.Image.ImageBytes) == 0 {
		return models.Payload{}, fmt.Errorf("%w: generated image was empty", models.ErrNoImage)
	}

	slog.Debug("Imagen returned image", "model", g.ImageModel, "aspect_ratio", aspectRatio, "bytes", len(first.Image.ImageBytes))
	return models.Payload{MIMEType: generatedMIMEType, Data: first.Image.ImageBytes}, nil
}
