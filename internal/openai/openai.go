package openai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/lehigh-university-libraries/batchedit/internal/imaging"
	"github.com/lehigh-university-libraries/batchedit/internal/models"
	"github.com/lehigh-university-libraries/batchedit/internal/providers"
)

const (
	DefaultBaseURL = "https://api.openai.com/v1"
	DefaultModel   = "gpt-image-1"
)

// OpenAI is a provider for the OpenAI image API
type OpenAI struct {
	BaseURL    string
	Model      string
	HTTPClient *http.Client
}

// New returns a new OpenAI provider
func New() *OpenAI {
	o := &OpenAI{
		BaseURL:    strings.TrimRight(os.Getenv("OPENAI_BASE_URL"), "/"),
		Model:      os.Getenv("OPENAI_IMAGE_MODEL"),
		HTTPClient: &http.Client{},
	}
	if o.BaseURL == "" {
		o.BaseURL = DefaultBaseURL
	}
	if o.Model == "" {
		o.Model = DefaultModel
	}
	return o
}

var _ providers.Editor = (*OpenAI)(nil)

type imagesResponse struct {
	Data []struct {
		B64JSON string `json:"b64_json"`
	} `json:"data"`
	OutputFormat string `json:"output_format"`
}

func apiKey() (string, error) {
	key := os.Getenv("OPENAI_API_KEY")
	if key == "" {
		return "", fmt.Errorf("%w: OPENAI_API_KEY environment variable not set", models.ErrConfiguration)
	}
	return key, nil
}

// PromptEdit edits the image according to prompt
func (o *OpenAI) PromptEdit(ctx context.Context, image models.Payload, prompt string) (models.Payload, error) {
	return o.edit(ctx, image, prompt, nil)
}

// RemoveBackground requests a transparent PNG of the main subject
func (o *OpenAI) RemoveBackground(ctx context.Context, image models.Payload) (models.Payload, error) {
	result, err := o.edit(ctx, image, providers.BackgroundRemovalPrompt, map[string]string{
		"background":    "transparent",
		"output_format": "png",
	})
	if err != nil {
		return models.Payload{}, err
	}
	if result.MIMEType != "image/png" {
		slog.Warn("Background removal returned a non-PNG image, transparency may be lost", "mime_type", result.MIMEType)
	}
	return result, nil
}

func (o *OpenAI) edit(ctx context.Context, image models.Payload, prompt string, extra map[string]string) (models.Payload, error) {
	key, err := apiKey()
	if err != nil {
		return models.Payload{}, err
	}

	var body bytes.Buffer
	w := multipart.NewWriter(&body)

	fields := map[string]string{
		"model":  o.Model,
		"prompt": prompt,
		"n":      "1",
	}
	for k, v := range extra {
		fields[k] = v
	}
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return models.Payload{}, fmt.Errorf("failed to write form field: %w", err)
		}
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename="image.%s"`, fileExtension(image)))
	header.Set("Content-Type", image.MIMEType)
	part, err := w.CreatePart(header)
	if err != nil {
		return models.Payload{}, fmt.Errorf("failed to create image part: %w", err)
	}
	if _, err := part.Write(image.Data); err != nil {
		return models.Payload{}, fmt.Errorf("failed to write image part: %w", err)
	}
	if err := w.Close(); err != nil {
		return models.Payload{}, fmt.Errorf("failed to close multipart body: %w", err)
	}

	return o.do(ctx, key, "/images/edits", w.FormDataContentType(), &body)
}

// GenerateFromText generates a single JPEG image
func (o *OpenAI) GenerateFromText(ctx context.Context, prompt, aspectRatio string) (models.Payload, error) {
	key, err := apiKey()
	if err != nil {
		return models.Payload{}, err
	}

	requestBody, err := json.Marshal(map[string]interface{}{
		"model":         o.Model,
		"prompt":        prompt,
		"n":             1,
		"size":          SizeForAspectRatio(aspectRatio),
		"output_format": "jpeg",
	})
	if err != nil {
		return models.Payload{}, fmt.Errorf("failed to marshal request body: %w", err)
	}

	return o.do(ctx, key, "/images/generations", "application/json", bytes.NewReader(requestBody))
}

// SizeForAspectRatio maps an aspect ratio onto the sizes the API accepts
func SizeForAspectRatio(aspectRatio string) string {
	ratio, err := imaging.ParseAspectRatio(aspectRatio)
	switch {
	case err != nil || ratio == 0 || ratio == 1:
		return "1024x1024"
	case ratio > 1:
		return "1536x1024"
	default:
		return "1024x1536"
	}
}

func (o *OpenAI) do(ctx context.Context, key, path, contentType string, body io.Reader) (models.Payload, error) {
	req, err := http.NewRequestWithContext(ctx, "POST", o.BaseURL+path, body)
	if err != nil {
		return models.Payload{}, fmt.Errorf("failed to create new request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+key)

	resp, err := o.HTTPClient.Do(req)
	if err != nil {
		return models.Payload{}, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return models.Payload{}, fmt.Errorf("received non-200 status code: %d - %s", resp.StatusCode, string(b))
	}

	var response imagesResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return models.Payload{}, fmt.Errorf("failed to decode response body: %w", err)
	}

	for _, d := range response.Data {
		if d.B64JSON == "" {
			continue
		}
		data, err := base64.StdEncoding.DecodeString(d.B64JSON)
		if err != nil {
			return models.Payload{}, fmt.Errorf("failed to decode image data: %w", err)
		}
		return models.Payload{MIMEType: mimeTypeOf(response.OutputFormat, data), Data: data}, nil
	}

	return models.Payload{}, fmt.Errorf("%w: no images returned from OpenAI", models.ErrNoImage)
}

func mimeTypeOf(outputFormat string, data []byte) string {
	if f, ok := models.ParseFormat(outputFormat); ok {
		return f.MIMEType()
	}
	return mimetype.Detect(data).String()
}

func fileExtension(p models.Payload) string {
	if sub := p.Subtype(); sub != "" {
		return sub
	}
	return "png"
}
