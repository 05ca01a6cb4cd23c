package handlers

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/lehigh-university-libraries/batchedit/internal/images"
)

func (h *Handler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	session, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}

	var (
		inputs []images.Input
		err    error
		code   int
	)

	// JSON bodies carry URLs, anything else is a multipart upload
	contentType := r.Header.Get("Content-Type")
	if strings.Contains(contentType, "application/json") {
		inputs, code, err = h.readURLUpload(r)
	} else {
		inputs, code, err = h.readFileUpload(r)
	}
	if err != nil {
		h.writeError(w, err.Error(), code)
		return
	}

	added := images.Ingest(inputs, time.Now())
	session.AddImages(added...)

	slog.Info("Images added to session", "session_id", session.ID, "received", len(inputs), "added", len(added))

	h.writeJSON(w, map[string]any{
		"session_id": session.ID,
		"received":   len(inputs),
		"added":      len(added),
		"images":     added,
	})
}

type uploadError string

func (e uploadError) Error() string { return string(e) }

func (h *Handler) readURLUpload(r *http.Request) ([]images.Input, int, error) {
	var request struct {
		URLs []string `json:"urls"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		return nil, http.StatusBadRequest, uploadError("Invalid JSON: " + err.Error())
	}
	if len(request.URLs) == 0 {
		return nil, http.StatusBadRequest, uploadError("urls is required")
	}

	var inputs []images.Input
	for _, u := range request.URLs {
		if !images.IsURL(u) {
			return nil, http.StatusBadRequest, uploadError("Only http and https URLs are supported: " + u)
		}
		in, err := h.fetcher.Download(r.Context(), u)
		if err != nil {
			return nil, http.StatusBadGateway, uploadError("Failed to process image URL: " + err.Error())
		}
		inputs = append(inputs, in)
	}
	return inputs, http.StatusOK, nil
}

func (h *Handler) readFileUpload(r *http.Request) ([]images.Input, int, error) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		return nil, http.StatusBadRequest, uploadError("Failed to read upload: " + err.Error())
	}

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		headers = r.MultipartForm.File["file"]
	}
	if len(headers) == 0 {
		return nil, http.StatusBadRequest, uploadError("No files uploaded")
	}

	var inputs []images.Input
	for _, header := range headers {
		file, err := header.Open()
		if err != nil {
			return nil, http.StatusBadRequest, uploadError("Failed to read file: " + err.Error())
		}
		data, err := io.ReadAll(io.LimitReader(file, maxUploadSize+1))
		file.Close()
		if err != nil {
			return nil, http.StatusInternalServerError, uploadError("Failed to read file contents: " + err.Error())
		}
		if len(data) > maxUploadSize {
			return nil, http.StatusBadRequest, uploadError("File too large (max 10MB): " + header.Filename)
		}

		inputs = append(inputs, images.Input{
			Name:        header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Data:        data,
		})
	}
	return inputs, http.StatusOK, nil
}
