package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/lehigh-university-libraries/batchedit/internal/editing"
	"github.com/lehigh-university-libraries/batchedit/internal/export"
	"github.com/lehigh-university-libraries/batchedit/internal/models"
)

// Route-level failure messages for errors that are not validation errors
const (
	msgEditFailed     = "Failed to edit the images. Please try again."
	msgRemoveBgFailed = "Failed to remove the background. Please try again."
)

func (h *Handler) HandleEdit(w http.ResponseWriter, r *http.Request) {
	session, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}

	var request struct {
		Prompt string `json:"prompt"`
		Preset string `json:"preset"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}

	prompt := request.Prompt
	if request.Preset != "" {
		p, err := editing.Preset(request.Preset)
		if err != nil {
			h.writeError(w, err.Error(), http.StatusBadRequest)
			return
		}
		prompt = p
	}

	batch, err := h.editing.StartEdit(r.Context(), session, prompt)
	if err != nil {
		h.writeServiceError(w, err, msgEditFailed)
		return
	}

	h.writeJSONStatus(w, http.StatusAccepted, map[string]any{"images": batch.IDs()})
}

func (h *Handler) HandleRemoveBackground(w http.ResponseWriter, r *http.Request) {
	session, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}

	batch, err := h.editing.StartRemoveBackground(r.Context(), session)
	if err != nil {
		h.writeServiceError(w, err, msgRemoveBgFailed)
		return
	}

	h.writeJSONStatus(w, http.StatusAccepted, map[string]any{"images": batch.IDs()})
}

func (h *Handler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	session, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}

	var request struct {
		Prompt      string `json:"prompt"`
		AspectRatio string `json:"aspect_ratio"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}

	result, err := h.editing.Generate(r.Context(), session, request.Prompt, request.AspectRatio)
	if err != nil {
		h.writeServiceError(w, err, editing.MsgGenerateFailed)
		return
	}

	h.writeJSON(w, result)
}

// writeServiceError maps editing errors onto status codes. failMsg is the
// route's user-facing message for anything other than a validation error.
func (h *Handler) writeServiceError(w http.ResponseWriter, err error, failMsg string) {
	switch {
	case editing.IsValidation(err):
		h.writeError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, models.ErrConfiguration):
		slog.Error("Image provider misconfigured", "err", err)
		h.writeError(w, failMsg, http.StatusInternalServerError)
	default:
		slog.Error("Remote image request failed", "err", err)
		http.Error(w, failMsg, http.StatusBadGateway)
	}
}

func (h *Handler) HandleDownloadResult(w http.ResponseWriter, r *http.Request) {
	session, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}

	imageID := r.PathValue("imageID")
	result, ok := session.Result(imageID)
	if !ok {
		h.writeError(w, "Result not found", http.StatusNotFound)
		return
	}

	name := "image"
	if img, ok := session.Image(imageID); ok {
		name = img.Name
	}
	h.writeDownload(w, export.EditedFileName(name, result.Payload), result.Payload)
}

func (h *Handler) HandleDownloadGenerated(w http.ResponseWriter, r *http.Request) {
	session, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}

	index, err := strconv.Atoi(r.PathValue("index"))
	generated := session.Generated()
	if err != nil || index < 0 || index >= len(generated) {
		h.writeError(w, "Generated image not found", http.StatusNotFound)
		return
	}

	result := generated[index]
	h.writeDownload(w, export.GeneratedFileName(result.Prompt), result.Payload)
}

func (h *Handler) writeDownload(w http.ResponseWriter, filename string, p models.Payload) {
	w.Header().Set("Content-Type", p.MIMEType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(p.Data)))
	if _, err := w.Write(p.Data); err != nil {
		slog.Error("Unable to write download", "filename", filename, "err", err)
	}
}
