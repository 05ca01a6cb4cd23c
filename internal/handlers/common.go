package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/lehigh-university-libraries/batchedit/internal/editing"
	"github.com/lehigh-university-libraries/batchedit/internal/images"
	"github.com/lehigh-university-libraries/batchedit/internal/preferences"
	"github.com/lehigh-university-libraries/batchedit/internal/storage"
)

// maxUploadSize limits each uploaded file
const maxUploadSize = 10 * 1024 * 1024

type Handler struct {
	sessionStore *storage.SessionStore
	editing      *editing.Service
	prefs        *preferences.Manager
	fetcher      *images.Fetcher
}

func New(svc *editing.Service, prefs *preferences.Manager, fetcher *images.Fetcher) *Handler {
	return &Handler{
		sessionStore: storage.New(),
		editing:      svc,
		prefs:        prefs,
		fetcher:      fetcher,
	}
}

// Register adds every API route to mux
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/sessions", h.HandleListSessions)
	mux.HandleFunc("POST /api/sessions", h.HandleCreateSession)
	mux.HandleFunc("GET /api/sessions/{id}", h.HandleGetSession)
	mux.HandleFunc("DELETE /api/sessions/{id}", h.HandleDeleteSession)

	mux.HandleFunc("POST /api/sessions/{id}/images", h.HandleUpload)
	mux.HandleFunc("DELETE /api/sessions/{id}/images/{imageID}", h.HandleRemoveImage)

	mux.HandleFunc("POST /api/sessions/{id}/selection", h.HandleSelection)
	mux.HandleFunc("POST /api/sessions/{id}/selection/{imageID}", h.HandleToggleSelection)

	mux.HandleFunc("POST /api/sessions/{id}/edit", h.HandleEdit)
	mux.HandleFunc("POST /api/sessions/{id}/remove-background", h.HandleRemoveBackground)
	mux.HandleFunc("POST /api/sessions/{id}/generate", h.HandleGenerate)

	mux.HandleFunc("GET /api/sessions/{id}/results/{imageID}/download", h.HandleDownloadResult)
	mux.HandleFunc("GET /api/sessions/{id}/generated/{index}/download", h.HandleDownloadGenerated)

	mux.HandleFunc("GET /api/preferences", h.HandleGetPreferences)
	mux.HandleFunc("PUT /api/preferences", h.HandleUpdatePreferences)
	mux.HandleFunc("GET /api/presets", h.HandlePresets)

	mux.HandleFunc("/healthcheck", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("OK")); err != nil {
			slog.Error("Unable to write healthcheck", "err", err)
		}
	})
}

// Response helpers
func (h *Handler) writeJSON(w http.ResponseWriter, data interface{}) {
	h.writeJSONStatus(w, http.StatusOK, data)
}

func (h *Handler) writeJSONStatus(w http.ResponseWriter, code int, data interface{}) {
	body, err := json.Marshal(data)
	if err != nil {
		slog.Error("Unable to encode JSON response", "err", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err := w.Write(body); err != nil {
		slog.Error("Unable to write JSON response", "err", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, message string, code int) {
	if code >= http.StatusInternalServerError {
		slog.Error(message)
	} else {
		slog.Debug(message, "status", code)
	}
	http.Error(w, message, code)
}

// Session helpers
func (h *Handler) getSessionOrError(w http.ResponseWriter, r *http.Request) (*storage.Session, bool) {
	session, exists := h.sessionStore.Get(r.PathValue("id"))
	if !exists {
		h.writeError(w, "Session not found", http.StatusNotFound)
		return nil, false
	}
	return session, true
}
