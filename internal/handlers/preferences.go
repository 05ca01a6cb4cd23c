package handlers

import (
	"encoding/json"
	"net/http"
	"sort"

	"github.com/lehigh-university-libraries/batchedit/internal/editing"
	"github.com/lehigh-university-libraries/batchedit/internal/preferences"
)

func (h *Handler) HandleGetPreferences(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, h.prefs.Current())
}

// HandleUpdatePreferences applies a partial map of preference keys. Nothing is
// written unless every value is valid.
func (h *Handler) HandleUpdatePreferences(w http.ResponseWriter, r *http.Request) {
	var request map[string]string
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}

	keys := make([]string, 0, len(request))
	for key := range request {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if err := preferences.Validate(key, request[key]); err != nil {
			h.writeError(w, err.Error(), http.StatusBadRequest)
			return
		}
	}
	for _, key := range keys {
		if err := h.prefs.Set(r.Context(), key, request[key]); err != nil {
			h.writeError(w, "Failed to save preferences: "+err.Error(), http.StatusInternalServerError)
			return
		}
	}

	h.writeJSON(w, h.prefs.Current())
}

func (h *Handler) HandlePresets(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, map[string]any{"presets": editing.PresetNames()})
}
