package handlers

import (
	"encoding/json"
	"net/http"
	"sort"
)

func (h *Handler) HandleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions := h.sessionStore.GetAll()
	ids := make([]string, 0, len(sessions))
	for id := range sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	h.writeJSON(w, map[string]any{"sessions": ids})
}

func (h *Handler) HandleCreateSession(w http.ResponseWriter, r *http.Request) {
	session := h.sessionStore.Create()
	h.writeJSONStatus(w, http.StatusCreated, session.Snapshot())
}

func (h *Handler) HandleGetSession(w http.ResponseWriter, r *http.Request) {
	session, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, session.Snapshot())
}

func (h *Handler) HandleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if !h.sessionStore.Delete(r.PathValue("id")) {
		h.writeError(w, "Session not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleRemoveImage(w http.ResponseWriter, r *http.Request) {
	session, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}
	if !session.RemoveImage(r.PathValue("imageID")) {
		h.writeError(w, "Image not found", http.StatusNotFound)
		return
	}
	h.writeJSON(w, session.Snapshot())
}

func (h *Handler) HandleToggleSelection(w http.ResponseWriter, r *http.Request) {
	session, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}
	selected := session.ToggleSelection(r.PathValue("imageID"))
	h.writeJSON(w, map[string]any{
		"selected":  selected,
		"selection": session.Selection(),
	})
}

func (h *Handler) HandleSelection(w http.ResponseWriter, r *http.Request) {
	session, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}

	var request struct {
		All   bool `json:"all"`
		Clear bool `json:"clear"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}

	switch {
	case request.All && request.Clear:
		h.writeError(w, "Only one of all or clear may be set", http.StatusBadRequest)
		return
	case request.All:
		session.SelectAll()
	case request.Clear:
		session.ClearSelection()
	default:
		h.writeError(w, "One of all or clear is required", http.StatusBadRequest)
		return
	}

	h.writeJSON(w, map[string]any{"selection": session.Selection()})
}
