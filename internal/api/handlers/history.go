package handlers

import (
	"errors"
	"net/http"

	"github.com/video-stream/subtrans/internal/history"
)

type HistoryHandler struct {
	store *history.Store
}

func NewHistoryHandler(store *history.Store) *HistoryHandler {
	return &HistoryHandler{store: store}
}

// ListHistory returns entries, optionally filtered by ?language= and ordered by ?order=newest|oldest
func (h *HistoryHandler) ListHistory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	order := q.Get("order")
	if order != "" && order != "newest" && order != "oldest" {
		jsonError(w, "order must be newest or oldest", http.StatusBadRequest)
		return
	}
	// other processes (CLI runs) append to the same database
	if err := h.store.Reload(r.Context()); err != nil {
		jsonError(w, "failed to load history: "+err.Error(), http.StatusInternalServerError)
		return
	}
	entries := h.store.List(history.Query{
		Language:    q.Get("language"),
		NewestFirst: order != "oldest",
	})
	if entries == nil {
		entries = []history.Entry{}
	}
	jsonResponse(w, entries, http.StatusOK)
}

type cueEditRequest struct {
	File     string `json:"file" validate:"required"`
	Language string `json:"language" validate:"required"`
	Index    string `json:"index" validate:"required"`
	Text     string `json:"text" validate:"required"`
}

// UpdateCue edits one translated cue of the latest matching entry
func (h *HistoryHandler) UpdateCue(w http.ResponseWriter, r *http.Request) {
	var req cueEditRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	entry, err := h.store.UpdateCue(r.Context(), req.File, req.Language, req.Index, req.Text)
	if err != nil {
		if errors.Is(err, history.ErrNotFound) || errors.Is(err, history.ErrCueNotFound) {
			jsonError(w, err.Error(), http.StatusNotFound)
			return
		}
		jsonError(w, "failed to update cue: "+err.Error(), http.StatusInternalServerError)
		return
	}
	jsonResponse(w, entry, http.StatusOK)
}
