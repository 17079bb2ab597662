package handlers

import (
	"errors"
	"net/http"
	"sort"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/video-stream/subtrans/internal/db"
	"github.com/video-stream/subtrans/internal/subtitle/translate"
)

type PresetsHandler struct {
	database *db.Database
}

func NewPresetsHandler(database *db.Database) *PresetsHandler {
	return &PresetsHandler{database: database}
}

type presetRequest struct {
	Name   string `json:"name" validate:"required"`
	Prompt string `json:"prompt" validate:"required,contains={TEXT}"`
}

type builtinPreset struct {
	Name   string `json:"name"`
	Prompt string `json:"prompt"`
}

// ListPresets returns the built-in presets and all saved ones
func (h *PresetsHandler) ListPresets(w http.ResponseWriter, r *http.Request) {
	saved, err := h.database.ListTranslationPresets()
	if err != nil {
		jsonError(w, "failed to list presets: "+err.Error(), http.StatusInternalServerError)
		return
	}

	builtin := make([]builtinPreset, 0, len(translate.Presets))
	for name, prompt := range translate.Presets {
		builtin = append(builtin, builtinPreset{Name: name, Prompt: prompt})
	}
	sort.Slice(builtin, func(i, j int) bool { return builtin[i].Name < builtin[j].Name })

	jsonResponse(w, map[string]interface{}{
		"builtin": builtin,
		"saved":   saved,
	}, http.StatusOK)
}

// CreatePreset saves a new translation preset
func (h *PresetsHandler) CreatePreset(w http.ResponseWriter, r *http.Request) {
	var req presetRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	id, err := h.database.CreateTranslationPreset(req.Name, req.Prompt)
	if err != nil {
		jsonError(w, "failed to create preset: "+err.Error(), http.StatusInternalServerError)
		return
	}

	jsonResponse(w, map[string]interface{}{
		"id":   id,
		"name": req.Name,
	}, http.StatusCreated)
}

// UpdatePreset updates an existing translation preset
func (h *PresetsHandler) UpdatePreset(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		jsonError(w, "invalid preset ID", http.StatusBadRequest)
		return
	}

	var req presetRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.database.UpdateTranslationPreset(id, req.Name, req.Prompt); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			jsonError(w, "preset not found", http.StatusNotFound)
			return
		}
		jsonError(w, "failed to update preset: "+err.Error(), http.StatusInternalServerError)
		return
	}

	jsonResponse(w, map[string]interface{}{
		"id":   id,
		"name": req.Name,
	}, http.StatusOK)
}

// DeletePreset removes a saved translation preset
func (h *PresetsHandler) DeletePreset(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		jsonError(w, "invalid preset ID", http.StatusBadRequest)
		return
	}

	if err := h.database.DeleteTranslationPreset(id); err != nil {
		jsonError(w, "failed to delete preset: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
