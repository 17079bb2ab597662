package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/video-stream/subtrans/internal/subtitle/translate"
)

type ModelsHandler struct {
	translator *translate.Service
}

func NewModelsHandler(translator *translate.Service) *ModelsHandler {
	return &ModelsHandler{translator: translator}
}

// ListModels returns the models a provider offers; an unconfigured provider yields an empty list
func (h *ModelsHandler) ListModels(w http.ResponseWriter, r *http.Request) {
	provider := chi.URLParam(r, "provider")
	models, err := h.translator.ListModels(r.Context(), provider)
	if err != nil {
		if errors.Is(err, translate.ErrUnknownProvider) {
			jsonError(w, err.Error(), http.StatusNotFound)
			return
		}
		jsonError(w, "failed to fetch models: "+err.Error(), http.StatusBadGateway)
		return
	}
	if models == nil {
		models = []translate.ModelInfo{}
	}
	jsonResponse(w, models, http.StatusOK)
}

// ListProviders returns the providers and whether each can be used right now
func (h *ModelsHandler) ListProviders(w http.ResponseWriter, r *http.Request) {
	type providerInfo struct {
		Name         string `json:"name"`
		Available    bool   `json:"available"`
		DefaultModel string `json:"default_model,omitempty"`
	}
	result := make([]providerInfo, 0, len(translate.KnownProviders))
	for _, name := range translate.KnownProviders {
		_, err := h.translator.Provider(name)
		result = append(result, providerInfo{Name: name, Available: err == nil, DefaultModel: translate.DefaultModel(name)})
	}
	jsonResponse(w, result, http.StatusOK)
}
