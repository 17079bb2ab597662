package handlers

import (
	"net/http"
	"strings"

	"github.com/video-stream/subtrans/internal/config"
	"github.com/video-stream/subtrans/internal/db"
	"github.com/video-stream/subtrans/internal/subtitle/translate"
)

const secretMask = "••••••••"

// KeyReloader is called after API keys change so providers can be rebuilt.
type KeyReloader func(keys map[string]string)

type SettingsHandler struct {
	database *db.Database
	defaults config.TranslationSettings
	reload   KeyReloader
}

func NewSettingsHandler(database *db.Database, defaults config.TranslationSettings, reload KeyReloader) *SettingsHandler {
	return &SettingsHandler{database: database, defaults: defaults, reload: reload}
}

// GetSettings returns the current translation settings
func (h *SettingsHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	s, err := h.database.TranslationSettings(h.defaults)
	if err != nil {
		jsonError(w, "failed to load settings", http.StatusInternalServerError)
		return
	}
	jsonResponse(w, s, http.StatusOK)
}

// UpdateSettings replaces the translation settings
func (h *SettingsHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	s := h.defaults
	if !decodeJSON(w, r, &s) {
		return
	}
	if err := h.database.SaveTranslationSettings(s); err != nil {
		jsonError(w, "failed to save settings: "+err.Error(), http.StatusBadRequest)
		return
	}
	jsonResponse(w, s, http.StatusOK)
}

type keyResponse struct {
	Provider    string `json:"provider"`
	Value       string `json:"value"`
	HasValue    bool   `json:"has_value"`
	RequiresKey bool   `json:"requires_key"`
}

func maskSecret(val string) string {
	if val == "" {
		return ""
	}
	// Show only last 4 chars
	if len(val) > 8 {
		return secretMask + val[len(val)-4:]
	}
	return secretMask
}

// GetKeys returns every provider's API key, masked
func (h *SettingsHandler) GetKeys(w http.ResponseWriter, r *http.Request) {
	keys := h.database.APIKeys(translate.KnownProviders)
	result := make([]keyResponse, 0, len(translate.KnownProviders))
	for _, p := range translate.KnownProviders {
		result = append(result, keyResponse{
			Provider:    p,
			Value:       maskSecret(keys[p]),
			HasValue:    keys[p] != "",
			RequiresKey: translate.RequiresKey(p),
		})
	}
	jsonResponse(w, result, http.StatusOK)
}

// UpdateKeys stores provider keys. Masked values are ignored and an empty
// value clears the key.
func (h *SettingsHandler) UpdateKeys(w http.ResponseWriter, r *http.Request) {
	var updates map[string]string
	if !decodeMap(w, r, &updates) {
		return
	}

	known := make(map[string]bool)
	for _, p := range translate.KnownProviders {
		known[p] = true
	}

	for provider, value := range updates {
		if !known[provider] {
			jsonError(w, "unknown provider: "+provider, http.StatusBadRequest)
			return
		}
		if strings.HasPrefix(value, secretMask) {
			continue
		}
		if err := h.database.SetAPIKey(provider, strings.TrimSpace(value)); err != nil {
			jsonError(w, "failed to save key: "+provider, http.StatusInternalServerError)
			return
		}
	}

	if h.reload != nil {
		h.reload(h.database.APIKeys(translate.KnownProviders))
	}
	h.GetKeys(w, r)
}
