package translate

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"
)

const (
	geminiModelsURL     = "https://generativelanguage.googleapis.com/v1beta/models"
	openRouterModelsURL = "https://openrouter.ai/api/v1/models"
)

// DefaultOpenRouterModelFilter narrows the OpenRouter catalogue to chat models
// that handle subtitle prompts well.
var DefaultOpenRouterModelFilter = []string{"grok", "gpt-3.5"}

// ModelInfo is a selectable model for a provider.
type ModelInfo struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Description string `json:"description,omitempty"`
}

type modelCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]modelCacheEntry
}

type modelCacheEntry struct {
	models  []ModelInfo
	fetched time.Time
}

func newModelCache(ttl time.Duration) *modelCache {
	return &modelCache{ttl: ttl, entries: make(map[string]modelCacheEntry)}
}

// get returns the cached list and whether it is still fresh.
func (c *modelCache) get(provider string) ([]ModelInfo, bool, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[provider]
	if !ok {
		return nil, false, false
	}
	return append([]ModelInfo(nil), e.models...), true, time.Since(e.fetched) < c.ttl
}

func (c *modelCache) put(provider string, models []ModelInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[provider] = modelCacheEntry{models: append([]ModelInfo(nil), models...), fetched: time.Now()}
}

func (c *modelCache) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]modelCacheEntry)
}

// ListModels returns the models selectable for provider. Remote catalogues
// are cached for an hour; a stale cache is served when the refresh fails.
func (s *Service) ListModels(ctx context.Context, provider string) ([]ModelInfo, error) {
	switch provider {
	case ProviderDeepSeek:
		return []ModelInfo{
			{ID: "deepseek-chat", DisplayName: "DeepSeek Chat"},
			{ID: "deepseek-reasoner", DisplayName: "DeepSeek Reasoner"},
		}, nil
	case ProviderHuggingFace:
		return []ModelInfo{{ID: DefaultHuggingFaceModel, DisplayName: "NLLB-200 (Multilingual)"}}, nil
	case ProviderOpenAI:
		return []ModelInfo{{ID: DefaultOpenAIModel, DisplayName: "GPT-4o mini"}, {ID: "gpt-4o", DisplayName: "GPT-4o"}}, nil
	case ProviderDeepL:
		return []ModelInfo{{ID: "deepl", DisplayName: "DeepL"}}, nil
	case ProviderGemini, ProviderOpenRouter:
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, provider)
	}

	cached, ok, fresh := s.models.get(provider)
	if fresh {
		return cached, nil
	}

	s.mu.RLock()
	cfg := s.cfg
	s.mu.RUnlock()

	key := cfg.Keys[provider]
	if key == "" {
		return []ModelInfo{}, nil
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	var models []ModelInfo
	var err error
	if provider == ProviderGemini {
		models, err = fetchGeminiModels(ctx, client, baseOr(cfg.BaseURLs, "gemini_models", geminiModelsURL), key)
	} else {
		filter := cfg.OpenRouterModelFilter
		if len(filter) == 0 {
			filter = DefaultOpenRouterModelFilter
		}
		models, err = fetchOpenRouterModels(ctx, client, baseOr(cfg.BaseURLs, "openrouter_models", openRouterModelsURL), key, filter)
	}
	if err != nil {
		if ok {
			s.logger.Warn().Err(err).Str("provider", provider).Msg("model refresh failed, serving cached list")
			return cached, nil
		}
		return nil, err
	}

	s.models.put(provider, models)
	return models, nil
}

func baseOr(m map[string]string, key, fallback string) string {
	if v := m[key]; v != "" {
		return v
	}
	return fallback
}

func getJSON(ctx context.Context, client *http.Client, provider, url string, headers map[string]string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("%s: new request: %w", provider, err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	body, err := do(ctx, client, provider, req)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%s: parse model list: %w", provider, err)
	}
	return nil
}

func fetchGeminiModels(ctx context.Context, client *http.Client, url, apiKey string) ([]ModelInfo, error) {
	var resp struct {
		Models []struct {
			Name                       string   `json:"name"` // "models/gemini-2.5-flash"
			DisplayName                string   `json:"displayName"`
			Description                string   `json:"description"`
			SupportedGenerationMethods []string `json:"supportedGenerationMethods"`
		} `json:"models"`
	}
	if err := getJSON(ctx, client, ProviderGemini, url+"?pageSize=100", map[string]string{"x-goog-api-key": apiKey}, &resp); err != nil {
		return nil, err
	}

	models := []ModelInfo{}
	seen := make(map[string]bool)
	for _, m := range resp.Models {
		if !contains(m.SupportedGenerationMethods, "generateContent") {
			continue
		}
		id := strings.TrimPrefix(m.Name, "models/")
		if !strings.HasPrefix(id, "gemini-") || strings.Contains(id, "embedding") || seen[id] {
			continue
		}
		seen[id] = true
		models = append(models, ModelInfo{ID: id, DisplayName: m.DisplayName, Description: m.Description})
	}

	// newer versions first
	sort.Slice(models, func(i, j int) bool { return models[i].ID > models[j].ID })
	return models, nil
}

func fetchOpenRouterModels(ctx context.Context, client *http.Client, url, apiKey string, filter []string) ([]ModelInfo, error) {
	var resp struct {
		Data []struct {
			ID          string `json:"id"`
			Name        string `json:"name"`
			Description string `json:"description"`
		} `json:"data"`
	}
	if err := getJSON(ctx, client, ProviderOpenRouter, url, map[string]string{"Authorization": "Bearer " + apiKey}, &resp); err != nil {
		return nil, err
	}

	models := []ModelInfo{}
	for _, m := range resp.Data {
		for _, f := range filter {
			if strings.Contains(m.ID, f) {
				models = append(models, ModelInfo{ID: m.ID, DisplayName: m.Name, Description: m.Description})
				break
			}
		}
	}
	return models, nil
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
