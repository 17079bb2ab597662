package translate

import (
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/video-stream/subtrans/internal/logging"
)

// Provider names
const (
	ProviderGemini      = "gemini"
	ProviderDeepSeek    = "deepseek"
	ProviderHuggingFace = "huggingface"
	ProviderOpenRouter  = "openrouter"
	ProviderOpenAI      = "openai"
	ProviderDeepL       = "deepl"
)

// KnownProviders lists every provider the service can build.
var KnownProviders = []string{
	ProviderGemini,
	ProviderDeepSeek,
	ProviderHuggingFace,
	ProviderOpenRouter,
	ProviderOpenAI,
	ProviderDeepL,
}

// DefaultFallback is the fallback chain used when a request gives none.
var DefaultFallback = []string{ProviderHuggingFace, ProviderDeepSeek}

// RequiresKey reports whether provider is unusable without an API key.
func RequiresKey(provider string) bool {
	return provider != ProviderHuggingFace
}

// DefaultModel returns the model used when a request leaves it empty.
func DefaultModel(provider string) string {
	switch provider {
	case ProviderGemini:
		return DefaultGeminiModel
	case ProviderDeepSeek:
		return DefaultDeepSeekModel
	case ProviderHuggingFace:
		return DefaultHuggingFaceModel
	case ProviderOpenAI:
		return DefaultOpenAIModel
	default:
		return ""
	}
}

// ServiceConfig configures provider construction.
type ServiceConfig struct {
	Keys       map[string]string // provider name -> API key
	BaseURLs   map[string]string // overrides, mostly for tests
	Timeout    time.Duration
	HTTPClient *http.Client

	OpenRouterReferer string
	OpenRouterTitle   string
	// OpenRouterModelFilter keeps listed models whose id contains one of these.
	OpenRouterModelFilter []string
}

// Service holds the registered providers and lists their models.
type Service struct {
	mu        sync.RWMutex
	cfg       ServiceConfig
	providers map[string]Provider
	models    *modelCache
	logger    zerolog.Logger
}

// NewService registers every provider whose key is present, plus HuggingFace.
func NewService(cfg ServiceConfig) *Service {
	s := &Service{
		models: newModelCache(time.Hour),
		logger: logging.Component("translate"),
	}
	s.Configure(cfg)
	return s
}

// Configure rebuilds the provider set, e.g. after API keys change.
func (s *Service) Configure(cfg ServiceConfig) {
	providers := make(map[string]Provider)
	for _, name := range KnownProviders {
		key := cfg.Keys[name]
		if key == "" && RequiresKey(name) {
			continue
		}
		p := buildProvider(name, Config{
			APIKey:     key,
			BaseURL:    cfg.BaseURLs[name],
			Timeout:    cfg.Timeout,
			HTTPClient: cfg.HTTPClient,
			Referer:    cfg.OpenRouterReferer,
			Title:      cfg.OpenRouterTitle,
		})
		providers[name] = p
		s.logger.Debug().Str("provider", name).Msg("registered provider")
	}

	s.mu.Lock()
	s.cfg = cfg
	s.providers = providers
	s.mu.Unlock()
	s.models.reset()
}

func buildProvider(name string, cfg Config) Provider {
	switch name {
	case ProviderGemini:
		return NewGemini(cfg)
	case ProviderDeepSeek:
		return NewDeepSeek(cfg)
	case ProviderHuggingFace:
		return NewHuggingFace(cfg)
	case ProviderOpenRouter:
		return NewOpenRouter(cfg)
	case ProviderOpenAI:
		return NewOpenAI(cfg)
	case ProviderDeepL:
		return NewDeepL(cfg)
	default:
		return nil
	}
}

// Register adds or replaces a provider under its own name.
func (s *Service) Register(p Provider) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.providers[p.Name()] = p
}

// Provider looks up a registered provider.
func (s *Service) Provider(name string) (Provider, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.providers[name]
	if !ok {
		if RequiresKey(name) && isKnown(name) {
			return nil, fmt.Errorf("%w: %s (no API key configured)", ErrUnknownProvider, name)
		}
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, name)
	}
	return p, nil
}

// Names returns the registered provider names, sorted.
func (s *Service) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.providers))
	for name := range s.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func isKnown(name string) bool {
	for _, n := range KnownProviders {
		if n == name {
			return true
		}
	}
	return false
}
