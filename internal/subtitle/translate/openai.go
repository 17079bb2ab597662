package translate

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

const (
	openAIChatURL     = "https://api.openai.com/v1/chat/completions"
	deepSeekChatURL   = "https://api.deepseek.com/v1/chat/completions"
	openRouterChatURL = "https://openrouter.ai/api/v1/chat/completions"

	DefaultOpenAIModel   = "gpt-4o-mini"
	DefaultDeepSeekModel = "deepseek-chat"
	defaultRouterTitle   = "Subtitle Translator"
)

// ChatCompletions talks to any OpenAI-compatible chat completions endpoint.
type ChatCompletions struct {
	name         string
	url          string
	defaultModel string
	cfg          Config
}

func NewOpenAI(cfg Config) *ChatCompletions {
	return newChat("openai", openAIChatURL, DefaultOpenAIModel, cfg)
}

func NewDeepSeek(cfg Config) *ChatCompletions {
	return newChat("deepseek", deepSeekChatURL, DefaultDeepSeekModel, cfg)
}

// NewOpenRouter sends HTTP-Referer and X-Title, which OpenRouter uses for attribution.
func NewOpenRouter(cfg Config) *ChatCompletions {
	if cfg.Title == "" {
		cfg.Title = defaultRouterTitle
	}
	return newChat("openrouter", openRouterChatURL, "", cfg)
}

func newChat(name, url, model string, cfg Config) *ChatCompletions {
	cfg.HTTPClient = cfg.httpClient()
	return &ChatCompletions{name: name, url: cfg.baseURL(url), defaultModel: model, cfg: cfg}
}

func (c *ChatCompletions) Name() string {
	return c.name
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		// some compatible gateways answer with the streaming shape
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		Text string `json:"text"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (c *ChatCompletions) Submit(ctx context.Context, req Request) (string, error) {
	model := req.Model
	if model == "" {
		model = c.defaultModel
	}
	if model == "" {
		return "", fmt.Errorf("%s: model required", c.name)
	}

	headers := map[string]string{"Authorization": "Bearer " + c.cfg.APIKey}
	if c.cfg.Referer != "" {
		headers["HTTP-Referer"] = c.cfg.Referer
	}
	if c.cfg.Title != "" {
		headers["X-Title"] = c.cfg.Title
	}

	body, err := postJSON(ctx, c.cfg.HTTPClient, c.name, c.url, headers, chatRequest{
		Model:       model,
		Messages:    []chatMessage{{Role: "user", Content: req.Prompt}},
		Temperature: 0.7,
		MaxTokens:   1024,
	})
	if err != nil {
		return "", err
	}

	var resp chatResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("%s: %w: parse response: %v", c.name, ErrEmptyTranslation, err)
	}
	if resp.Error != nil {
		return "", fmt.Errorf("%s: %w: %s", c.name, ErrEmptyTranslation, strings.TrimSpace(resp.Error.Message))
	}

	var content string
	for _, choice := range resp.Choices {
		content = firstNonEmpty(choice.Message.Content, choice.Delta.Content, choice.Text)
		if content != "" {
			break
		}
	}
	if content == "" {
		return "", fmt.Errorf("%s: %w", c.name, ErrEmptyTranslation)
	}

	text, err := Normalize(content, req.Separator)
	if err != nil {
		return "", fmt.Errorf("%s: %w", c.name, err)
	}
	return text, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
