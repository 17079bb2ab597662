package translate

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

const (
	geminiAPIBase      = "https://generativelanguage.googleapis.com/v1beta/models"
	DefaultGeminiModel = "gemini-2.0-flash"
)

// Gemini calls the generateContent endpoint with one prompt per request.
type Gemini struct {
	cfg Config
}

func NewGemini(cfg Config) *Gemini {
	cfg.HTTPClient = cfg.httpClient()
	return &Gemini{cfg: cfg}
}

func (g *Gemini) Name() string {
	return "gemini"
}

func (g *Gemini) Submit(ctx context.Context, req Request) (string, error) {
	model := req.Model
	if model == "" {
		model = DefaultGeminiModel
	}

	payload := map[string]any{
		"contents": []map[string]any{
			{"parts": []map[string]string{{"text": req.Prompt}}},
		},
		"safetySettings": []map[string]string{
			{"category": "HARM_CATEGORY_HARASSMENT", "threshold": "BLOCK_NONE"},
			{"category": "HARM_CATEGORY_HATE_SPEECH", "threshold": "BLOCK_NONE"},
			{"category": "HARM_CATEGORY_SEXUALLY_EXPLICIT", "threshold": "BLOCK_NONE"},
			{"category": "HARM_CATEGORY_DANGEROUS_CONTENT", "threshold": "BLOCK_NONE"},
		},
		"generationConfig": map[string]any{
			"temperature":     0.3,
			"topK":            40,
			"topP":            0.8,
			"maxOutputTokens": 1024,
			"stopSequences":   []string{DefaultSeparator},
		},
	}

	url := fmt.Sprintf("%s/%s:generateContent", strings.TrimRight(g.cfg.baseURL(geminiAPIBase), "/"), model)
	body, err := postJSON(ctx, g.cfg.HTTPClient, g.Name(), url, map[string]string{
		"x-goog-api-key": g.cfg.APIKey,
	}, payload)
	if err != nil {
		return "", err
	}

	var resp struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
			FinishReason string `json:"finishReason"`
		} `json:"candidates"`
		PromptFeedback struct {
			BlockReason string `json:"blockReason"`
		} `json:"promptFeedback"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("gemini: %w: parse response: %v", ErrEmptyTranslation, err)
	}

	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		if resp.PromptFeedback.BlockReason != "" {
			return "", fmt.Errorf("gemini: %w: blocked (%s)", ErrEmptyTranslation, resp.PromptFeedback.BlockReason)
		}
		return "", fmt.Errorf("gemini: %w", ErrEmptyTranslation)
	}

	text, err := Normalize(resp.Candidates[0].Content.Parts[0].Text, req.Separator)
	if err != nil {
		return "", fmt.Errorf("gemini: %w", err)
	}
	return text, nil
}
