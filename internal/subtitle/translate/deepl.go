package translate

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

const deeplAPIURL = "https://api-free.deepl.com/v2/translate"

// DeepL is a pure translation provider. Output is used as returned.
type DeepL struct {
	cfg Config
}

func NewDeepL(cfg Config) *DeepL {
	cfg.HTTPClient = cfg.httpClient()
	return &DeepL{cfg: cfg}
}

func (d *DeepL) Name() string {
	return "deepl"
}

func (d *DeepL) Submit(ctx context.Context, req Request) (string, error) {
	form := url.Values{}
	form.Add("text", req.Text)
	form.Set("target_lang", deeplLangCode(req.TargetLang))
	if req.SourceLang != "" && req.SourceLang != "auto" {
		form.Set("source_lang", deeplLangCode(req.SourceLang))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, d.cfg.baseURL(deeplAPIURL),
		strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("deepl: new request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("Authorization", "DeepL-Auth-Key "+d.cfg.APIKey)

	body, err := do(ctx, d.cfg.HTTPClient, d.Name(), httpReq)
	if err != nil {
		return "", err
	}

	var resp struct {
		Translations []struct {
			Text string `json:"text"`
		} `json:"translations"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("deepl: %w: parse response: %v", ErrEmptyTranslation, err)
	}
	if len(resp.Translations) == 0 || strings.TrimSpace(resp.Translations[0].Text) == "" {
		return "", fmt.Errorf("deepl: %w", ErrEmptyTranslation)
	}
	return strings.TrimSpace(resp.Translations[0].Text), nil
}

// deeplLangCode converts ISO 639-1 codes to DeepL format
func deeplLangCode(code string) string {
	mapping := map[string]string{
		"ko": "KO",
		"en": "EN-US",
		"ja": "JA",
		"zh": "ZH",
		"de": "DE",
		"fr": "FR",
		"es": "ES",
		"it": "IT",
		"pt": "PT-BR",
		"ru": "RU",
		"nl": "NL",
		"pl": "PL",
		"tr": "TR",
		"ar": "AR",
	}
	if mapped, ok := mapping[strings.ToLower(code)]; ok {
		return mapped
	}
	return strings.ToUpper(code)
}
