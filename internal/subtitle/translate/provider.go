package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const DefaultTimeout = 60 * time.Second

// Request is one cue's translation call.
type Request struct {
	Model      string
	Prompt     string // fully substituted prompt for LLM providers
	Text       string // raw cue text for pure-translation providers
	SourceLang string
	TargetLang string
	Separator  string
}

// Provider performs exactly one network exchange per Submit.
// Errors are classified with Classify.
type Provider interface {
	Name() string
	Submit(ctx context.Context, req Request) (string, error)
}

// Config is shared by all provider constructors.
type Config struct {
	APIKey     string
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client

	// OpenRouter attribution headers
	Referer string
	Title   string
}

func (c Config) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{Timeout: timeout}
}

func (c Config) baseURL(fallback string) string {
	if c.BaseURL != "" {
		return c.BaseURL
	}
	return fallback
}

// postJSON encodes payload, sends it and returns the body of a 2xx response.
func postJSON(ctx context.Context, client *http.Client, provider, url string, headers map[string]string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%s: encode request: %w", provider, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%s: new request: %w", provider, err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return do(ctx, client, provider, req)
}

func do(ctx context.Context, client *http.Client, provider string, req *http.Request) ([]byte, error) {
	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%s request: %w", provider, ctx.Err())
		}
		return nil, &TransportError{Provider: provider, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%s response: %w", provider, ctx.Err())
		}
		return nil, &TransportError{Provider: provider, Err: fmt.Errorf("read body: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{Provider: provider, StatusCode: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}
