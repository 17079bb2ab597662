package translate

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrRateLimited marks an HTTP 429 from a provider.
	ErrRateLimited = errors.New("rate limited")
	// ErrServiceUnavailable marks an HTTP 5xx from a provider.
	ErrServiceUnavailable = errors.New("service unavailable")
	// ErrEmptyTranslation is returned when a response carries no usable text.
	ErrEmptyTranslation = errors.New("empty translation")
	// ErrUnknownProvider is returned for provider names nothing is registered under.
	ErrUnknownProvider = errors.New("unknown provider")
)

// APIError is a non-2xx response from a provider.
type APIError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	body := strings.TrimSpace(e.Body)
	if len(body) > 200 {
		body = body[:200] + "..."
	}
	return fmt.Sprintf("%s API error (status %d): %s", e.Provider, e.StatusCode, body)
}

// Unwrap exposes ErrRateLimited and ErrServiceUnavailable for errors.Is.
func (e *APIError) Unwrap() error {
	switch {
	case e.StatusCode == http.StatusTooManyRequests:
		return ErrRateLimited
	case e.StatusCode >= http.StatusInternalServerError:
		return ErrServiceUnavailable
	default:
		return nil
	}
}

// TransportError wraps a failed round trip (DNS, connect, timeout, reset).
type TransportError struct {
	Provider string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s request: %v", e.Provider, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Kind is the failure class of a provider call.
type Kind int

const (
	KindNone Kind = iota
	KindRateLimited
	KindServiceUnavailable
	KindAPIError
	KindTransport
	KindEmptyTranslation
	KindCanceled
	KindOther
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindRateLimited:
		return "rate_limited"
	case KindServiceUnavailable:
		return "service_unavailable"
	case KindAPIError:
		return "api_error"
	case KindTransport:
		return "transport_error"
	case KindEmptyTranslation:
		return "empty_translation"
	case KindCanceled:
		return "canceled"
	default:
		return "other"
	}
}

// Retryable reports whether another attempt may succeed.
func (k Kind) Retryable() bool {
	switch k {
	case KindRateLimited, KindServiceUnavailable, KindAPIError, KindTransport, KindEmptyTranslation:
		return true
	default:
		return false
	}
}

// Classify maps err onto the provider failure taxonomy.
func Classify(err error) Kind {
	if err == nil {
		return KindNone
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		var te *TransportError
		if !errors.As(err, &te) {
			return KindCanceled
		}
	}
	switch {
	case errors.Is(err, ErrRateLimited):
		return KindRateLimited
	case errors.Is(err, ErrServiceUnavailable):
		return KindServiceUnavailable
	case errors.Is(err, ErrEmptyTranslation):
		return KindEmptyTranslation
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return KindAPIError
	}
	var te *TransportError
	if errors.As(err, &te) {
		return KindTransport
	}
	return KindOther
}
