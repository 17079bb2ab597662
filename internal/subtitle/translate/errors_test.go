package translate

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		kind      Kind
		retryable bool
	}{
		{"nil", nil, KindNone, false},
		{"429", &APIError{Provider: "gemini", StatusCode: 429}, KindRateLimited, true},
		{"503", &APIError{Provider: "gemini", StatusCode: 503}, KindServiceUnavailable, true},
		{"500 wrapped", fmt.Errorf("call: %w", &APIError{StatusCode: 500}), KindServiceUnavailable, true},
		{"400", &APIError{Provider: "deepseek", StatusCode: 400}, KindAPIError, true},
		{"transport", &TransportError{Provider: "x", Err: errors.New("connection reset")}, KindTransport, true},
		{"transport timeout", &TransportError{Provider: "x", Err: context.DeadlineExceeded}, KindTransport, true},
		{"empty", fmt.Errorf("gemini: %w", ErrEmptyTranslation), KindEmptyTranslation, true},
		{"canceled", fmt.Errorf("x request: %w", context.Canceled), KindCanceled, false},
		{"other", errors.New("boom"), KindOther, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind := Classify(tt.err)
			assert.Equal(t, tt.kind, kind)
			assert.Equal(t, tt.retryable, kind.Retryable())
		})
	}
}

func TestAPIErrorMessage(t *testing.T) {
	err := &APIError{Provider: "openrouter", StatusCode: 401, Body: " unauthorized \n"}
	assert.Equal(t, "openrouter API error (status 401): unauthorized", err.Error())
	assert.True(t, errors.Is(&APIError{StatusCode: 429}, ErrRateLimited))
	assert.False(t, errors.Is(&APIError{StatusCode: 404}, ErrServiceUnavailable))
}
