package errs

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewUpstream_DefaultsToBadGateway(t *testing.T) {
	err := NewUpstream("embeddings", 0, "", errors.New("connection refused"))
	assert.Equal(t, http.StatusBadGateway, err.Status)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, http.StatusOK},
		{"config", &ConfigError{Setting: "mistral.api_key"}, http.StatusInternalServerError},
		{"upstream status propagated", NewUpstream("chat", http.StatusTooManyRequests, "", nil), http.StatusTooManyRequests},
		{"wrapped upstream", fmt.Errorf("chat: %w", NewUpstream("chat", http.StatusUnauthorized, "", nil)), http.StatusUnauthorized},
		{"validation", Validation("texts", "empty"), http.StatusBadRequest},
		{"validation with status", &ValidationError{Field: "file", Reason: "too large", Status: http.StatusRequestEntityTooLarge}, http.StatusRequestEntityTooLarge},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.err))
		})
	}
}

func TestPredicates(t *testing.T) {
	wrapped := fmt.Errorf("upload: %w", &ConfigError{Setting: "mistral.api_key"})
	assert.True(t, IsConfig(wrapped))
	assert.False(t, IsUpstream(wrapped))
	assert.False(t, IsValidation(wrapped))
	assert.True(t, IsValidation(Validation("messages", "required")))
}
