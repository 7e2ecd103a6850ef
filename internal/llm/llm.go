package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Client abstracts hosted LLM providers.
type Client interface {
	Complete(ctx context.Context, req Request) (Completion, error)
}

// Request is a single-turn completion request.
type Request struct {
	Model     string
	System    string
	Prompt    string
	MaxTokens int
}

// Completion is the provider's text answer plus token usage.
type Completion struct {
	Text         string
	Model        string
	InputTokens  int
	OutputTokens int
}

// TokensUsed is input plus output tokens.
func (c Completion) TokensUsed() int {
	return c.InputTokens + c.OutputTokens
}

// ErrNotConfigured is returned by the placeholder client.
var ErrNotConfigured = errors.New("llm provider not configured")

// PlaceholderClient is used when no provider credentials are set.
type PlaceholderClient struct{}

// Complete returns ErrNotConfigured.
func (PlaceholderClient) Complete(context.Context, Request) (Completion, error) {
	return Completion{}, ErrNotConfigured
}

// APIError is a non-2xx provider response.
type APIError struct {
	Provider   string
	StatusCode int
	Type       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("%s http status %d: %s (%s)", e.Provider, e.StatusCode, e.Message, e.Type)
	}
	return fmt.Sprintf("%s http status %d: %s", e.Provider, e.StatusCode, e.Message)
}

// Retryable reports whether the provider may succeed on a second attempt.
func (e *APIError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= http.StatusInternalServerError
}
