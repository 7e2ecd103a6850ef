package analysis

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"

	"saas-backend/internal/llm"
	"saas-backend/internal/shared/telemetry"
)

const llmRetryBaseDelay = 300 * time.Millisecond

type retryingLLM struct {
	base       llm.Client
	delay      time.Duration
	resourceID string
}

func newRetryingLLM(base llm.Client, resourceID string, delay time.Duration) llm.Client {
	if base == nil {
		return nil
	}
	return retryingLLM{base: base, delay: delay, resourceID: resourceID}
}

func (r retryingLLM) Complete(ctx context.Context, req llm.Request) (llm.Completion, error) {
	out, err := r.base.Complete(ctx, req)
	if err == nil || !shouldRetryLLM(err) {
		return out, err
	}

	telemetry.Warn("llm.retry", map[string]any{
		"request_id":  telemetry.RequestIDFrom(ctx),
		"resource_id": r.resourceID,
		"attempt":     1,
		"error":       sanitizeError(err),
	})
	select {
	case <-time.After(r.delay):
	case <-ctx.Done():
		return llm.Completion{}, ctx.Err()
	}

	return r.base.Complete(ctx, req)
}

func shouldRetryLLM(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, llm.ErrNotConfigured) || errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var apiErr *llm.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Retryable()
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "request timeout") {
		return true
	}
	return strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "connection closed") ||
		strings.Contains(msg, "broken pipe") ||
		strings.Contains(msg, "tls handshake timeout") ||
		strings.Contains(msg, "unexpected eof")
}

func sanitizeError(err error) string {
	if err == nil {
		return ""
	}
	msg := strings.ReplaceAll(err.Error(), "\n", " ")
	msg = strings.ReplaceAll(msg, "\r", " ")
	msg = strings.TrimSpace(msg)
	const maxLen = 500
	if len(msg) > maxLen {
		msg = msg[:maxLen]
	}
	return msg
}
