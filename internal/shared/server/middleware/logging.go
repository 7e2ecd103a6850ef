package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"saas-backend/internal/shared/metrics"
	"saas-backend/internal/shared/telemetry"
)

// Context keys handlers may set to enrich the request log line.
const (
	LogDocumentID       = "documentId"
	LogProjectID        = "projectId"
	LogStatusTransition = "statusTransition"
)

// Logging emits a structured log per request.
func Logging() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		latency := time.Since(start)
		status := c.Writer.Status()
		metrics.ObserveRequest(c.Request.Method, c.FullPath(), status)

		telemetry.Info("request.complete", map[string]any{
			"request_id":        RequestIDFromContext(c),
			"method":            c.Request.Method,
			"path":              c.Request.URL.Path,
			"route":             c.FullPath(),
			"status":            status,
			"status_transition": c.GetString(LogStatusTransition),
			"duration_ms":       float64(latency.Microseconds()) / 1000.0,
			"user_id":           UserIDFromContext(c),
			"organization_id":   OrganizationIDFromContext(c),
			"document_id":       c.GetString(LogDocumentID),
			"project_id":        c.GetString(LogProjectID),
			"client_ip":         c.ClientIP(),
			"user_agent":        c.Request.UserAgent(),
		})
	}
}
