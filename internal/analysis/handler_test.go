package analysis

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"saas-backend/internal/organizations"
	"saas-backend/internal/shared/server/middleware"
)

func newAnalyzeRouter(h harness) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		middleware.SetIdentity(c, middleware.Identity{UserID: "u1", OrganizationID: "org-1", Role: "member"})
		c.Next()
	})
	NewHandler(h.svc).RegisterRoutes(r.Group("/api/v1"))
	return r
}

func postAnalyze(r http.Handler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/ai/analyze", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func TestAnalyzeRouteAccepts(t *testing.T) {
	h := newHarness(t, ProviderAnthropic)
	h.target.add("org-1", Subject{ID: "d1", Title: "T"})
	r := newAnalyzeRouter(h)

	resp := postAnalyze(r, `{"documentId":"d1","content":"hello"}`)
	require.Equal(t, http.StatusAccepted, resp.Code, resp.Body.String())
	assert.JSONEq(t, `{"status":"processing","documentId":"d1"}`, resp.Body.String())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, h.svc.Drain(ctx))
	assert.Equal(t, "Analyze this document and extract key information:\n\nhello", h.llm.calls()[0].Prompt)
}

func TestAnalyzeRouteRequiresDocumentID(t *testing.T) {
	h := newHarness(t, ProviderAnthropic)
	resp := postAnalyze(newAnalyzeRouter(h), `{"content":"x"}`)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Contains(t, resp.Body.String(), "Document ID required")
}

func TestAnalyzeRouteMapsErrors(t *testing.T) {
	h := newHarness(t, ProviderAnthropic)
	r := newAnalyzeRouter(h)

	resp := postAnalyze(r, `{"documentId":"missing"}`)
	assert.Equal(t, http.StatusNotFound, resp.Code)

	off := false
	h.settings["org-1"] = organizations.Settings{Features: organizations.Features{AIAnalysis: &off}}
	h.target.add("org-1", Subject{ID: "d1", Title: "T"})
	resp = postAnalyze(r, `{"documentId":"d1"}`)
	assert.Equal(t, http.StatusForbidden, resp.Code)
	assert.Contains(t, resp.Body.String(), "feature_disabled")
}
