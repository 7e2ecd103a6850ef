package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"saas-backend/internal/shared/server/middleware"
	"saas-backend/internal/shared/telemetry"
)

func newHandlerRouter(t *testing.T) (*gin.Engine, *fixture) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	f := newFixture(t)
	r := gin.New()
	NewHandler(f.svc, false).RegisterRoutes(r.Group("/api/v1"))
	return r, f
}

func postJSON(r http.Handler, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func TestSignUpSetsCookie(t *testing.T) {
	r, _ := newHandlerRouter(t)

	resp := postJSON(r, "/api/v1/auth/sign-up", `{"name":"Ada","email":"ada@example.com","password":"password123"}`)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

	var payload struct {
		Token string `json:"token"`
		User  struct {
			Email string `json:"email"`
		} `json:"user"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &payload))
	assert.NotEmpty(t, payload.Token)
	assert.Equal(t, "ada@example.com", payload.User.Email)

	cookies := resp.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, middleware.SessionCookieName, cookies[0].Name)
	assert.Equal(t, payload.Token, cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)
}

func TestSignUpValidationAndConflict(t *testing.T) {
	r, _ := newHandlerRouter(t)

	resp := postJSON(r, "/api/v1/auth/sign-up", `{"name":"Ada","email":"ada@example.com","password":"short"}`)
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = postJSON(r, "/api/v1/auth/sign-up", `{"name":"Ada","email":"ada@example.com","password":"password123"}`)
	require.Equal(t, http.StatusCreated, resp.Code)
	resp = postJSON(r, "/api/v1/auth/sign-up", `{"name":"Ada","email":"ada@example.com","password":"password123"}`)
	assert.Equal(t, http.StatusConflict, resp.Code)
}

func TestSignInWrongPasswordIs401(t *testing.T) {
	r, _ := newHandlerRouter(t)
	require.Equal(t, http.StatusCreated, postJSON(r, "/api/v1/auth/sign-up", `{"name":"Ada","email":"ada@example.com","password":"password123"}`).Code)

	resp := postJSON(r, "/api/v1/auth/sign-in", `{"email":"ada@example.com","password":"nope-nope"}`)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
	assert.Contains(t, resp.Body.String(), "invalid_credentials")

	resp = postJSON(r, "/api/v1/auth/sign-in", `{"email":"ada@example.com","password":"password123"}`)
	assert.Equal(t, http.StatusOK, resp.Code)
}

func TestSignOutClearsSession(t *testing.T) {
	r, f := newHandlerRouter(t)
	resp := postJSON(r, "/api/v1/auth/sign-up", `{"name":"Ada","email":"ada@example.com","password":"password123"}`)
	require.Equal(t, http.StatusCreated, resp.Code)
	var payload struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &payload))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/sign-out", nil)
	req.Header.Set("Authorization", "Bearer "+payload.Token)
	out := httptest.NewRecorder()
	r.ServeHTTP(out, req)
	assert.Equal(t, http.StatusNoContent, out.Code)

	_, err := f.svc.ResolveSession(req.Context(), payload.Token)
	assert.ErrorIs(t, err, middleware.ErrUnauthenticated)
}

func TestSignOutLogsResolvedSession(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	restore := telemetry.SetLogger(zap.New(core))
	defer restore()

	gin.SetMode(gin.TestMode)
	f := newFixture(t)
	res, err := f.svc.SignUp(t.Context(), SignUpInput{Name: "Ada", Email: "ada@example.com", Password: "password123"}, ClientInfo{})
	require.NoError(t, err)
	identity, err := f.svc.ResolveSession(t.Context(), res.Token)
	require.NoError(t, err)

	r := gin.New()
	r.Use(middleware.Auth(f.svc))
	NewHandler(f.svc, false).RegisterRoutes(r.Group("/api/v1"))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/sign-out", nil)
	req.Header.Set("Authorization", "Bearer "+res.Token)
	out := httptest.NewRecorder()
	r.ServeHTTP(out, req)
	require.Equal(t, http.StatusNoContent, out.Code)

	entries := logs.FilterMessage("auth.signed_out").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, identity.SessionID, fields["session_id"])
	assert.Equal(t, res.User.ID, fields["user_id"])
}
