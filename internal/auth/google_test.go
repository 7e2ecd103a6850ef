package auth

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	sharedauth "saas-backend/internal/shared/auth"
	"saas-backend/internal/shared/server/middleware"
)

func newGoogleRouter(t *testing.T, clientID string) (*gin.Engine, *GoogleHandler, *fixture) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	f := newFixture(t)
	signer, err := sharedauth.NewStateSigner("test-secret", "dev", time.Minute)
	require.NoError(t, err)
	g := NewGoogleHandler(clientID, "secret", "http://api.local/callback", "http://ui.local/auth/done", signer, NewHandler(f.svc, false))
	r := gin.New()
	g.RegisterRoutes(r.Group("/api/v1"))
	return r, g, f
}

func TestGoogleStartNotConfigured(t *testing.T) {
	r, _, _ := newGoogleRouter(t, "")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/auth/google/start", nil))
	assert.Equal(t, http.StatusNotImplemented, resp.Code)
}

func TestGoogleStartRedirectsWithSignedState(t *testing.T) {
	r, g, _ := newGoogleRouter(t, "client-id")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/auth/google/start", nil))
	require.Equal(t, http.StatusFound, resp.Code)

	loc, err := url.Parse(resp.Header().Get("Location"))
	require.NoError(t, err)
	state := loc.Query().Get("state")
	require.NotEmpty(t, state)
	assert.NoError(t, g.states.Verify(state, ProviderGoogle))
}

func TestGoogleCallbackRejectsForgedState(t *testing.T) {
	r, _, _ := newGoogleRouter(t, "client-id")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/auth/google/callback?state=forged&code=abc", nil))
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func newGoogleProvider(t *testing.T, userInfo string) *httptest.Server {
	t.Helper()
	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/token":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"access_token":"at-1","token_type":"Bearer","expires_in":3600}`))
		case "/userinfo":
			if r.Header.Get("Authorization") != "Bearer at-1" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			_, _ = w.Write([]byte(userInfo))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(provider.Close)
	return provider
}

func pointAt(g *GoogleHandler, provider *httptest.Server) {
	g.oauthConfig.Endpoint = oauth2.Endpoint{AuthURL: provider.URL + "/auth", TokenURL: provider.URL + "/token"}
	g.userInfoURL = provider.URL + "/userinfo"
}

func callback(t *testing.T, r *gin.Engine, g *GoogleHandler, pinState bool) *httptest.ResponseRecorder {
	t.Helper()
	state, err := g.states.Issue(ProviderGoogle)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/google/callback?state="+url.QueryEscape(state)+"&code=abc", nil)
	if pinState {
		req.AddCookie(&http.Cookie{Name: stateCookieName, Value: state})
	}
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func TestGoogleStartPinsStateCookie(t *testing.T) {
	r, _, _ := newGoogleRouter(t, "client-id")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/auth/google/start", nil))
	require.Equal(t, http.StatusFound, resp.Code)

	loc, err := url.Parse(resp.Header().Get("Location"))
	require.NoError(t, err)
	var pinned *http.Cookie
	for _, ck := range resp.Result().Cookies() {
		if ck.Name == stateCookieName {
			pinned = ck
		}
	}
	require.NotNil(t, pinned)
	assert.Equal(t, loc.Query().Get("state"), pinned.Value)
	assert.True(t, pinned.HttpOnly)
}

func TestGoogleCallbackSignsInAndRedirects(t *testing.T) {
	provider := newGoogleProvider(t, `{"id":"g-123","email":"grace@example.com","name":"Grace","picture":"https://img/g","verified_email":true}`)
	r, g, f := newGoogleRouter(t, "client-id")
	pointAt(g, provider)

	resp := callback(t, r, g, true)
	require.Equal(t, http.StatusFound, resp.Code, resp.Body.String())

	loc, err := url.Parse(resp.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "ui.local", loc.Host)
	token := loc.Query().Get("token")
	require.NotEmpty(t, token)

	identity, err := f.svc.ResolveSession(t.Context(), token)
	require.NoError(t, err)
	user, err := f.users.GetByID(t.Context(), identity.UserID)
	require.NoError(t, err)
	assert.Equal(t, "grace@example.com", user.Email)
	assert.Equal(t, "Grace", user.Name)
}

func TestGoogleCallbackRequiresPinnedState(t *testing.T) {
	provider := newGoogleProvider(t, `{"id":"g-123","email":"grace@example.com","verified_email":true}`)
	r, g, f := newGoogleRouter(t, "client-id")
	pointAt(g, provider)

	resp := callback(t, r, g, false)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	_, err := f.users.GetByEmail(t.Context(), "grace@example.com")
	assert.Error(t, err)
}

func TestGoogleCallbackUnverifiedEmailCannotClaimAccount(t *testing.T) {
	provider := newGoogleProvider(t, `{"id":"other-g","email":"victim@example.com","verified_email":false}`)
	r, g, f := newGoogleRouter(t, "client-id")
	pointAt(g, provider)

	victim, err := f.svc.SignUp(t.Context(), SignUpInput{Name: "Victim", Email: "victim@example.com", Password: "password123"}, ClientInfo{})
	require.NoError(t, err)

	resp := callback(t, r, g, true)
	require.Equal(t, http.StatusForbidden, resp.Code, resp.Body.String())
	assert.Contains(t, resp.Body.String(), "email_not_verified")
	assert.Empty(t, resp.Header().Get("Location"))

	for _, ck := range resp.Result().Cookies() {
		assert.NotEqual(t, middleware.SessionCookieName, ck.Name)
	}
	stored, err := f.users.GetByID(t.Context(), victim.User.ID)
	require.NoError(t, err)
	assert.False(t, stored.EmailVerified)
}
