package auth

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	sharedauth "saas-backend/internal/shared/auth"
	"saas-backend/internal/shared/server/respond"
	"saas-backend/internal/shared/telemetry"
)

const (
	googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

	// stateCookieName pins the OAuth state to the browser that started the flow.
	stateCookieName   = "oauth_state"
	stateCookiePath   = "/api/v1/auth/google"
	stateCookieMaxAge = 300
)

// GoogleHandler runs the Google OAuth sign-in flow.
type GoogleHandler struct {
	oauthConfig *oauth2.Config
	states      *sharedauth.StateSigner
	svc         *Service
	uiRedirect  string
	session     *Handler
	userInfoURL string
}

// NewGoogleHandler builds a GoogleHandler.
func NewGoogleHandler(clientID, clientSecret, redirectURL, uiRedirect string, states *sharedauth.StateSigner, session *Handler) *GoogleHandler {
	return &GoogleHandler{
		oauthConfig: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes: []string{
				"https://www.googleapis.com/auth/userinfo.email",
				"https://www.googleapis.com/auth/userinfo.profile",
			},
			Endpoint: google.Endpoint,
		},
		states:      states,
		svc:         session.Svc,
		uiRedirect:  uiRedirect,
		session:     session,
		userInfoURL: googleUserInfoURL,
	}
}

// RegisterRoutes attaches Google auth routes.
func (h *GoogleHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/auth/google/start", h.start)
	rg.GET("/auth/google/callback", h.callback)
}

func (h *GoogleHandler) configured() bool {
	return h.oauthConfig.ClientID != "" && h.oauthConfig.ClientSecret != "" && h.oauthConfig.RedirectURL != ""
}

func (h *GoogleHandler) start(c *gin.Context) {
	if !h.configured() {
		respond.Error(c, http.StatusNotImplemented, "auth_not_configured", "Google auth not configured", nil)
		return
	}
	state, err := h.states.Issue(ProviderGoogle)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to start sign-in", nil)
		return
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(stateCookieName, state, stateCookieMaxAge, stateCookiePath, "", h.session.CookieSecure, true)
	c.Redirect(http.StatusFound, h.oauthConfig.AuthCodeURL(state))
}

func (h *GoogleHandler) callback(c *gin.Context) {
	state := c.Query("state")
	code := c.Query("code")
	if state == "" || code == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "missing state or code", nil)
		return
	}
	pinned, _ := c.Cookie(stateCookieName)
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(stateCookieName, "", -1, stateCookiePath, "", h.session.CookieSecure, true)
	if pinned == "" || subtle.ConstantTimeCompare([]byte(pinned), []byte(state)) != 1 {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid or expired state", nil)
		return
	}
	if err := h.states.Verify(state, ProviderGoogle); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid or expired state", nil)
		return
	}

	ctx := c.Request.Context()
	token, err := h.oauthConfig.Exchange(ctx, code)
	if err != nil {
		telemetry.Warn("auth.google_exchange_failed", map[string]any{"error": err})
		respond.Error(c, http.StatusBadRequest, "validation_error", "failed to exchange code", nil)
		return
	}

	info, err := h.fetchUserInfo(ctx, token)
	if err != nil || info.Sub == "" || info.Email == "" {
		telemetry.Warn("auth.google_profile_failed", map[string]any{"error": err})
		respond.Error(c, http.StatusBadGateway, "auth_failed", "failed to fetch user profile", nil)
		return
	}

	res, err := h.svc.SignInWithProvider(ctx, Profile{
		Provider:  ProviderGoogle,
		AccountID: info.Sub,
		Email:     info.Email,
		Name:      info.Name,
		Image:     info.Picture,
		Verified:  info.VerifiedEmail || info.EmailVerified,
	}, clientInfo(c))
	if err != nil {
		h.session.writeError(c, err)
		return
	}
	h.session.setSessionCookie(c, res)

	redirectURL, err := appendToken(h.uiRedirect, res.Token)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to redirect", nil)
		return
	}
	c.Redirect(http.StatusFound, redirectURL)
}

type googleUserInfo struct {
	Sub     string `json:"sub"`
	ID      string `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
	// v2 reports verified_email; the OIDC userinfo endpoint reports email_verified.
	VerifiedEmail bool `json:"verified_email"`
	EmailVerified bool `json:"email_verified"`
}

func (h *GoogleHandler) fetchUserInfo(ctx context.Context, token *oauth2.Token) (googleUserInfo, error) {
	client := h.oauthConfig.Client(ctx, token)
	resp, err := client.Get(h.userInfoURL)
	if err != nil {
		return googleUserInfo{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return googleUserInfo{}, fmt.Errorf("userinfo status %d", resp.StatusCode)
	}

	var info googleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return googleUserInfo{}, err
	}
	// The v2 endpoint returns "id" rather than "sub".
	if info.Sub == "" {
		info.Sub = info.ID
	}
	return info, nil
}

func appendToken(rawURL, token string) (string, error) {
	if rawURL == "" {
		return "", errors.New("redirect url required")
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
