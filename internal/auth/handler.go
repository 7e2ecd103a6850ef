package auth

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"saas-backend/internal/shared/server/middleware"
	"saas-backend/internal/shared/server/respond"
	"saas-backend/internal/shared/telemetry"
	"saas-backend/internal/users"
)

type Handler struct {
	Svc          *Service
	CookieSecure bool
}

func NewHandler(svc *Service, cookieSecure bool) *Handler {
	return &Handler{Svc: svc, CookieSecure: cookieSecure}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/auth/sign-up", h.signUp)
	rg.POST("/auth/sign-in", h.signIn)
	rg.POST("/auth/sign-out", h.signOut)
}

type signUpRequest struct {
	Name     string `json:"name" binding:"required,max=100"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

type signInRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=1"`
}

type sessionResponse struct {
	User      users.User `json:"user"`
	Token     string     `json:"token"`
	ExpiresAt time.Time  `json:"expiresAt"`
}

func (h *Handler) signUp(c *gin.Context) {
	var req signUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.BindError(c, err)
		return
	}
	res, err := h.Svc.SignUp(c.Request.Context(), SignUpInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	}, clientInfo(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	h.setSessionCookie(c, res)
	respond.Created(c, toSessionResponse(res))
}

func (h *Handler) signIn(c *gin.Context) {
	var req signInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.BindError(c, err)
		return
	}
	res, err := h.Svc.SignIn(c.Request.Context(), req.Email, req.Password, clientInfo(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	h.setSessionCookie(c, res)
	respond.OK(c, toSessionResponse(res))
}

func (h *Handler) signOut(c *gin.Context) {
	if err := h.Svc.SignOut(c.Request.Context(), middleware.TokenFromRequest(c)); err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to sign out", nil)
		return
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.SessionCookieName, "", -1, "/", "", h.CookieSecure, true)
	telemetry.Info("auth.signed_out", map[string]any{
		"request_id": telemetry.RequestIDFrom(c.Request.Context()),
		"user_id":    middleware.UserIDFromContext(c),
		"session_id": middleware.SessionIDFromContext(c),
	})
	respond.NoContent(c)
}

func (h *Handler) setSessionCookie(c *gin.Context, res Result) {
	maxAge := int(res.ExpiresAt.Sub(h.Svc.now()).Seconds())
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.SessionCookieName, res.Token, maxAge, "/", "", h.CookieSecure, true)
}

func (h *Handler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, "validation_error", strings.TrimPrefix(err.Error(), ErrInvalidInput.Error()+": "), nil)
	case errors.Is(err, ErrEmailTaken):
		respond.Error(c, http.StatusConflict, "conflict", "email already registered", nil)
	case errors.Is(err, ErrUnverifiedEmail):
		respond.Error(c, http.StatusForbidden, "email_not_verified", "Email address is not verified with the provider", nil)
	case errors.Is(err, ErrInvalidCredentials):
		respond.Error(c, http.StatusUnauthorized, "invalid_credentials", "Invalid email or password", nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", "authentication failed", nil)
	}
}

func toSessionResponse(res Result) sessionResponse {
	return sessionResponse{User: res.User, Token: res.Token, ExpiresAt: res.ExpiresAt}
}

func clientInfo(c *gin.Context) ClientInfo {
	return ClientInfo{IPAddress: c.ClientIP(), UserAgent: c.Request.UserAgent()}
}
