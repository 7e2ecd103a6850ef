package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"saas-backend/internal/shared/server/respond"
)

// SessionCookieName carries the session token for browser clients.
const SessionCookieName = "session_token"

const (
	userIDKey         = "userId"
	userEmailKey      = "userEmail"
	userNameKey       = "userName"
	organizationIDKey = "organizationId"
	roleKey           = "userRole"
	sessionIDKey      = "sessionId"
)

// ErrUnauthenticated is returned by resolvers for unknown or expired tokens.
var ErrUnauthenticated = errors.New("unauthenticated")

// Identity is the authenticated principal of a request.
type Identity struct {
	UserID         string
	Email          string
	Name           string
	OrganizationID string
	Role           string
	SessionID      string
}

// SessionResolver maps a session token to an identity.
type SessionResolver interface {
	ResolveSession(ctx context.Context, token string) (Identity, error)
}

// Auth resolves the session token and stores the identity in context.
// Requests whose path starts with one of publicPrefixes pass through untouched.
func Auth(resolver SessionResolver, publicPrefixes ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		path := c.Request.URL.Path
		for _, prefix := range publicPrefixes {
			if strings.HasPrefix(path, prefix) {
				c.Next()
				return
			}
		}

		token := TokenFromRequest(c)
		if token == "" {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "Unauthorized", nil)
			return
		}

		identity, err := resolver.ResolveSession(c.Request.Context(), token)
		if err != nil {
			if errors.Is(err, ErrUnauthenticated) {
				respond.Error(c, http.StatusUnauthorized, "unauthorized", "Unauthorized", nil)
				return
			}
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to resolve session", nil)
			return
		}

		SetIdentity(c, identity)
		c.Next()
	}
}

// TokenFromRequest reads a Bearer token, falling back to the session cookie.
func TokenFromRequest(c *gin.Context) string {
	header := strings.TrimSpace(c.GetHeader("Authorization"))
	if header != "" {
		if !strings.HasPrefix(header, "Bearer ") {
			return ""
		}
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	if cookie, err := c.Cookie(SessionCookieName); err == nil {
		return strings.TrimSpace(cookie)
	}
	return ""
}

// SetIdentity stores identity fields in the gin context.
func SetIdentity(c *gin.Context, identity Identity) {
	c.Set(userIDKey, identity.UserID)
	c.Set(userEmailKey, identity.Email)
	c.Set(userNameKey, identity.Name)
	c.Set(organizationIDKey, identity.OrganizationID)
	c.Set(roleKey, identity.Role)
	c.Set(sessionIDKey, identity.SessionID)
}

// UserIDFromContext fetches the user ID set by the auth middleware.
func UserIDFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	return c.GetString(userIDKey)
}

// OrganizationIDFromContext fetches the caller's organization, empty when none.
func OrganizationIDFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	return c.GetString(organizationIDKey)
}

// RoleFromContext fetches the caller's role.
func RoleFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	return c.GetString(roleKey)
}

// SessionIDFromContext fetches the current session ID.
func SessionIDFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	return c.GetString(sessionIDKey)
}
