package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"saas-backend/internal/shared/server/respond"
)

// RequireOrg rejects callers that do not belong to an organization.
func RequireOrg() gin.HandlerFunc {
	return func(c *gin.Context) {
		if OrganizationIDFromContext(c) == "" {
			respond.Error(c, http.StatusForbidden, "no_organization", "No organization", nil)
			return
		}
		c.Next()
	}
}

// RequireRole rejects callers whose role is not in roles.
func RequireRole(roles ...string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *gin.Context) {
		if _, ok := allowed[RoleFromContext(c)]; !ok {
			respond.Error(c, http.StatusForbidden, "forbidden", "insufficient role", nil)
			return
		}
		c.Next()
	}
}
