package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestRequireOrgAndRole(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		name     string
		identity Identity
		want     int
	}{
		{name: "no organization", identity: Identity{UserID: "u1"}, want: http.StatusForbidden},
		{name: "member", identity: Identity{UserID: "u1", OrganizationID: "o1", Role: "member"}, want: http.StatusForbidden},
		{name: "admin", identity: Identity{UserID: "u1", OrganizationID: "o1", Role: "admin"}, want: http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			router := gin.New()
			router.Use(func(c *gin.Context) {
				SetIdentity(c, tc.identity)
				c.Next()
			})
			router.PATCH("/org", RequireOrg(), RequireRole("owner", "admin"), func(c *gin.Context) {
				c.Status(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodPatch, "/org", nil)
			resp := httptest.NewRecorder()
			router.ServeHTTP(resp, req)
			if resp.Code != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, resp.Code)
			}
		})
	}
}
