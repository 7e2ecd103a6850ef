package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"saas-backend/internal/activity"
	"saas-backend/internal/analysis"
	"saas-backend/internal/auth"
	"saas-backend/internal/dashboard"
	"saas-backend/internal/documents"
	"saas-backend/internal/organizations"
	"saas-backend/internal/projects"
	"saas-backend/internal/services/health"
	"saas-backend/internal/shared/config"
	"saas-backend/internal/shared/metrics"
	"saas-backend/internal/shared/server/middleware"
	"saas-backend/internal/shared/server/respond"
	"saas-backend/internal/uploads"
	"saas-backend/internal/users"
)

const (
	rateGroupDefault = "DEFAULT"
	rateGroupAuth    = "AUTH"
	rateGroupAI      = "AI"
)

// RouterDeps contains handlers and resolvers needed to build the router.
type RouterDeps struct {
	Config          config.Config
	Sessions        middleware.SessionResolver
	Health          *health.Service
	AuthHandler     *auth.Handler
	GoogleAuth      *auth.GoogleHandler
	UserHandler     *users.Handler
	OrgHandler      *organizations.Handler
	DocumentHandler *documents.Handler
	ProjectHandler  *projects.Handler
	AnalysisHandler *analysis.Handler
	ActivityHandler *activity.Handler
	DashHandler     *dashboard.Handler
	UploadHandler   *uploads.Handler
	RateLimits      map[string]middleware.RateLimitRule
}

// DefaultRateLimits are the per-principal budgets for each route group.
func DefaultRateLimits() map[string]middleware.RateLimitRule {
	return map[string]middleware.RateLimitRule{
		rateGroupDefault: {Rate: 10, Burst: 40},
		rateGroupAuth:    {Rate: 0.2, Burst: 10},
		rateGroupAI:      {Rate: 0.5, Burst: 5},
	}
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	if deps.Config.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	rules := deps.RateLimits
	if rules == nil {
		rules = DefaultRateLimits()
	}

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
		middleware.Auth(deps.Sessions,
			"/api/v1/health",
			"/api/v1/auth/sign-up",
			"/api/v1/auth/sign-in",
			"/api/v1/auth/google",
			"/metrics",
		),
		middleware.RateLimit(middleware.RateLimitConfig{
			Rules:        rules,
			DefaultGroup: rateGroupDefault,
			GroupFor:     rateGroupFor,
		}),
	)

	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api/v1")
	if deps.Health != nil {
		api.GET("/health", deps.Health.Handler)
	} else {
		api.GET("/health", func(c *gin.Context) {
			respond.JSON(c, http.StatusOK, gin.H{"ok": true})
		})
	}
	if deps.AuthHandler != nil {
		deps.AuthHandler.RegisterRoutes(api)
	}
	if deps.GoogleAuth != nil {
		deps.GoogleAuth.RegisterRoutes(api)
	}
	if deps.UserHandler != nil {
		deps.UserHandler.RegisterRoutes(api)
	}
	// POST /organizations must stay reachable for callers without one.
	if deps.OrgHandler != nil {
		deps.OrgHandler.RegisterRoutes(api)
	}

	tenant := api.Group("", middleware.RequireOrg())
	if deps.DocumentHandler != nil {
		deps.DocumentHandler.RegisterRoutes(tenant)
	}
	if deps.ProjectHandler != nil {
		deps.ProjectHandler.RegisterRoutes(tenant)
	}
	if deps.AnalysisHandler != nil {
		deps.AnalysisHandler.RegisterRoutes(tenant)
	}
	if deps.ActivityHandler != nil {
		deps.ActivityHandler.RegisterRoutes(tenant)
	}
	if deps.DashHandler != nil {
		deps.DashHandler.RegisterRoutes(tenant)
	}
	if deps.UploadHandler != nil {
		deps.UploadHandler.RegisterRoutes(tenant)
	}

	r.NoRoute(func(c *gin.Context) {
		respond.Error(c, http.StatusNotFound, "not_found", "Not found", nil)
	})

	return r
}

func rateGroupFor(c *gin.Context) string {
	path := c.FullPath()
	switch {
	case strings.HasPrefix(path, "/api/v1/auth/"):
		return rateGroupAuth
	case path == "/api/v1/ai/analyze", strings.HasSuffix(path, "/:id/analyze"):
		return rateGroupAI
	default:
		return rateGroupDefault
	}
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
