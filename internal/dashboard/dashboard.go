package dashboard

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"saas-backend/internal/activity"
	"saas-backend/internal/analysis"
	"saas-backend/internal/shared/server/middleware"
	"saas-backend/internal/shared/server/respond"
	"saas-backend/internal/shared/telemetry"
)

const recentActivityLimit = 5

// StatusCounter counts an organization's resources by analysis status.
type StatusCounter interface {
	CountByStatus(ctx context.Context, organizationID string) (map[analysis.Status]int, error)
}

type ActivityFeed interface {
	Recent(ctx context.Context, organizationID string, limit int) ([]activity.Entry, error)
}

// Counts is a per-status breakdown plus its total.
type Counts struct {
	Total      int `json:"total"`
	Pending    int `json:"pending"`
	Processing int `json:"processing"`
	Completed  int `json:"completed"`
	Failed     int `json:"failed"`
}

type Stats struct {
	Documents      Counts           `json:"documents"`
	Projects       Counts           `json:"projects"`
	RecentActivity []activity.Entry `json:"recentActivity"`
}

type Service struct {
	Documents StatusCounter
	Projects  StatusCounter
	Activity  ActivityFeed
}

func NewService(docs, projects StatusCounter, feed ActivityFeed) *Service {
	return &Service{Documents: docs, Projects: projects, Activity: feed}
}

// Stats loads the three dashboard sections concurrently.
func (s *Service) Stats(ctx context.Context, organizationID string) (Stats, error) {
	var out Stats
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		counts, err := s.Documents.CountByStatus(gctx, organizationID)
		out.Documents = toCounts(counts)
		return err
	})
	g.Go(func() error {
		counts, err := s.Projects.CountByStatus(gctx, organizationID)
		out.Projects = toCounts(counts)
		return err
	})
	g.Go(func() error {
		entries, err := s.Activity.Recent(gctx, organizationID, recentActivityLimit)
		out.RecentActivity = entries
		return err
	})
	if err := g.Wait(); err != nil {
		return Stats{}, err
	}
	if out.RecentActivity == nil {
		out.RecentActivity = []activity.Entry{}
	}
	return out, nil
}

func toCounts(m map[analysis.Status]int) Counts {
	c := Counts{
		Pending:    m[analysis.StatusPending],
		Processing: m[analysis.StatusProcessing],
		Completed:  m[analysis.StatusCompleted],
		Failed:     m[analysis.StatusFailed],
	}
	c.Total = c.Pending + c.Processing + c.Completed + c.Failed
	return c
}

type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/dashboard/stats", h.stats)
}

func (h *Handler) stats(c *gin.Context) {
	orgID := middleware.OrganizationIDFromContext(c)
	stats, err := h.Svc.Stats(c.Request.Context(), orgID)
	if err != nil {
		telemetry.Error("dashboard.stats_failed", map[string]any{
			"request_id":      c.GetString("requestId"),
			"organization_id": orgID,
			"error":           err,
		})
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to load dashboard", nil)
		return
	}
	respond.OK(c, stats)
}
