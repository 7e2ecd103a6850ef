package health

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"saas-backend/internal/shared/server/respond"
	"saas-backend/internal/shared/telemetry"
)

const (
	DatabaseUp     = "up"
	DatabaseDown   = "down"
	DatabaseMemory = "memory"

	pingTimeout = 2 * time.Second
)

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Service encapsulates health-related checks.
type Service struct {
	DB Pinger
}

// NewService constructs a health service. A nil db reports in-memory storage.
func NewService(db Pinger) *Service {
	return &Service{DB: db}
}

type Status struct {
	OK       bool   `json:"ok"`
	Database string `json:"database"`
}

// Status pings the database. ok is false only when a configured database is unreachable.
func (s *Service) Status(ctx context.Context) Status {
	if s.DB == nil {
		return Status{OK: true, Database: DatabaseMemory}
	}
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := s.DB.PingContext(ctx); err != nil {
		telemetry.Warn("health.database_down", map[string]any{"error": err})
		return Status{OK: false, Database: DatabaseDown}
	}
	return Status{OK: true, Database: DatabaseUp}
}

// Handler serves GET /health.
func (s *Service) Handler(c *gin.Context) {
	st := s.Status(c.Request.Context())
	code := http.StatusOK
	if !st.OK {
		code = http.StatusServiceUnavailable
	}
	respond.JSON(c, code, st)
}
