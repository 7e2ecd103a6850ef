package projects

import (
	"context"
	"errors"

	"saas-backend/internal/analysis"
)

var (
	ErrNotFound     = errors.New("project not found")
	ErrInvalidInput = errors.New("invalid input")
)

// Repo persists projects. Every method is scoped to an organization.
type Repo interface {
	Create(ctx context.Context, p Project) error
	GetByID(ctx context.Context, organizationID, id string) (Project, error)
	List(ctx context.Context, organizationID string, limit, offset int) ([]Project, error)
	Delete(ctx context.Context, organizationID, id string) error
	UpdateStatus(ctx context.Context, organizationID, id string, status analysis.Status) error
	SaveAnalysis(ctx context.Context, organizationID, id string, out analysis.Output) error
	CountByStatus(ctx context.Context, organizationID string) (map[analysis.Status]int, error)
}
