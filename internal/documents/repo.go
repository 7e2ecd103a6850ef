package documents

import (
	"context"
	"errors"

	"saas-backend/internal/analysis"
)

var (
	ErrNotFound     = errors.New("document not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrTooLarge     = errors.New("file too large")
)

// Repo persists documents. Every method is scoped to an organization.
type Repo interface {
	Create(ctx context.Context, doc Document) error
	GetByID(ctx context.Context, organizationID, id string) (Document, error)
	List(ctx context.Context, organizationID string, limit, offset int) ([]Document, error)
	Delete(ctx context.Context, organizationID, id string) error
	UpdateStatus(ctx context.Context, organizationID, id string, status analysis.Status) error
	SaveAnalysis(ctx context.Context, organizationID, id string, out analysis.Output) error
	CountByStatus(ctx context.Context, organizationID string) (map[analysis.Status]int, error)
}
