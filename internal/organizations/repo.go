package organizations

import (
	"context"
	"errors"
)

var (
	ErrNotFound  = errors.New("organization not found")
	ErrSlugTaken = errors.New("organization slug taken")
)

type Repo interface {
	Create(ctx context.Context, org Organization) error
	GetByID(ctx context.Context, id string) (Organization, error)
	GetBySlug(ctx context.Context, slug string) (Organization, error)
	Update(ctx context.Context, id, name string, settings Settings) (Organization, error)
}
