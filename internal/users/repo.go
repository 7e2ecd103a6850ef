package users

import (
	"context"
	"errors"
)

var (
	ErrNotFound   = errors.New("user not found")
	ErrEmailTaken = errors.New("email already registered")
)

type Repo interface {
	Create(ctx context.Context, user User) error
	GetByID(ctx context.Context, userID string) (User, error)
	GetByEmail(ctx context.Context, email string) (User, error)
	UpdateName(ctx context.Context, userID, name string) (User, error)
	MarkVerified(ctx context.Context, userID, image string) error
	SetOrganization(ctx context.Context, userID, organizationID string, role Role) error
	Summaries(ctx context.Context, userIDs []string) (map[string]Summary, error)
}
