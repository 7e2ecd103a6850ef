package activity

import "context"

type Repo interface {
	Append(ctx context.Context, entry Entry) error
	Recent(ctx context.Context, organizationID string, limit int) ([]Entry, error)
}
