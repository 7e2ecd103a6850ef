package activity

import (
	"context"
	"time"

	"github.com/google/uuid"

	"saas-backend/internal/shared/telemetry"
	"saas-backend/internal/users"
)

const (
	DefaultLimit = 10
	MaxLimit     = 100
)

// UserDirectory resolves user IDs to summaries.
type UserDirectory interface {
	Summaries(ctx context.Context, userIDs []string) (map[string]users.Summary, error)
}

type Service struct {
	Repo  Repo
	Users UserDirectory
	Now   func() time.Time
}

func NewService(repo Repo, dir UserDirectory) *Service {
	return &Service{Repo: repo, Users: dir, Now: time.Now}
}

// Record appends an entry. Failures are logged and never surface to the caller,
// since the mutation it describes has already been committed.
func (s *Service) Record(ctx context.Context, entry Entry) {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = s.now().UTC()
	}
	if err := s.Repo.Append(ctx, entry); err != nil {
		telemetry.Error("activity.append_failed", map[string]any{
			"request_id":      telemetry.RequestIDFrom(ctx),
			"organization_id": entry.OrganizationID,
			"action":          entry.Action,
			"resource_id":     entry.ResourceID,
			"error":           err,
		})
	}
}

// Recent returns the newest entries of an organization with their user attached.
func (s *Service) Recent(ctx context.Context, organizationID string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	entries, err := s.Repo.Recent(ctx, organizationID, limit)
	if err != nil {
		return nil, err
	}
	if s.Users == nil || len(entries) == 0 {
		return entries, nil
	}
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.UserID)
	}
	summaries, err := s.Users.Summaries(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range entries {
		if u, ok := summaries[entries[i].UserID]; ok {
			entries[i].User = &u
		}
	}
	return entries, nil
}

func (s *Service) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}
