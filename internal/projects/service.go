package projects

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"saas-backend/internal/activity"
	"saas-backend/internal/analysis"
	"saas-backend/internal/users"
)

const (
	MaxTitleLength       = 255
	MaxDescriptionLength = 5000
	MaxContentLength     = 100_000
	DefaultListLimit     = 20
	MaxListLimit         = 100
)

type Analyzer interface {
	Start(ctx context.Context, req analysis.Request) error
}

type UserDirectory interface {
	Summaries(ctx context.Context, userIDs []string) (map[string]users.Summary, error)
}

type ActivityRecorder interface {
	Record(ctx context.Context, entry activity.Entry)
}

// Service contains business logic for projects.
type Service struct {
	Repo     Repo
	Users    UserDirectory
	Activity ActivityRecorder
	Analyzer Analyzer
	Now      func() time.Time
}

func NewService(repo Repo, dir UserDirectory, recorder ActivityRecorder, analyzer Analyzer) *Service {
	return &Service{Repo: repo, Users: dir, Activity: recorder, Analyzer: analyzer, Now: time.Now}
}

type CreateInput struct {
	OrganizationID string
	UserID         string
	Title          string
	Description    string
	Content        string
}

func (s *Service) Create(ctx context.Context, in CreateInput) (Project, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" || utf8.RuneCountInString(title) > MaxTitleLength {
		return Project{}, fmt.Errorf("%w: title must be 1-%d characters", ErrInvalidInput, MaxTitleLength)
	}
	if utf8.RuneCountInString(in.Description) > MaxDescriptionLength {
		return Project{}, fmt.Errorf("%w: description must be at most %d characters", ErrInvalidInput, MaxDescriptionLength)
	}
	if utf8.RuneCountInString(in.Content) > MaxContentLength {
		return Project{}, fmt.Errorf("%w: content must be at most %d characters", ErrInvalidInput, MaxContentLength)
	}

	p := Project{
		ID:             uuid.NewString(),
		OrganizationID: in.OrganizationID,
		CreatedByID:    in.UserID,
		Title:          title,
		Description:    strings.TrimSpace(in.Description),
		Content:        in.Content,
		Status:         analysis.StatusPending,
		CreatedAt:      s.now().UTC(),
	}
	p.UpdatedAt = p.CreatedAt
	if err := s.Repo.Create(ctx, p); err != nil {
		return Project{}, err
	}
	s.record(ctx, p, in.UserID, activity.ActionProjectCreated, map[string]any{"title": p.Title})
	return p, nil
}

func (s *Service) Get(ctx context.Context, organizationID, id string) (Project, error) {
	p, err := s.Repo.GetByID(ctx, organizationID, id)
	if err != nil {
		return Project{}, err
	}
	list := []Project{p}
	if err := s.attachCreators(ctx, list); err != nil {
		return Project{}, err
	}
	return list[0], nil
}

// List returns projects newest first.
func (s *Service) List(ctx context.Context, organizationID string, limit, offset int) ([]Project, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	limit = min(limit, MaxListLimit)
	offset = max(offset, 0)
	list, err := s.Repo.List(ctx, organizationID, limit, offset)
	if err != nil {
		return nil, err
	}
	if err := s.attachCreators(ctx, list); err != nil {
		return nil, err
	}
	return list, nil
}

func (s *Service) Delete(ctx context.Context, organizationID, userID, id string) error {
	p, err := s.Repo.GetByID(ctx, organizationID, id)
	if err != nil {
		return err
	}
	if err := s.Repo.Delete(ctx, organizationID, id); err != nil {
		return err
	}
	s.record(ctx, p, userID, activity.ActionProjectDeleted, map[string]any{"title": p.Title})
	return nil
}

func (s *Service) UpdateStatus(ctx context.Context, organizationID, id string, status analysis.Status) (Project, error) {
	if !status.Valid() {
		return Project{}, fmt.Errorf("%w: unknown status", ErrInvalidInput)
	}
	if err := s.Repo.UpdateStatus(ctx, organizationID, id, status); err != nil {
		return Project{}, err
	}
	return s.Get(ctx, organizationID, id)
}

func (s *Service) StartAnalysis(ctx context.Context, organizationID, userID, id string, analysisType analysis.Type) error {
	if s.Analyzer == nil {
		return errors.New("analyzer not configured")
	}
	return s.Analyzer.Start(ctx, analysis.Request{
		ResourceType:   analysis.ResourceProject,
		ResourceID:     id,
		OrganizationID: organizationID,
		UserID:         userID,
		Type:           analysisType,
	})
}

func (s *Service) CountByStatus(ctx context.Context, organizationID string) (map[analysis.Status]int, error) {
	return s.Repo.CountByStatus(ctx, organizationID)
}

func (s *Service) attachCreators(ctx context.Context, list []Project) error {
	if s.Users == nil || len(list) == 0 {
		return nil
	}
	ids := make([]string, 0, len(list))
	for _, p := range list {
		ids = append(ids, p.CreatedByID)
	}
	summaries, err := s.Users.Summaries(ctx, ids)
	if err != nil {
		return err
	}
	for i := range list {
		if u, ok := summaries[list[i].CreatedByID]; ok {
			list[i].CreatedBy = &u
		}
	}
	return nil
}

func (s *Service) record(ctx context.Context, p Project, userID, action string, metadata map[string]any) {
	if s.Activity == nil {
		return
	}
	s.Activity.Record(ctx, activity.Entry{
		OrganizationID: p.OrganizationID,
		UserID:         userID,
		Action:         action,
		ResourceType:   activity.ResourceProject,
		ResourceID:     p.ID,
		Metadata:       metadata,
	})
}

func (s *Service) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}
