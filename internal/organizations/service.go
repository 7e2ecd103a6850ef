package organizations

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"saas-backend/internal/activity"
	"saas-backend/internal/shared/util"
	"saas-backend/internal/users"
)

var (
	ErrInvalidInput   = errors.New("invalid input")
	ErrAlreadyMember  = errors.New("user already belongs to an organization")
	ErrInvalidModel   = errors.New("unsupported ai model")
	ErrInvalidWebhook = errors.New("invalid webhook url")
)

const (
	maxNameLength   = 100
	maxSlugAttempts = 5
	slugSuffixLen   = 6
)

// ActivityRecorder appends audit rows.
type ActivityRecorder interface {
	Record(ctx context.Context, entry activity.Entry)
}

type Service struct {
	Repo     Repo
	Users    users.Repo
	Activity ActivityRecorder
	Now      func() time.Time
}

func NewService(repo Repo, userRepo users.Repo, recorder ActivityRecorder) *Service {
	return &Service{Repo: repo, Users: userRepo, Activity: recorder, Now: time.Now}
}

// Create makes a new organization owned by userID. The caller must not belong to one yet.
func (s *Service) Create(ctx context.Context, userID, name string) (Organization, error) {
	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > maxNameLength {
		return Organization{}, ErrInvalidInput
	}
	user, err := s.Users.GetByID(ctx, userID)
	if err != nil {
		return Organization{}, err
	}
	if user.OrganizationID != "" {
		return Organization{}, ErrAlreadyMember
	}

	base := util.Slugify(name)
	if base == "" {
		base = "org"
	}
	org := Organization{ID: uuid.NewString(), Name: name, CreatedAt: s.now().UTC()}
	for attempt := 0; ; attempt++ {
		org.Slug = base
		if attempt > 0 {
			org.Slug = base + "-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:slugSuffixLen]
		}
		err = s.Repo.Create(ctx, org)
		if err == nil {
			break
		}
		if !errors.Is(err, ErrSlugTaken) || attempt+1 >= maxSlugAttempts {
			return Organization{}, err
		}
	}

	if err := s.Users.SetOrganization(ctx, userID, org.ID, users.RoleOwner); err != nil {
		return Organization{}, fmt.Errorf("assign owner: %w", err)
	}
	s.record(ctx, activity.Entry{
		OrganizationID: org.ID,
		UserID:         userID,
		Action:         activity.ActionOrganizationCreated,
		ResourceType:   activity.ResourceOrganization,
		ResourceID:     org.ID,
		Metadata:       map[string]any{"name": org.Name, "slug": org.Slug},
	})
	return s.Repo.GetByID(ctx, org.ID)
}

func (s *Service) Get(ctx context.Context, id string) (Organization, error) {
	if strings.TrimSpace(id) == "" {
		return Organization{}, ErrNotFound
	}
	return s.Repo.GetByID(ctx, id)
}

func (s *Service) GetBySlug(ctx context.Context, slug string) (Organization, error) {
	return s.Repo.GetBySlug(ctx, strings.ToLower(strings.TrimSpace(slug)))
}

// Settings returns the settings of an organization.
func (s *Service) Settings(ctx context.Context, id string) (Settings, error) {
	org, err := s.Get(ctx, id)
	if err != nil {
		return Settings{}, err
	}
	return org.Settings, nil
}

// OrganizationInfo serves the organization summary embedded in /me.
func (s *Service) OrganizationInfo(ctx context.Context, id string) (users.OrganizationInfo, error) {
	org, err := s.Get(ctx, id)
	if err != nil {
		return users.OrganizationInfo{}, err
	}
	return users.OrganizationInfo{ID: org.ID, Name: org.Name, Slug: org.Slug}, nil
}

type UpdateInput struct {
	Name       string
	AIModel    string
	WebhookURL string
	Features   Features
}

// UpdateSettings renames the organization and replaces its settings.
func (s *Service) UpdateSettings(ctx context.Context, id, userID string, in UpdateInput) (Organization, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" || utf8.RuneCountInString(name) > maxNameLength {
		return Organization{}, ErrInvalidInput
	}
	if in.AIModel != "" && !AllowedModel(in.AIModel) {
		return Organization{}, ErrInvalidModel
	}
	webhook := strings.TrimSpace(in.WebhookURL)
	if webhook != "" && !validWebhook(webhook) {
		return Organization{}, ErrInvalidWebhook
	}

	org, err := s.Repo.Update(ctx, id, name, Settings{
		AIModel:    in.AIModel,
		WebhookURL: webhook,
		Features:   in.Features,
	})
	if err != nil {
		return Organization{}, err
	}
	s.record(ctx, activity.Entry{
		OrganizationID: org.ID,
		UserID:         userID,
		Action:         activity.ActionSettingsUpdated,
		ResourceType:   activity.ResourceOrganization,
		ResourceID:     org.ID,
		Metadata:       map[string]any{"name": org.Name, "aiModel": org.Settings.AIModel},
	})
	return org, nil
}

func validWebhook(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return false
	}
	return u.Scheme == "https" || u.Scheme == "http"
}

func (s *Service) record(ctx context.Context, entry activity.Entry) {
	if s.Activity == nil {
		return
	}
	s.Activity.Record(ctx, entry)
}

func (s *Service) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}
