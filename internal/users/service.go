package users

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"
)

// ErrInvalidInput is returned for rejected profile updates.
var ErrInvalidInput = errors.New("invalid input")

const maxNameLength = 100

type Service struct {
	Repo Repo
}

func NewService(repo Repo) *Service {
	return &Service{Repo: repo}
}

func (s *Service) GetByID(ctx context.Context, userID string) (User, error) {
	if strings.TrimSpace(userID) == "" {
		return User{}, ErrNotFound
	}
	return s.Repo.GetByID(ctx, userID)
}

// UpdateName changes the display name. Email is not editable.
func (s *Service) UpdateName(ctx context.Context, userID, name string) (User, error) {
	name, err := NormalizeName(name)
	if err != nil {
		return User{}, err
	}
	return s.Repo.UpdateName(ctx, userID, name)
}

// Summaries resolves user IDs to summaries, dropping duplicates and blanks.
func (s *Service) Summaries(ctx context.Context, userIDs []string) (map[string]Summary, error) {
	seen := make(map[string]struct{}, len(userIDs))
	ids := make([]string, 0, len(userIDs))
	for _, id := range userIDs {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return map[string]Summary{}, nil
	}
	return s.Repo.Summaries(ctx, ids)
}

// NormalizeName trims name and enforces 1..100 characters.
func NormalizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > maxNameLength {
		return "", ErrInvalidInput
	}
	return name, nil
}

// NormalizeEmail lowercases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
