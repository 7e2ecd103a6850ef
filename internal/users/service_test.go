package users

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func seedUser(t *testing.T, repo *MemoryRepo, user User) {
	t.Helper()
	if err := repo.Create(context.Background(), user); err != nil {
		t.Fatalf("seed user: %v", err)
	}
}

func TestUpdateNameValidatesLength(t *testing.T) {
	repo := NewMemoryRepo()
	seedUser(t, repo, User{ID: "u1", Name: "Old", Email: "a@example.com", Role: RoleMember})
	svc := NewService(repo)

	if _, err := svc.UpdateName(context.Background(), "u1", "   "); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for blank, got %v", err)
	}
	if _, err := svc.UpdateName(context.Background(), "u1", strings.Repeat("x", 101)); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for long name, got %v", err)
	}
	user, err := svc.UpdateName(context.Background(), "u1", "  New Name ")
	if err != nil {
		t.Fatalf("UpdateName: %v", err)
	}
	if user.Name != "New Name" || user.Email != "a@example.com" {
		t.Fatalf("unexpected user %+v", user)
	}
}

func TestMemoryRepoRejectsDuplicateEmail(t *testing.T) {
	repo := NewMemoryRepo()
	seedUser(t, repo, User{ID: "u1", Email: "a@example.com"})
	if err := repo.Create(context.Background(), User{ID: "u2", Email: "A@example.com"}); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestSummariesSkipsBlanksAndUnknown(t *testing.T) {
	repo := NewMemoryRepo()
	seedUser(t, repo, User{ID: "u1", Name: "Ada", Email: "a@example.com"})
	svc := NewService(repo)

	got, err := svc.Summaries(context.Background(), []string{"u1", "", "u1", "ghost"})
	if err != nil {
		t.Fatalf("Summaries: %v", err)
	}
	if len(got) != 1 || got["u1"].Name != "Ada" {
		t.Fatalf("unexpected summaries %+v", got)
	}
}
