package users

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
)

func TestPGRepoCreateMapsUniqueViolation(t *testing.T) {
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer conn.Close()

	mock.ExpectExec("INSERT INTO users").
		WithArgs("user-1", "Ada", "ada@example.com", false, nil, nil, "member").
		WillReturnError(&pgconn.PgError{Code: "23505"})

	repo := &PGRepo{DB: conn}
	err = repo.Create(context.Background(), User{ID: "user-1", Name: "Ada", Email: "ada@example.com", Role: RoleMember})
	if !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPGRepoGetByEmail(t *testing.T) {
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer conn.Close()

	now := time.Date(2026, time.February, 3, 4, 5, 6, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "name", "email", "email_verified", "image", "organization_id", "role", "created_at", "updated_at"}).
		AddRow("user-1", "Ada", "ada@example.com", true, nil, "org-1", "owner", now, now)
	mock.ExpectQuery("SELECT (.+) FROM users WHERE email = lower\\(\\$1\\)").
		WithArgs("Ada@Example.com").
		WillReturnRows(rows)

	repo := &PGRepo{DB: conn}
	user, err := repo.GetByEmail(context.Background(), "Ada@Example.com")
	if err != nil {
		t.Fatalf("GetByEmail: %v", err)
	}
	if user.OrganizationID != "org-1" || user.Role != RoleOwner || user.Image != "" {
		t.Fatalf("unexpected user %+v", user)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPGRepoGetByIDNotFound(t *testing.T) {
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer conn.Close()

	mock.ExpectQuery("SELECT (.+) FROM users WHERE id").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	repo := &PGRepo{DB: conn}
	if _, err := repo.GetByID(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPGRepoSetOrganizationRequiresRow(t *testing.T) {
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer conn.Close()

	mock.ExpectExec("UPDATE users SET organization_id").
		WithArgs("ghost", "org-1", "owner").
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := &PGRepo{DB: conn}
	if err := repo.SetOrganization(context.Background(), "ghost", "org-1", RoleOwner); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
