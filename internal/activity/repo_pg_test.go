package activity

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestPGRepoAppendEncodesMetadata(t *testing.T) {
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer conn.Close()

	at := time.Date(2026, time.June, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectExec("INSERT INTO activity_logs").
		WithArgs("a1", "org-1", "u1", ActionDocumentAnalyzed, ResourceDocument, "d1", `{"analysisType":"summary","model":"m"}`, at).
		WillReturnResult(sqlmock.NewResult(1, 1))

	repo := &PGRepo{DB: conn}
	err = repo.Append(context.Background(), Entry{
		ID:             "a1",
		OrganizationID: "org-1",
		UserID:         "u1",
		Action:         ActionDocumentAnalyzed,
		ResourceType:   ResourceDocument,
		ResourceID:     "d1",
		Metadata:       map[string]any{"analysisType": "summary", "model": "m"},
		CreatedAt:      at,
	})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPGRepoRecentFiltersByOrganization(t *testing.T) {
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer conn.Close()

	at := time.Date(2026, time.June, 1, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "organization_id", "user_id", "action", "resource_type", "resource_id", "metadata", "created_at"}).
		AddRow("a1", "org-1", nil, ActionSettingsUpdated, ResourceOrganization, "org-1", []byte(`{"name":"Acme"}`), at)
	mock.ExpectQuery("FROM activity_logs\\s+WHERE organization_id = \\$1").
		WithArgs("org-1", 10).
		WillReturnRows(rows)

	repo := &PGRepo{DB: conn}
	entries, err := repo.Recent(context.Background(), "org-1", 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(entries) != 1 || entries[0].Metadata["name"] != "Acme" || entries[0].UserID != "" {
		t.Fatalf("unexpected entries %+v", entries)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
