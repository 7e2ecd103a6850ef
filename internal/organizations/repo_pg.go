package organizations

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"saas-backend/internal/shared/storage/db"
)

type PGRepo struct {
	DB *sql.DB
}

const orgColumns = `id, name, slug, settings, created_at, updated_at`

func (r *PGRepo) Create(ctx context.Context, org Organization) error {
	settings, err := json.Marshal(org.Settings)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	const query = `
INSERT INTO organizations (id, name, slug, settings, created_at, updated_at)
VALUES ($1, $2, $3, $4, now(), now())`
	_, err = r.DB.ExecContext(ctx, query, org.ID, org.Name, org.Slug, string(settings))
	if db.IsUniqueViolation(err) {
		return ErrSlugTaken
	}
	return err
}

func (r *PGRepo) GetByID(ctx context.Context, id string) (Organization, error) {
	query := `SELECT ` + orgColumns + ` FROM organizations WHERE id = $1`
	return scanOrganization(r.DB.QueryRowContext(ctx, query, id))
}

func (r *PGRepo) GetBySlug(ctx context.Context, slug string) (Organization, error) {
	query := `SELECT ` + orgColumns + ` FROM organizations WHERE slug = $1`
	return scanOrganization(r.DB.QueryRowContext(ctx, query, slug))
}

func (r *PGRepo) Update(ctx context.Context, id, name string, settings Settings) (Organization, error) {
	raw, err := json.Marshal(settings)
	if err != nil {
		return Organization{}, fmt.Errorf("encode settings: %w", err)
	}
	query := `UPDATE organizations SET name = $2, settings = $3, updated_at = now() WHERE id = $1 RETURNING ` + orgColumns
	return scanOrganization(r.DB.QueryRowContext(ctx, query, id, name, string(raw)))
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrganization(row rowScanner) (Organization, error) {
	var org Organization
	var settings []byte
	if err := row.Scan(&org.ID, &org.Name, &org.Slug, &settings, &org.CreatedAt, &org.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Organization{}, ErrNotFound
		}
		return Organization{}, err
	}
	if len(settings) > 0 {
		if err := json.Unmarshal(settings, &org.Settings); err != nil {
			return Organization{}, fmt.Errorf("decode settings: %w", err)
		}
	}
	return org, nil
}
