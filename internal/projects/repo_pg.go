package projects

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"saas-backend/internal/analysis"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

const projectColumns = `id, organization_id, created_by_id, title, description, content, status, ai_output, created_at, updated_at`

func (r *PGRepo) Create(ctx context.Context, p Project) error {
	status := p.Status
	if status == "" {
		status = analysis.StatusPending
	}
	const query = `
INSERT INTO projects (id, organization_id, created_by_id, title, description, content, status, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)`
	_, err := r.DB.ExecContext(ctx, query,
		p.ID,
		p.OrganizationID,
		nullableString(p.CreatedByID),
		p.Title,
		nullableString(p.Description),
		nullableString(p.Content),
		string(status),
		p.CreatedAt,
	)
	return err
}

func (r *PGRepo) GetByID(ctx context.Context, organizationID, id string) (Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE id = $1 AND organization_id = $2`
	p, err := scanProject(r.DB.QueryRowContext(ctx, query, id, organizationID))
	if errors.Is(err, sql.ErrNoRows) {
		return Project{}, ErrNotFound
	}
	return p, err
}

func (r *PGRepo) List(ctx context.Context, organizationID string, limit, offset int) ([]Project, error) {
	query := `SELECT ` + projectColumns + `
FROM projects
WHERE organization_id = $1
ORDER BY created_at DESC, id DESC
LIMIT $2 OFFSET $3`
	rows, err := r.DB.QueryContext(ctx, query, organizationID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Project, 0)
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *PGRepo) Delete(ctx context.Context, organizationID, id string) error {
	return r.execOne(ctx, `DELETE FROM projects WHERE id = $1 AND organization_id = $2`, id, organizationID)
}

func (r *PGRepo) UpdateStatus(ctx context.Context, organizationID, id string, status analysis.Status) error {
	const query = `UPDATE projects SET status = $3, updated_at = now() WHERE id = $1 AND organization_id = $2`
	return r.execOne(ctx, query, id, organizationID, string(status))
}

func (r *PGRepo) SaveAnalysis(ctx context.Context, organizationID, id string, out analysis.Output) error {
	raw, err := json.Marshal(out)
	if err != nil {
		return fmt.Errorf("encode ai output: %w", err)
	}
	const query = `
UPDATE projects
SET status = $3, ai_output = $4, updated_at = now()
WHERE id = $1 AND organization_id = $2`
	return r.execOne(ctx, query, id, organizationID, string(analysis.StatusCompleted), string(raw))
}

func (r *PGRepo) CountByStatus(ctx context.Context, organizationID string) (map[analysis.Status]int, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT status, count(*) FROM projects WHERE organization_id = $1 GROUP BY status`, organizationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	counts := make(map[analysis.Status]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[analysis.Status(status)] = n
	}
	return counts, rows.Err()
}

func (r *PGRepo) execOne(ctx context.Context, query string, args ...any) error {
	res, err := r.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProject(row rowScanner) (Project, error) {
	var p Project
	var createdBy, description, content sql.NullString
	var status string
	var aiOutput []byte
	err := row.Scan(
		&p.ID,
		&p.OrganizationID,
		&createdBy,
		&p.Title,
		&description,
		&content,
		&status,
		&aiOutput,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return Project{}, err
	}
	p.CreatedByID = createdBy.String
	p.Description = description.String
	p.Content = content.String
	p.Status = analysis.Status(status)
	if len(aiOutput) > 0 {
		var out analysis.Output
		if err := json.Unmarshal(aiOutput, &out); err != nil {
			return Project{}, fmt.Errorf("decode ai output: %w", err)
		}
		p.AIOutput = &out
	}
	return p, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}
