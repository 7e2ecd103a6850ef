package documents

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

const documentColumns = `id, organization_id, created_by_id, title, description, content, status, ai_output, metadata, created_at, updated_at`

func (r *PGRepo) Create(ctx context.Context, doc Document) error {
	metadata, err := encodeJSON(doc.Metadata)
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	status := doc.Status
	if status == "" {
		status = analysis.StatusPending
	}
	const query = `
INSERT INTO documents (id, organization_id, created_by_id, title, description, content, status, metadata, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)`
	_, err = r.DB.ExecContext(ctx, query,
		doc.ID,
		doc.OrganizationID,
		nullableString(doc.CreatedByID),
		doc.Title,
		nullableString(doc.Description),
		nullableString(doc.Content),
		string(status),
		metadata,
		doc.CreatedAt,
	)
	return err
}

func (r *PGRepo) GetByID(ctx context.Context, organizationID, id string) (Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE id = $1 AND organization_id = $2`
	doc, err := scanDocument(r.DB.QueryRowContext(ctx, query, id, organizationID))
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}, ErrNotFound
	}
	return doc, err
}

func (r *PGRepo) List(ctx context.Context, organizationID string, limit, offset int) ([]Document, error) {
	query := `SELECT ` + documentColumns + `
FROM documents
WHERE organization_id = $1
ORDER BY created_at DESC, id DESC
LIMIT $2 OFFSET $3`
	rows, err := r.DB.QueryContext(ctx, query, organizationID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Document, 0)
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}

func (r *PGRepo) Delete(ctx context.Context, organizationID, id string) error {
	return r.execOne(ctx, `DELETE FROM documents WHERE id = $1 AND organization_id = $2`, id, organizationID)
}

func (r *PGRepo) UpdateStatus(ctx context.Context, organizationID, id string, status analysis.Status) error {
	const query = `UPDATE documents SET status = $3, updated_at = now() WHERE id = $1 AND organization_id = $2`
	return r.execOne(ctx, query, id, organizationID, string(status))
}

func (r *PGRepo) SaveAnalysis(ctx context.Context, organizationID, id string, out analysis.Output) error {
	raw, err := json.Marshal(out)
	if err != nil {
		return fmt.Errorf("encode ai output: %w", err)
	}
	const query = `
UPDATE documents
SET status = $3, ai_output = $4, updated_at = now()
WHERE id = $1 AND organization_id = $2`
	return r.execOne(ctx, query, id, organizationID, string(analysis.StatusCompleted), string(raw))
}

func (r *PGRepo) CountByStatus(ctx context.Context, organizationID string) (map[analysis.Status]int, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT status, count(*) FROM documents WHERE organization_id = $1 GROUP BY status`, organizationID)
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

func scanDocument(row rowScanner) (Document, error) {
	var doc Document
	var createdBy, description, content sql.NullString
	var status string
	var aiOutput, metadata []byte
	err := row.Scan(
		&doc.ID,
		&doc.OrganizationID,
		&createdBy,
		&doc.Title,
		&description,
		&content,
		&status,
		&aiOutput,
		&metadata,
		&doc.CreatedAt,
		&doc.UpdatedAt,
	)
	if err != nil {
		return Document{}, err
	}
	doc.CreatedByID = createdBy.String
	doc.Description = description.String
	doc.Content = content.String
	doc.Status = analysis.Status(status)
	if len(aiOutput) > 0 {
		var out analysis.Output
		if err := json.Unmarshal(aiOutput, &out); err != nil {
			return Document{}, fmt.Errorf("decode ai output: %w", err)
		}
		doc.AIOutput = &out
	}
	if len(metadata) > 0 {
		var meta Metadata
		if err := json.Unmarshal(metadata, &meta); err != nil {
			return Document{}, fmt.Errorf("decode metadata: %w", err)
		}
		doc.Metadata = &meta
	}
	return doc, nil
}

func encodeJSON(v *Metadata) (any, error) {
	if v == nil {
		return nil, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}
