package activity

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

type PGRepo struct {
	DB *sql.DB
}

func (r *PGRepo) Append(ctx context.Context, entry Entry) error {
	metadata, err := marshalMetadata(entry.Metadata)
	if err != nil {
		return err
	}
	const query = `
INSERT INTO activity_logs (id, organization_id, user_id, action, resource_type, resource_id, metadata, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err = r.DB.ExecContext(ctx, query,
		entry.ID,
		entry.OrganizationID,
		nullableString(entry.UserID),
		entry.Action,
		entry.ResourceType,
		nullableString(entry.ResourceID),
		metadata,
		entry.CreatedAt,
	)
	return err
}

func (r *PGRepo) Recent(ctx context.Context, organizationID string, limit int) ([]Entry, error) {
	const query = `
SELECT id, organization_id, user_id, action, resource_type, resource_id, metadata, created_at
FROM activity_logs
WHERE organization_id = $1
ORDER BY created_at DESC
LIMIT $2`
	rows, err := r.DB.QueryContext(ctx, query, organizationID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var userID, resourceID sql.NullString
		var metadata []byte
		if err := rows.Scan(&e.ID, &e.OrganizationID, &userID, &e.Action, &e.ResourceType, &resourceID, &metadata, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.UserID = userID.String
		e.ResourceID = resourceID.String
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &e.Metadata); err != nil {
				return nil, fmt.Errorf("decode activity metadata: %w", err)
			}
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func marshalMetadata(m map[string]any) (any, error) {
	if len(m) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode activity metadata: %w", err)
	}
	return string(data), nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}
