package users

import (
	"context"
	"database/sql"
	"errors"

	"saas-backend/internal/shared/storage/db"
)

type PGRepo struct {
	DB *sql.DB
}

const userColumns = `id, name, email, email_verified, image, organization_id, role, created_at, updated_at`

func (r *PGRepo) Create(ctx context.Context, user User) error {
	const query = `
INSERT INTO users (id, name, email, email_verified, image, organization_id, role, created_at, updated_at)
VALUES ($1, $2, lower($3), $4, $5, $6, $7, now(), now())`
	_, err := r.DB.ExecContext(ctx, query,
		user.ID,
		user.Name,
		user.Email,
		user.EmailVerified,
		nullableString(user.Image),
		nullableString(user.OrganizationID),
		string(user.Role),
	)
	if db.IsUniqueViolation(err) {
		return ErrEmailTaken
	}
	return err
}

func (r *PGRepo) GetByID(ctx context.Context, userID string) (User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.DB.QueryRowContext(ctx, query, userID))
}

func (r *PGRepo) GetByEmail(ctx context.Context, email string) (User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = lower($1)`
	return scanUser(r.DB.QueryRowContext(ctx, query, email))
}

func (r *PGRepo) UpdateName(ctx context.Context, userID, name string) (User, error) {
	query := `UPDATE users SET name = $2, updated_at = now() WHERE id = $1 RETURNING ` + userColumns
	return scanUser(r.DB.QueryRowContext(ctx, query, userID, name))
}

func (r *PGRepo) MarkVerified(ctx context.Context, userID, image string) error {
	const query = `
UPDATE users
SET email_verified = true, image = COALESCE(image, $2), updated_at = now()
WHERE id = $1`
	return execOne(ctx, r.DB, query, userID, nullableString(image))
}

func (r *PGRepo) SetOrganization(ctx context.Context, userID, organizationID string, role Role) error {
	const query = `UPDATE users SET organization_id = $2, role = $3, updated_at = now() WHERE id = $1`
	return execOne(ctx, r.DB, query, userID, nullableString(organizationID), string(role))
}

func (r *PGRepo) Summaries(ctx context.Context, userIDs []string) (map[string]Summary, error) {
	out := make(map[string]Summary, len(userIDs))
	if len(userIDs) == 0 {
		return out, nil
	}
	rows, err := r.DB.QueryContext(ctx, `SELECT id, name, email, image FROM users WHERE id = ANY($1)`, userIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var s Summary
		var image sql.NullString
		if err := rows.Scan(&s.ID, &s.Name, &s.Email, &image); err != nil {
			return nil, err
		}
		s.Image = image.String
		out[s.ID] = s
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (User, error) {
	var user User
	var image, orgID sql.NullString
	var role string
	err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.EmailVerified,
		&image,
		&orgID,
		&role,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	user.Image = image.String
	user.OrganizationID = orgID.String
	user.Role = Role(role)
	return user, nil
}

func execOne(ctx context.Context, conn *sql.DB, query string, args ...any) error {
	res, err := conn.ExecContext(ctx, query, args...)
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

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}
