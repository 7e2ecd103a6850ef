package auth

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"saas-backend/internal/shared/storage/db"
)

type PGSessionRepo struct {
	DB *sql.DB
}

func (r *PGSessionRepo) Create(ctx context.Context, session Session) error {
	const query = `
INSERT INTO sessions (id, token_hash, user_id, expires_at, ip_address, user_agent, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, now(), now())`
	_, err := r.DB.ExecContext(ctx, query,
		session.ID,
		session.TokenHash,
		session.UserID,
		session.ExpiresAt,
		nullableString(session.IPAddress),
		nullableString(session.UserAgent),
	)
	return err
}

func (r *PGSessionRepo) GetByTokenHash(ctx context.Context, tokenHash string) (Session, error) {
	const query = `
SELECT id, token_hash, user_id, expires_at, ip_address, user_agent, created_at
FROM sessions
WHERE token_hash = $1`
	var s Session
	var ip, ua sql.NullString
	err := r.DB.QueryRowContext(ctx, query, tokenHash).Scan(
		&s.ID, &s.TokenHash, &s.UserID, &s.ExpiresAt, &ip, &ua, &s.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Session{}, ErrSessionNotFound
		}
		return Session{}, err
	}
	s.IPAddress = ip.String
	s.UserAgent = ua.String
	return s, nil
}

func (r *PGSessionRepo) DeleteByTokenHash(ctx context.Context, tokenHash string) error {
	_, err := r.DB.ExecContext(ctx, `DELETE FROM sessions WHERE token_hash = $1`, tokenHash)
	return err
}

func (r *PGSessionRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type PGAccountRepo struct {
	DB *sql.DB
}

func (r *PGAccountRepo) Create(ctx context.Context, account Account) error {
	const query = `
INSERT INTO accounts (id, account_id, provider_id, user_id, password_hash, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, now(), now())`
	_, err := r.DB.ExecContext(ctx, query,
		account.ID,
		account.AccountID,
		account.ProviderID,
		account.UserID,
		nullableString(account.PasswordHash),
	)
	if db.IsUniqueViolation(err) {
		return ErrAccountExists
	}
	return err
}

func (r *PGAccountRepo) GetByProvider(ctx context.Context, providerID, accountID string) (Account, error) {
	const query = `
SELECT id, account_id, provider_id, user_id, password_hash, created_at
FROM accounts
WHERE provider_id = $1 AND account_id = $2`
	var a Account
	var hash sql.NullString
	err := r.DB.QueryRowContext(ctx, query, providerID, accountID).Scan(
		&a.ID, &a.AccountID, &a.ProviderID, &a.UserID, &hash, &a.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Account{}, ErrAccountNotFound
		}
		return Account{}, err
	}
	a.PasswordHash = hash.String
	return a, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}
