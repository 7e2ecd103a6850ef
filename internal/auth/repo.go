package auth

import (
	"context"
	"errors"
	"time"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrAccountNotFound = errors.New("account not found")
	ErrAccountExists   = errors.New("account already linked")
)

type SessionRepo interface {
	Create(ctx context.Context, session Session) error
	GetByTokenHash(ctx context.Context, tokenHash string) (Session, error)
	DeleteByTokenHash(ctx context.Context, tokenHash string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type AccountRepo interface {
	Create(ctx context.Context, account Account) error
	GetByProvider(ctx context.Context, providerID, accountID string) (Account, error)
}
