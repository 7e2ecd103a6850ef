package auth

import (
	"context"
	"sync"
	"time"
)

type MemorySessionRepo struct {
	mu       sync.RWMutex
	sessions map[string]Session
}

func NewMemorySessionRepo() *MemorySessionRepo {
	return &MemorySessionRepo{sessions: make(map[string]Session)}
}

func (r *MemorySessionRepo) Create(ctx context.Context, session Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now().UTC()
	}
	r.sessions[session.TokenHash] = session
	return nil
}

func (r *MemorySessionRepo) GetByTokenHash(ctx context.Context, tokenHash string) (Session, error) {
	if err := ctx.Err(); err != nil {
		return Session{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[tokenHash]
	if !ok {
		return Session{}, ErrSessionNotFound
	}
	return s, nil
}

func (r *MemorySessionRepo) DeleteByTokenHash(ctx context.Context, tokenHash string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, tokenHash)
	return nil
}

func (r *MemorySessionRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for k, s := range r.sessions {
		if !s.ExpiresAt.After(now) {
			delete(r.sessions, k)
			n++
		}
	}
	return n, nil
}

type MemoryAccountRepo struct {
	mu       sync.RWMutex
	accounts map[string]Account
}

func NewMemoryAccountRepo() *MemoryAccountRepo {
	return &MemoryAccountRepo{accounts: make(map[string]Account)}
}

func (r *MemoryAccountRepo) Create(ctx context.Context, account Account) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	key := account.ProviderID + "|" + account.AccountID
	if _, ok := r.accounts[key]; ok {
		return ErrAccountExists
	}
	if account.CreatedAt.IsZero() {
		account.CreatedAt = time.Now().UTC()
	}
	r.accounts[key] = account
	return nil
}

func (r *MemoryAccountRepo) GetByProvider(ctx context.Context, providerID, accountID string) (Account, error) {
	if err := ctx.Err(); err != nil {
		return Account{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.accounts[providerID+"|"+accountID]
	if !ok {
		return Account{}, ErrAccountNotFound
	}
	return a, nil
}
