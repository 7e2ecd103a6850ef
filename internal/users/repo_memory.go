package users

import (
	"context"
	"strings"
	"sync"
	"time"
)

type MemoryRepo struct {
	mu    sync.RWMutex
	users map[string]User
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{users: make(map[string]User)}
}

func (r *MemoryRepo) Create(ctx context.Context, user User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if strings.EqualFold(existing.Email, user.Email) {
			return ErrEmailTaken
		}
	}
	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	r.users[user.ID] = user
	return nil
}

func (r *MemoryRepo) GetByID(ctx context.Context, userID string) (User, error) {
	if err := ctx.Err(); err != nil {
		return User{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.users[userID]
	if !ok {
		return User{}, ErrNotFound
	}
	return user, nil
}

func (r *MemoryRepo) GetByEmail(ctx context.Context, email string) (User, error) {
	if err := ctx.Err(); err != nil {
		return User{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, user := range r.users {
		if strings.EqualFold(user.Email, email) {
			return user, nil
		}
	}
	return User{}, ErrNotFound
}

func (r *MemoryRepo) UpdateName(ctx context.Context, userID, name string) (User, error) {
	return r.update(ctx, userID, func(u *User) { u.Name = name })
}

func (r *MemoryRepo) MarkVerified(ctx context.Context, userID, image string) error {
	_, err := r.update(ctx, userID, func(u *User) {
		u.EmailVerified = true
		if u.Image == "" {
			u.Image = image
		}
	})
	return err
}

func (r *MemoryRepo) SetOrganization(ctx context.Context, userID, organizationID string, role Role) error {
	_, err := r.update(ctx, userID, func(u *User) {
		u.OrganizationID = organizationID
		u.Role = role
	})
	return err
}

func (r *MemoryRepo) Summaries(ctx context.Context, userIDs []string) (map[string]Summary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]Summary, len(userIDs))
	for _, id := range userIDs {
		if user, ok := r.users[id]; ok {
			out[id] = user.Summary()
		}
	}
	return out, nil
}

func (r *MemoryRepo) update(ctx context.Context, userID string, fn func(*User)) (User, error) {
	if err := ctx.Err(); err != nil {
		return User{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[userID]
	if !ok {
		return User{}, ErrNotFound
	}
	fn(&user)
	user.UpdatedAt = time.Now().UTC()
	r.users[userID] = user
	return user, nil
}
