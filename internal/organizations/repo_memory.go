package organizations

import (
	"context"
	"sync"
	"time"
)

type MemoryRepo struct {
	mu   sync.RWMutex
	orgs map[string]Organization
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{orgs: make(map[string]Organization)}
}

func (r *MemoryRepo) Create(ctx context.Context, org Organization) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.orgs {
		if existing.Slug == org.Slug {
			return ErrSlugTaken
		}
	}
	now := time.Now().UTC()
	if org.CreatedAt.IsZero() {
		org.CreatedAt = now
	}
	org.UpdatedAt = now
	r.orgs[org.ID] = org
	return nil
}

func (r *MemoryRepo) GetByID(ctx context.Context, id string) (Organization, error) {
	if err := ctx.Err(); err != nil {
		return Organization{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	org, ok := r.orgs[id]
	if !ok {
		return Organization{}, ErrNotFound
	}
	return org, nil
}

func (r *MemoryRepo) GetBySlug(ctx context.Context, slug string) (Organization, error) {
	if err := ctx.Err(); err != nil {
		return Organization{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, org := range r.orgs {
		if org.Slug == slug {
			return org, nil
		}
	}
	return Organization{}, ErrNotFound
}

func (r *MemoryRepo) Update(ctx context.Context, id, name string, settings Settings) (Organization, error) {
	if err := ctx.Err(); err != nil {
		return Organization{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	org, ok := r.orgs[id]
	if !ok {
		return Organization{}, ErrNotFound
	}
	org.Name = name
	org.Settings = settings
	org.UpdatedAt = time.Now().UTC()
	r.orgs[id] = org
	return org, nil
}
