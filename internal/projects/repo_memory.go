package projects

import (
	"context"
	"sort"
	"sync"
	"time"

	"saas-backend/internal/analysis"
)

type MemoryRepo struct {
	mu       sync.RWMutex
	projects map[string]Project
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{projects: make(map[string]Project)}
}

func (r *MemoryRepo) Create(ctx context.Context, p Project) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = p.CreatedAt
	}
	r.projects[p.ID] = p
	return nil
}

func (r *MemoryRepo) GetByID(ctx context.Context, organizationID, id string) (Project, error) {
	if err := ctx.Err(); err != nil {
		return Project{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.projects[id]
	if !ok || p.OrganizationID != organizationID {
		return Project{}, ErrNotFound
	}
	return p, nil
}

func (r *MemoryRepo) List(ctx context.Context, organizationID string, limit, offset int) ([]Project, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	out := make([]Project, 0)
	for _, p := range r.projects {
		if p.OrganizationID == organizationID {
			out = append(out, p)
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if offset >= len(out) {
		return []Project{}, nil
	}
	out = out[offset:]
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MemoryRepo) Delete(ctx context.Context, organizationID, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.projects[id]
	if !ok || p.OrganizationID != organizationID {
		return ErrNotFound
	}
	delete(r.projects, id)
	return nil
}

func (r *MemoryRepo) UpdateStatus(ctx context.Context, organizationID, id string, status analysis.Status) error {
	return r.update(ctx, organizationID, id, func(p *Project) {
		p.Status = status
	})
}

func (r *MemoryRepo) SaveAnalysis(ctx context.Context, organizationID, id string, out analysis.Output) error {
	return r.update(ctx, organizationID, id, func(p *Project) {
		p.Status = analysis.StatusCompleted
		p.AIOutput = &out
	})
}

func (r *MemoryRepo) CountByStatus(ctx context.Context, organizationID string) (map[analysis.Status]int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	counts := make(map[analysis.Status]int)
	for _, p := range r.projects {
		if p.OrganizationID == organizationID {
			counts[p.Status]++
		}
	}
	return counts, nil
}

func (r *MemoryRepo) update(ctx context.Context, organizationID, id string, fn func(*Project)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.projects[id]
	if !ok || p.OrganizationID != organizationID {
		return ErrNotFound
	}
	fn(&p)
	p.UpdatedAt = time.Now().UTC()
	r.projects[id] = p
	return nil
}
