package documents

import (
	"context"
	"sort"
	"sync"
	"time"

	"saas-backend/internal/analysis"
)

// MemoryRepo is an in-memory Repo for local runs and tests.
type MemoryRepo struct {
	mu   sync.RWMutex
	docs map[string]Document
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{docs: make(map[string]Document)}
}

func (r *MemoryRepo) Create(ctx context.Context, doc Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	if doc.UpdatedAt.IsZero() {
		doc.UpdatedAt = doc.CreatedAt
	}
	r.docs[doc.ID] = doc
	return nil
}

func (r *MemoryRepo) GetByID(ctx context.Context, organizationID, id string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	doc, ok := r.docs[id]
	if !ok || doc.OrganizationID != organizationID {
		return Document{}, ErrNotFound
	}
	return doc, nil
}

func (r *MemoryRepo) List(ctx context.Context, organizationID string, limit, offset int) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	out := make([]Document, 0)
	for _, doc := range r.docs {
		if doc.OrganizationID == organizationID {
			out = append(out, doc)
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
		return []Document{}, nil
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
	doc, ok := r.docs[id]
	if !ok || doc.OrganizationID != organizationID {
		return ErrNotFound
	}
	delete(r.docs, id)
	return nil
}

func (r *MemoryRepo) UpdateStatus(ctx context.Context, organizationID, id string, status analysis.Status) error {
	return r.update(ctx, organizationID, id, func(doc *Document) {
		doc.Status = status
	})
}

func (r *MemoryRepo) SaveAnalysis(ctx context.Context, organizationID, id string, out analysis.Output) error {
	return r.update(ctx, organizationID, id, func(doc *Document) {
		doc.Status = analysis.StatusCompleted
		doc.AIOutput = &out
	})
}

func (r *MemoryRepo) CountByStatus(ctx context.Context, organizationID string) (map[analysis.Status]int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	counts := make(map[analysis.Status]int)
	for _, doc := range r.docs {
		if doc.OrganizationID == organizationID {
			counts[doc.Status]++
		}
	}
	return counts, nil
}

func (r *MemoryRepo) update(ctx context.Context, organizationID, id string, fn func(*Document)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[id]
	if !ok || doc.OrganizationID != organizationID {
		return ErrNotFound
	}
	fn(&doc)
	doc.UpdatedAt = time.Now().UTC()
	r.docs[id] = doc
	return nil
}
