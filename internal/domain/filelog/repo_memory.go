package filelog

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepo keeps the log for the lifetime of the process.
type MemoryRepo struct {
	mu      sync.RWMutex
	entries map[string]*Entry
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{entries: make(map[string]*Entry)}
}

func (r *MemoryRepo) Exists(_ context.Context, hash string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.entries[hash]
	return ok, nil
}

func (r *MemoryRepo) Record(_ context.Context, e *Entry) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[e.FileHash]; ok {
		return false, nil
	}
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	e.LoadedAt = time.Now().UTC()
	cp := *e
	r.entries[e.FileHash] = &cp
	return true, nil
}

func (r *MemoryRepo) GetByHash(_ context.Context, hash string) (*Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[hash]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (r *MemoryRepo) List(_ context.Context, limit, offset int) ([]*Entry, int, error) {
	r.mu.RLock()
	all := make([]*Entry, 0, len(r.entries))
	for _, e := range r.entries {
		cp := *e
		all = append(all, &cp)
	}
	r.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		if !all[i].LoadedAt.Equal(all[j].LoadedAt) {
			return all[i].LoadedAt.After(all[j].LoadedAt)
		}
		return all[i].FileName < all[j].FileName
	})

	total := len(all)
	if offset > total {
		offset = total
	}
	end := offset + limit
	if limit <= 0 || end > total {
		end = total
	}
	return all[offset:end], total, nil
}
