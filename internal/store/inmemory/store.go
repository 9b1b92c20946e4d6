// Package inmemory provides a process local department store. It implements
// both store.Store and writer.SyncWriter and is used for the memory storage
// type and in tests.
package inmemory

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/stacklok/department-sync/internal/department"
	"github.com/stacklok/department-sync/internal/store"
	"github.com/stacklok/department-sync/internal/sync/writer"
)

// Store is an in-memory department store
type Store struct {
	mu         sync.RWMutex
	byExternal map[string]*department.Department
}

var (
	_ store.Store       = (*Store)(nil)
	_ writer.SyncWriter = (*Store)(nil)
)

// New creates an empty store
func New() *Store {
	return &Store{byExternal: make(map[string]*department.Department)}
}

func (s *Store) List(_ context.Context) ([]*department.Department, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sorted(func(*department.Department) bool { return true }), nil
}

func (s *Store) GetByID(_ context.Context, id uuid.UUID) (*department.Department, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, d := range s.byExternal {
		if d.ID == id {
			return d.Clone(), nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) GetByExternalID(_ context.Context, externalID string) (*department.Department, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.byExternal[externalID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return d.Clone(), nil
}

func (s *Store) GetByExternalIDs(_ context.Context, externalIDs []string) (map[string]*department.Department, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make(map[string]*department.Department, len(externalIDs))
	for _, id := range externalIDs {
		if d, ok := s.byExternal[id]; ok {
			result[id] = d.Clone()
		}
	}
	return result, nil
}

func (s *Store) ListByParentExternalID(_ context.Context, parentExternalID string) ([]*department.Department, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sorted(func(d *department.Department) bool {
		return d.ParentDepartmentID != nil && *d.ParentDepartmentID == parentExternalID
	}), nil
}

func (s *Store) LatestSyncAt(_ context.Context) (*time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var latest *time.Time
	for _, d := range s.byExternal {
		if d.LastSyncAt != nil && (latest == nil || d.LastSyncAt.After(*latest)) {
			t := *d.LastSyncAt
			latest = &t
		}
	}
	return latest, nil
}

func (s *Store) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byExternal), nil
}

// Write applies the batch as an upsert keyed on external id. The batch is
// applied entirely or not at all.
func (s *Store) Write(ctx context.Context, batch *writer.Batch) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	apply := func(d *department.Department) {
		row := d.Clone()
		if existing, ok := s.byExternal[row.ExternalID]; ok {
			row.ID = existing.ID
			row.CreatedBy = existing.CreatedBy
			row.CreatedAt = existing.CreatedAt
		} else if row.CreatedAt.IsZero() {
			row.CreatedAt = now
		}
		row.UpdatedAt = now
		s.byExternal[row.ExternalID] = row
	}
	for _, d := range batch.Creates {
		apply(d)
	}
	for _, d := range batch.Updates {
		apply(d)
	}
	return nil
}

// Put inserts or replaces a department directly, bypassing sync bookkeeping
func (s *Store) Put(d *department.Department) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row := d.Clone()
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	s.byExternal[row.ExternalID] = row
}

func (s *Store) sorted(keep func(*department.Department) bool) []*department.Department {
	result := make([]*department.Department, 0, len(s.byExternal))
	for _, d := range s.byExternal {
		if keep(d) {
			result = append(result, d.Clone())
		}
	}
	slices.SortFunc(result, func(a, b *department.Department) int {
		if c := cmp.Compare(a.Order, b.Order); c != 0 {
			return c
		}
		return cmp.Compare(a.ExternalID, b.ExternalID)
	})
	return result
}
