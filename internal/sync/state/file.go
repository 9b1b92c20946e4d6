package state

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/stacklok/department-sync/internal/status"
)

// fileStateService caches the status in memory and writes through to a
// status.StatusPersistence. It assumes a single process owns the backing store.
type fileStateService struct {
	statusPersistence status.StatusPersistence

	mu     sync.RWMutex
	cached *status.SyncStatus
}

// NewFileStateService creates a state service over the given persistence
func NewFileStateService(statusPersistence status.StatusPersistence) SyncStateService {
	return &fileStateService{statusPersistence: statusPersistence}
}

func (f *fileStateService) Initialize(ctx context.Context) error {
	loaded, err := f.statusPersistence.LoadStatus(ctx)
	if err != nil {
		slog.Warn("Failed to load sync status, initializing with defaults", "error", err)
		loaded = &status.SyncStatus{}
	}

	if normalizeLoaded(loaded) {
		if err := f.statusPersistence.SaveStatus(ctx, loaded); err != nil {
			slog.Warn("Failed to persist initial sync status", "error", err)
		}
	}

	if loaded.LastSyncTime != nil {
		slog.Info("Loaded sync status",
			"phase", loaded.Phase,
			"last_sync", loaded.LastSyncTime.Format(time.RFC3339))
	}

	f.mu.Lock()
	f.cached = loaded
	f.mu.Unlock()
	return nil
}

func (f *fileStateService) GetSyncStatus(ctx context.Context) (*status.SyncStatus, error) {
	f.mu.RLock()
	cached := f.cached
	f.mu.RUnlock()
	if cached != nil {
		return cached.Clone(), nil
	}
	return f.statusPersistence.LoadStatus(ctx)
}

func (f *fileStateService) UpdateSyncStatus(ctx context.Context, syncStatus *status.SyncStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.statusPersistence.SaveStatus(ctx, syncStatus); err != nil {
		return err
	}
	f.cached = syncStatus.Clone()
	return nil
}

func (f *fileStateService) UpdateStatusAtomically(
	ctx context.Context,
	fn func(syncStatus *status.SyncStatus) bool,
) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	current := f.cached.Clone()
	if current == nil {
		loaded, err := f.statusPersistence.LoadStatus(ctx)
		if err != nil {
			return false, err
		}
		current = loaded
	}

	if !fn(current) {
		return false, nil
	}
	if err := f.statusPersistence.SaveStatus(ctx, current); err != nil {
		return false, err
	}
	f.cached = current.Clone()
	return true, nil
}
