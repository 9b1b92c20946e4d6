package storage

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/stacklok/department-sync/internal/config"
	"github.com/stacklok/department-sync/internal/store"
	"github.com/stacklok/department-sync/internal/store/inmemory"
	"github.com/stacklok/department-sync/internal/sync/state"
	"github.com/stacklok/department-sync/internal/sync/writer"
)

// MemoryFactory creates components backed by a single in-process store.
// Departments do not survive a restart; the sync status may, when a status
// path or a cache is configured.
type MemoryFactory struct {
	config *config.Config
	store  *inmemory.Store
	cache  *cacheClient
}

var _ Factory = (*MemoryFactory)(nil)

// NewMemoryFactory creates a new memory-backed storage factory
func NewMemoryFactory(cfg *config.Config, cache *cacheClient) (*MemoryFactory, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	if cfg.Storage != nil && cfg.Storage.StatusPath != "" {
		if err := os.MkdirAll(cfg.Storage.StatusPath, 0750); err != nil {
			return nil, fmt.Errorf("failed to create status directory %s: %w", cfg.Storage.StatusPath, err)
		}
	}

	slog.Info("Creating memory-backed storage factory")

	return &MemoryFactory{
		config: cfg,
		store:  inmemory.New(),
		cache:  cache,
	}, nil
}

// CreateStore returns the shared in-memory store
func (f *MemoryFactory) CreateStore(_ context.Context) (store.Store, error) {
	return f.store, nil
}

// CreateSyncWriter returns the shared in-memory store, which also applies batches
func (f *MemoryFactory) CreateSyncWriter(_ context.Context) (writer.SyncWriter, error) {
	return f.store, nil
}

// CreateStateService creates a file, memory or Redis backed state service
func (f *MemoryFactory) CreateStateService(_ context.Context) (state.SyncStateService, error) {
	return state.NewStateService(f.config, nil, f.cache.stateClient())
}

// Cleanup closes the cache connection, if any
func (f *MemoryFactory) Cleanup() {
	f.cache.close()
}
