// Package storage provides factory functions for creating storage-dependent components.
// It implements the Abstract Factory pattern to ensure related components (department
// store, sync writer, state service) are created with compatible storage backends.
package storage

import (
	"context"
	"fmt"

	"github.com/stacklok/department-sync/internal/config"
	"github.com/stacklok/department-sync/internal/store"
	"github.com/stacklok/department-sync/internal/sync/state"
	"github.com/stacklok/department-sync/internal/sync/writer"
)

//go:generate mockgen -destination=mocks/mock_factory.go -package=mocks -source=factory.go Factory

// Factory creates storage-dependent components as a family.
// Implementations ensure the store and the writer see the same data, and
// manage the lifecycle of storage resources such as connection pools.
type Factory interface {
	// CreateStore creates the read side of the department store
	CreateStore(ctx context.Context) (store.Store, error)

	// CreateSyncWriter creates the writer used by sync runs
	CreateSyncWriter(ctx context.Context) (writer.SyncWriter, error)

	// CreateStateService creates a state service for sync status tracking
	CreateStateService(ctx context.Context) (state.SyncStateService, error)

	// Cleanup releases any resources held by this factory. Should be called
	// when the application shuts down.
	Cleanup()
}

// NewStorageFactory creates a storage factory based on the configured storage type.
func NewStorageFactory(ctx context.Context, cfg *config.Config) (Factory, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	redisClient, err := newRedisClient(ctx, cfg.Cache)
	if err != nil {
		return nil, err
	}

	var factory Factory
	switch cfg.GetStorageType() {
	case config.StorageTypeDatabase:
		factory, err = NewDatabaseFactory(ctx, cfg, redisClient)
	case config.StorageTypeMemory:
		factory, err = NewMemoryFactory(cfg, redisClient)
	default:
		err = fmt.Errorf("unknown storage type: %s", cfg.GetStorageType())
	}
	if err != nil {
		redisClient.close()
		return nil, err
	}
	return factory, nil
}
