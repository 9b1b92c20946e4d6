package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stacklok/department-sync/internal/config"
	"github.com/stacklok/department-sync/internal/db"
	"github.com/stacklok/department-sync/internal/store"
	dbstore "github.com/stacklok/department-sync/internal/store/db"
	"github.com/stacklok/department-sync/internal/sync/state"
	"github.com/stacklok/department-sync/internal/sync/writer"
)

// DatabaseFactory creates PostgreSQL-backed storage components sharing one pool.
type DatabaseFactory struct {
	config *config.Config
	pool   *pgxpool.Pool
	cache  *cacheClient
}

var _ Factory = (*DatabaseFactory)(nil)

// NewDatabaseFactory creates a new database-backed storage factory.
// It establishes a connection pool to the configured PostgreSQL database.
func NewDatabaseFactory(ctx context.Context, cfg *config.Config, cache *cacheClient) (*DatabaseFactory, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.Database == nil {
		return nil, fmt.Errorf("database configuration is required for database storage type")
	}

	slog.Info("Creating database-backed storage factory")

	pool, err := db.NewPool(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to create database connection pool: %w", err)
	}

	return newDatabaseFactoryWithPool(cfg, pool, cache), nil
}

func newDatabaseFactoryWithPool(cfg *config.Config, pool *pgxpool.Pool, cache *cacheClient) *DatabaseFactory {
	return &DatabaseFactory{
		config: cfg,
		pool:   pool,
		cache:  cache,
	}
}

// CreateStore creates the PostgreSQL department store
func (d *DatabaseFactory) CreateStore(_ context.Context) (store.Store, error) {
	return dbstore.New(d.pool)
}

// CreateSyncWriter creates the PostgreSQL bulk writer
func (d *DatabaseFactory) CreateSyncWriter(_ context.Context) (writer.SyncWriter, error) {
	return writer.NewDBSyncWriter(d.pool)
}

// CreateStateService creates a database or Redis backed state service
func (d *DatabaseFactory) CreateStateService(_ context.Context) (state.SyncStateService, error) {
	return state.NewStateService(d.config, d.pool, d.cache.stateClient())
}

// Cleanup closes the connection pool and the cache connection
func (d *DatabaseFactory) Cleanup() {
	if d.pool != nil {
		slog.Info("Closing database connection pool")
		d.pool.Close()
	}
	d.cache.close()
}
