package state

import (
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stacklok/department-sync/internal/config"
	"github.com/stacklok/department-sync/internal/status"
)

// NewStateService picks the status backend for cfg.
//
// A configured cache (Redis) takes precedence so replicas share one status.
// Otherwise database storage keeps the status in PostgreSQL, and memory
// storage uses a YAML file under storage.statusPath, or process memory when
// no path is set.
func NewStateService(cfg *config.Config, pool *pgxpool.Pool, redisClient RedisClient) (SyncStateService, error) {
	if cfg.Cache != nil {
		if redisClient == nil {
			return nil, fmt.Errorf("redis client is required when cache is configured")
		}
		return NewRedisStateService(redisClient, cfg.Cache.Key), nil
	}

	switch cfg.GetStorageType() {
	case config.StorageTypeDatabase:
		if pool == nil {
			return nil, fmt.Errorf("database pool is required when storage type is database")
		}
		return NewDBStateService(pool), nil
	default:
		if cfg.Storage != nil && cfg.Storage.StatusPath != "" {
			return NewFileStateService(status.NewFileStatusPersistence(cfg.Storage.StatusPath)), nil
		}
		return NewFileStateService(status.NewMemoryStatusPersistence()), nil
	}
}
