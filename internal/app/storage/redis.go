package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-redis/redis/v8"

	"github.com/stacklok/department-sync/internal/config"
	"github.com/stacklok/department-sync/internal/sync/state"
)

// cacheClient owns the optional Redis connection shared by a factory
type cacheClient struct {
	client *redis.Client
}

func newRedisClient(ctx context.Context, cfg *config.CacheConfig) (*cacheClient, error) {
	if cfg == nil {
		return &cacheClient{}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Address, err)
	}

	slog.Info("Connected to redis for sync status", "address", cfg.Address, "db", cfg.DB)
	return &cacheClient{client: client}, nil
}

// stateClient returns the client as a state.RedisClient, or an untyped nil when
// no cache is configured
func (c *cacheClient) stateClient() state.RedisClient {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client
}

func (c *cacheClient) close() {
	if c == nil || c.client == nil {
		return
	}
	if err := c.client.Close(); err != nil {
		slog.Warn("Failed to close redis client", "error", err)
	}
}
