package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/stacklok/department-sync/internal/status"
)

// DefaultRedisKey is the key holding the status when none is configured
const DefaultRedisKey = "dept-sync:status"

// maxAtomicRetries bounds optimistic retries when another replica wins a WATCH race
const maxAtomicRetries = 5

// RedisClient is the subset of *redis.Client used by the Redis state service
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Watch(ctx context.Context, fn func(*redis.Tx) error, keys ...string) error
}

// redisStateService shares the status between replicas through one Redis key
// holding the status as JSON
type redisStateService struct {
	client RedisClient
	key    string
}

// NewRedisStateService creates a state service storing the status under key
func NewRedisStateService(client RedisClient, key string) SyncStateService {
	if key == "" {
		key = DefaultRedisKey
	}
	return &redisStateService{client: client, key: key}
}

func (r *redisStateService) Initialize(ctx context.Context) error {
	if _, err := r.UpdateStatusAtomically(ctx, normalizeLoaded); err != nil {
		return fmt.Errorf("failed to initialize sync status: %w", err)
	}
	return nil
}

func (r *redisStateService) GetSyncStatus(ctx context.Context) (*status.SyncStatus, error) {
	return decodeStatus(r.client.Get(ctx, r.key).Bytes())
}

func (r *redisStateService) UpdateSyncStatus(ctx context.Context, syncStatus *status.SyncStatus) error {
	data, err := json.Marshal(syncStatus)
	if err != nil {
		return fmt.Errorf("failed to marshal sync status: %w", err)
	}
	if err := r.client.Set(ctx, r.key, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to save sync status: %w", err)
	}
	return nil
}

func (r *redisStateService) UpdateStatusAtomically(
	ctx context.Context,
	fn func(syncStatus *status.SyncStatus) bool,
) (bool, error) {
	var updated bool
	txf := func(tx *redis.Tx) error {
		current, err := decodeStatus(tx.Get(ctx, r.key).Bytes())
		if err != nil {
			return err
		}
		updated = fn(current)
		if !updated {
			return nil
		}
		data, err := json.Marshal(current)
		if err != nil {
			return fmt.Errorf("failed to marshal sync status: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, r.key, data, 0)
			return nil
		})
		return err
	}

	for range maxAtomicRetries {
		err := r.client.Watch(ctx, txf, r.key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return false, err
		}
		return updated, nil
	}
	return false, fmt.Errorf("sync status update lost %d races", maxAtomicRetries)
}

func decodeStatus(data []byte, err error) (*status.SyncStatus, error) {
	if errors.Is(err, redis.Nil) {
		return &status.SyncStatus{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load sync status: %w", err)
	}
	var s status.SyncStatus
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to decode sync status: %w", err)
	}
	return &s, nil
}
