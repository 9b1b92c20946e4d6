package state

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stacklok/department-sync/internal/status"
)

// fakeRedis serves Get and Set from a map. Watch is not supported.
type fakeRedis struct {
	values map[string][]byte
	getErr error
}

func (f *fakeRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	if f.getErr != nil {
		return redis.NewStringResult("", f.getErr)
	}
	v, ok := f.values[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(string(v), nil)
}

func (f *fakeRedis) Set(_ context.Context, key string, value interface{}, _ time.Duration) *redis.StatusCmd {
	f.values[key] = value.([]byte)
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Watch(context.Context, func(*redis.Tx) error, ...string) error {
	return errors.New("watch not supported by fake")
}

func TestRedisStateService_GetAndUpdate(t *testing.T) {
	t.Parallel()

	client := &fakeRedis{values: map[string][]byte{}}
	svc := NewRedisStateService(client, "")
	ctx := context.Background()

	got, err := svc.GetSyncStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, &status.SyncStatus{}, got)

	synced := time.Date(2024, 4, 4, 4, 4, 4, 0, time.UTC)
	require.NoError(t, svc.UpdateSyncStatus(ctx, &status.SyncStatus{
		Phase:        status.SyncPhaseComplete,
		LastSyncTime: &synced,
		Updated:      7,
	}))
	assert.Contains(t, client.values, DefaultRedisKey)

	got, err = svc.GetSyncStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, status.SyncPhaseComplete, got.Phase)
	assert.Equal(t, 7, got.Updated)
	require.NotNil(t, got.LastSyncTime)
	assert.True(t, synced.Equal(*got.LastSyncTime))
}

func TestRedisStateService_Errors(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	svc := NewRedisStateService(&fakeRedis{getErr: errors.New("connection reset")}, "custom")
	_, err := svc.GetSyncStatus(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")

	svc = NewRedisStateService(&fakeRedis{values: map[string][]byte{"custom": []byte("{not json")}}, "custom")
	_, err = svc.GetSyncStatus(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to decode sync status")

	_, err = svc.UpdateStatusAtomically(ctx, func(*status.SyncStatus) bool { return true })
	require.Error(t, err)
}
