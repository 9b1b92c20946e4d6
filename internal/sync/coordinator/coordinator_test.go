package coordinator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/stacklok/department-sync/internal/sync"
	syncmocks "github.com/stacklok/department-sync/internal/sync/mocks"
)

func TestNextInterval(t *testing.T) {
	t.Parallel()

	base := time.Hour
	for range 100 {
		got := nextInterval(base)
		assert.GreaterOrEqual(t, got, 54*time.Minute)
		assert.Less(t, got, 66*time.Minute)
	}

	assert.Equal(t, time.Duration(0), nextInterval(0))
	assert.Equal(t, time.Duration(5), nextInterval(5))
}

func TestCoordinator_StopBeforeStart(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	c := New(syncmocks.NewMockManager(ctrl), time.Hour)
	assert.NoError(t, c.Stop())
}

func TestCoordinator_StartTwice(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	manager := syncmocks.NewMockManager(ctrl)

	synced := make(chan struct{}, 2)
	manager.EXPECT().Synchronize(gomock.Any(), false).DoAndReturn(
		func(context.Context, bool) (*sync.Result, error) {
			synced <- struct{}{}
			return &sync.Result{Success: true}, nil
		}).Times(2)

	c := New(manager, time.Hour)
	run := func() chan error {
		errCh := make(chan error, 1)
		go func() { errCh <- c.Start(context.Background()) }()
		select {
		case <-synced:
		case <-time.After(5 * time.Second):
			t.Fatal("initial sync was not performed")
		}
		return errCh
	}

	errCh := run()
	assert.ErrorIs(t, c.Start(context.Background()), ErrAlreadyRunning)

	require.NoError(t, c.Stop())
	require.NoError(t, <-errCh)

	// a stopped coordinator can be started again
	errCh = run()
	require.NoError(t, c.Stop())
	require.NoError(t, <-errCh)
}

func TestCoordinator_InitialSyncThenStop(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	manager := syncmocks.NewMockManager(ctrl)

	called := make(chan struct{})
	manager.EXPECT().Synchronize(gomock.Any(), false).DoAndReturn(
		func(ctx context.Context, _ bool) (*sync.Result, error) {
			assert.Equal(t, sync.TriggerScheduled, sync.TriggerFrom(ctx))
			close(called)
			return &sync.Result{Success: true}, nil
		})

	c := New(manager, time.Hour)
	errCh := make(chan error, 1)
	go func() { errCh <- c.Start(context.Background()) }()

	select {
	case <-called:
	case <-time.After(5 * time.Second):
		t.Fatal("initial sync was not performed")
	}

	require.NoError(t, c.Stop())
	require.NoError(t, <-errCh)
}

func TestCoordinator_KeepsRunningAfterFailures(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	manager := syncmocks.NewMockManager(ctrl)

	calls := make(chan struct{}, 10)
	manager.EXPECT().Synchronize(gomock.Any(), false).DoAndReturn(
		func(context.Context, bool) (*sync.Result, error) {
			select {
			case calls <- struct{}{}:
			default:
			}
			return &sync.Result{}, &sync.Error{Message: "upstream down", Kind: sync.KindSourceUnavailable}
		}).MinTimes(3)

	ctx, cancel := context.WithCancel(context.Background())
	c := New(manager, 10*time.Millisecond)
	errCh := make(chan error, 1)
	go func() { errCh <- c.Start(ctx) }()

	for i := 0; i < 3; i++ {
		select {
		case <-calls:
		case <-time.After(5 * time.Second):
			t.Fatalf("only %d syncs ran", i)
		}
	}

	cancel()
	require.NoError(t, <-errCh)
	assert.NoError(t, c.Stop())
}

func TestCoordinator_SkippedRunIsNotAnError(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	manager := syncmocks.NewMockManager(ctrl)

	done := make(chan struct{})
	manager.EXPECT().Synchronize(gomock.Any(), false).DoAndReturn(
		func(context.Context, bool) (*sync.Result, error) {
			defer close(done)
			return &sync.Result{Success: false, Errors: []string{sync.MessageDisabled}}, nil
		})

	c := New(manager, time.Hour)
	go func() { _ = c.Start(context.Background()) }()
	<-done
	require.NoError(t, c.Stop())
}

var errBoom = errors.New("boom")
