package app

import (
	"context"
	"net"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/stacklok/department-sync/internal/api"
	"github.com/stacklok/department-sync/internal/config"
	mocksvc "github.com/stacklok/department-sync/internal/service/mocks"
)

// mockCoordinator implements the coordinator.Coordinator interface for testing
type mockCoordinator struct {
	mu          sync.Mutex
	startCalled bool
	stopCalled  bool
	stopErr     error
}

func (m *mockCoordinator) Start(ctx context.Context) error {
	m.mu.Lock()
	m.startCalled = true
	m.mu.Unlock()

	<-ctx.Done()
	return nil
}

func (m *mockCoordinator) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopCalled = true
	return m.stopErr
}

func (m *mockCoordinator) wasStartCalled() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.startCalled
}

func (m *mockCoordinator) wasStopCalled() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stopCalled
}

func newTestApp(t *testing.T, coord *mockCoordinator, addr string) (*DepartmentApp, *int) {
	t.Helper()
	ctrl := gomock.NewController(t)
	svc := mocksvc.NewMockDepartmentService(ctrl)

	ctx, cancel := context.WithCancel(context.Background())
	cleanups := 0
	app := &DepartmentApp{
		config: &config.Config{},
		components: &AppComponents{
			SyncCoordinator:   coord,
			DepartmentService: svc,
		},
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           api.NewServer(svc),
			ReadHeaderTimeout: time.Second,
		},
		ctx: ctx,
		cancelFunc: func() {
			cleanups++
			cancel()
		},
	}
	return app, &cleanups
}

func TestDepartmentApp_StartAndStop(t *testing.T) {
	t.Parallel()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := listener.Addr().String()
	require.NoError(t, listener.Close())

	coord := &mockCoordinator{}
	app, cleanups := newTestApp(t, coord, addr)

	errChan := make(chan error, 1)
	go func() {
		errChan <- app.Start()
	}()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr + "/health")
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)
	assert.Eventually(t, coord.wasStartCalled, time.Second, 10*time.Millisecond)

	require.NoError(t, app.Stop(5*time.Second))
	assert.True(t, coord.wasStopCalled())
	assert.Equal(t, 1, *cleanups)

	select {
	case err := <-errChan:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Start() did not return after Stop()")
	}
}

func TestDepartmentApp_StopWithoutStart(t *testing.T) {
	t.Parallel()

	coord := &mockCoordinator{stopErr: assert.AnError}
	app, cleanups := newTestApp(t, coord, "127.0.0.1:0")

	// a coordinator error is logged, not returned
	require.NoError(t, app.Stop(time.Second))
	assert.True(t, coord.wasStopCalled())
	assert.Equal(t, 1, *cleanups)
}

func TestDepartmentApp_StopWithNilCancelFunc(t *testing.T) {
	t.Parallel()

	coord := &mockCoordinator{}
	app, _ := newTestApp(t, coord, "127.0.0.1:0")
	app.cancelFunc = nil

	assert.NotPanics(t, func() {
		_ = app.Stop(time.Second)
		app.Close()
	})
}

func TestDepartmentApp_Accessors(t *testing.T) {
	t.Parallel()

	app, _ := newTestApp(t, &mockCoordinator{}, ":8080")
	assert.NotNil(t, app.GetConfig())
	assert.Equal(t, ":8080", app.GetHTTPServer().Addr)
	assert.Same(t, app.components.DepartmentService, app.Service())
}
