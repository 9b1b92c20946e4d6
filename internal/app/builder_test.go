package app

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	storagemocks "github.com/stacklok/department-sync/internal/app/storage/mocks"
	"github.com/stacklok/department-sync/internal/config"
	"github.com/stacklok/department-sync/internal/sources"
	sourcemocks "github.com/stacklok/department-sync/internal/sources/mocks"
	"github.com/stacklok/department-sync/internal/status"
)

func strPtr(s string) *string { return &s }

func memoryConfig() *config.Config {
	return &config.Config{
		Source:  config.SourceConfig{Type: config.SourceTypeFile, File: &config.FileConfig{Path: "/tmp/departments.json"}},
		Storage: &config.StorageConfig{Type: config.StorageTypeMemory},
	}
}

func upstreamRecords() []sources.Record {
	return []sources.Record{
		{ID: "ext-001", DepartmentName: "Engineering", Order: 1, CreatedAt: "2024-01-01T00:00:00Z", UpdatedAt: "2024-01-02T00:00:00Z"},
		{
			ID: "ext-002", DepartmentName: "Platform", Order: 2, ParentDepartmentID: strPtr("ext-001"),
			CreatedAt: "2024-01-01T00:00:00Z", UpdatedAt: "2024-01-02T00:00:00Z",
		},
	}
}

func TestBaseConfig_Defaults(t *testing.T) {
	t.Parallel()

	built, err := baseConfig(WithConfig(memoryConfig()))
	require.NoError(t, err)
	assert.Equal(t, defaultHTTPAddress, built.address)
	assert.Equal(t, config.DefaultFetchTimeout+requestTimeoutMargin, built.requestTimeout)
	assert.Greater(t, built.writeTimeout, built.requestTimeout)
	assert.Equal(t, defaultIdleTimeout, built.idleTimeout)
	assert.Nil(t, built.middlewares)
}

func TestBaseConfig_RequestTimeoutFollowsFetchTimeout(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{
		Source: config.SourceConfig{
			Type: config.SourceTypeAPI,
			API:  &config.APIConfig{Endpoint: "https://hr.example.com", Timeout: "2m"},
		},
	}
	built, err := baseConfig(WithConfig(cfg))
	require.NoError(t, err)
	assert.Equal(t, 2*time.Minute+requestTimeoutMargin, built.requestTimeout)

	built, err = baseConfig(WithConfig(cfg), WithRequestTimeout(5*time.Second))
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, built.requestTimeout)
	assert.Equal(t, 5*time.Second+writeTimeoutMargin, built.writeTimeout)
}

func TestBaseConfig_RequiresConfig(t *testing.T) {
	t.Parallel()

	_, err := baseConfig(WithAddress(":9090"))
	require.ErrorContains(t, err, "config cannot be nil")
}

func TestWithAddress(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		addr    string
		wantErr bool
	}{
		{name: "port only", addr: ":9090"},
		{name: "localhost", addr: "localhost:8080"},
		{name: "ipv4", addr: "10.0.0.1:80"},
		{name: "empty", addr: "", wantErr: true},
		{name: "missing port", addr: ":", wantErr: true},
		{name: "no separator", addr: "8080", wantErr: true},
		{name: "port out of range", addr: ":70000", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := &departmentAppConfig{}
			err := WithAddress(tt.addr)(cfg)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.addr, cfg.address)
		})
	}
}

func TestWithRequestTimeout(t *testing.T) {
	t.Parallel()

	cfg := &departmentAppConfig{}
	require.Error(t, WithRequestTimeout(0)(cfg))
	require.NoError(t, WithRequestTimeout(3*time.Second)(cfg))
	assert.Equal(t, 3*time.Second, cfg.requestTimeout)
}

func TestNewDepartmentApp_ServesAndSyncs(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)

	source := sourcemocks.NewMockSource(ctrl)
	source.EXPECT().Describe().Return("mock").AnyTimes()
	source.EXPECT().FetchDepartments(gomock.Any()).Return(upstreamRecords(), nil).Times(2)

	reader := sdkmetric.NewManualReader()
	app, err := NewDepartmentApp(context.Background(),
		WithConfig(memoryConfig()),
		WithSource(source),
		WithMeterProvider(sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))),
	)
	require.NoError(t, err)
	defer app.Close()

	handler := app.GetHTTPServer().Handler

	// the empty store is filled on first read
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/departments", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var list struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &list))
	assert.Equal(t, 2, list.Count)

	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/departments/hierarchy", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"externalId":"ext-002"`)

	// unchanged upstream timestamps produce no writes
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/sync", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var result struct {
		Success bool `json:"success"`
		Created int  `json:"created"`
		Updated int  `json:"updated"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &result))
	assert.True(t, result.Success)
	assert.Zero(t, result.Created)
	assert.Zero(t, result.Updated)

	syncStatus, err := app.components.SyncStatus.GetSyncStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, status.SyncPhaseComplete, syncStatus.Phase)
	assert.Equal(t, 2, syncStatus.TotalProcessed)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	assert.NotEmpty(t, rm.ScopeMetrics)
}

func TestNewDepartmentApp_BlockingReadKeepsFetchBudget(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)

	var budget time.Duration
	source := sourcemocks.NewMockSource(ctrl)
	source.EXPECT().Describe().Return("mock").AnyTimes()
	source.EXPECT().FetchDepartments(gomock.Any()).
		DoAndReturn(func(ctx context.Context) ([]sources.Record, error) {
			deadline, ok := ctx.Deadline()
			require.True(t, ok)
			budget = time.Until(deadline)
			return upstreamRecords(), nil
		})

	app, err := NewDepartmentApp(context.Background(), WithConfig(memoryConfig()), WithSource(source))
	require.NoError(t, err)
	defer app.Close()

	rr := httptest.NewRecorder()
	app.GetHTTPServer().Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/departments", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	// the fetch timeout binds, not the request timeout
	assert.Greater(t, budget, config.DefaultFetchTimeout-5*time.Second)
	assert.LessOrEqual(t, budget, config.DefaultFetchTimeout)
}

func TestNewDepartmentApp_SourceFailure(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)

	source := sourcemocks.NewMockSource(ctrl)
	source.EXPECT().Describe().Return("https://hr.example.com/departments").AnyTimes()
	source.EXPECT().FetchDepartments(gomock.Any()).Return(nil, errors.New("connection refused"))

	app, err := NewDepartmentApp(context.Background(), WithConfig(memoryConfig()), WithSource(source))
	require.NoError(t, err)
	defer app.Close()

	rr := httptest.NewRecorder()
	app.GetHTTPServer().Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/departments", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)

	syncStatus, err := app.components.SyncStatus.GetSyncStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, status.SyncPhaseFailed, syncStatus.Phase)
}

func TestNewDepartmentApp_CleansUpOnError(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)

	factory := storagemocks.NewMockFactory(ctrl)
	factory.EXPECT().CreateStateService(gomock.Any()).Return(nil, errors.New("redis unreachable"))
	factory.EXPECT().Cleanup()

	_, err := NewDepartmentApp(context.Background(),
		WithConfig(memoryConfig()),
		WithStorageFactory(factory),
	)
	require.ErrorContains(t, err, "redis unreachable")
}

func TestNewDepartmentApp_CloseIsIdempotent(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)

	app, err := NewDepartmentApp(context.Background(),
		WithConfig(memoryConfig()),
		WithSource(sourcemocks.NewMockSource(ctrl)),
		WithAddress("127.0.0.1:0"),
	)
	require.NoError(t, err)

	assert.NotPanics(t, func() {
		app.Close()
		app.Close()
	})
	assert.Equal(t, "127.0.0.1:0", app.GetHTTPServer().Addr)
}
