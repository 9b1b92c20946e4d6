package api_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/stacklok/department-sync/internal/api"
	"github.com/stacklok/department-sync/internal/service/mocks"
	"github.com/stacklok/department-sync/internal/status"
	statemocks "github.com/stacklok/department-sync/internal/sync/state/mocks"
)

func TestHealthEndpoint(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)

	// health never calls the service
	server := api.NewServer(mocks.NewMockDepartmentService(ctrl))

	rr := httptest.NewRecorder()
	server.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var response map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &response))
	assert.Equal(t, "healthy", response["status"])
}

func TestReadinessEndpoint(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		readinessErr   error
		expectedStatus int
		expectedKey    string
	}{
		{name: "service ready", expectedStatus: http.StatusOK, expectedKey: "status"},
		{
			name:           "service not ready",
			readinessErr:   fmt.Errorf("department store is not ready"),
			expectedStatus: http.StatusServiceUnavailable,
			expectedKey:    "error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ctrl := gomock.NewController(t)

			svc := mocks.NewMockDepartmentService(ctrl)
			svc.EXPECT().CheckReadiness(gomock.Any()).Return(tt.readinessErr)

			rr := httptest.NewRecorder()
			api.NewServer(svc).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/readiness", nil))

			assert.Equal(t, tt.expectedStatus, rr.Code)
			var response map[string]string
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &response))
			assert.Contains(t, response, tt.expectedKey)
		})
	}
}

func TestVersionEndpoint(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)

	rr := httptest.NewRecorder()
	api.NewServer(mocks.NewMockDepartmentService(ctrl)).
		ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/version", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	var response map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &response))
	assert.NotEmpty(t, response["version"])
	assert.NotEmpty(t, response["go_version"])
}

func TestSyncStatusRequiresOption(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)
	svc := mocks.NewMockDepartmentService(ctrl)

	rr := httptest.NewRecorder()
	api.NewServer(svc).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/sync/status", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)

	statusSvc := statemocks.NewMockSyncStateService(ctrl)
	statusSvc.EXPECT().GetSyncStatus(gomock.Any()).Return(&status.SyncStatus{Phase: status.SyncPhaseComplete}, nil)

	rr = httptest.NewRecorder()
	api.NewServer(svc, api.WithSyncStatus(statusSvc)).
		ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/sync/status", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"phase":"Complete"`)
}

func TestMiddlewaresAreApplied(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)

	server := api.NewServer(mocks.NewMockDepartmentService(ctrl),
		api.WithMiddlewares(middleware.RequestID, api.LoggingMiddleware),
		api.WithMiddlewares(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("X-Test", "applied")
				next.ServeHTTP(w, r)
			})
		}),
	)

	rr := httptest.NewRecorder()
	server.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "applied", rr.Header().Get("X-Test"))
}
