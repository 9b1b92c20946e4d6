package app

import (
	"github.com/stacklok/department-sync/internal/service"
	"github.com/stacklok/department-sync/internal/sync/coordinator"
	"github.com/stacklok/department-sync/internal/sync/state"
)

// AppComponents groups all application components
//
//nolint:revive // This name is fine
type AppComponents struct {
	// SyncCoordinator runs scheduled synchronization
	SyncCoordinator coordinator.Coordinator

	// DepartmentService provides department reads and on-demand sync
	DepartmentService service.DepartmentService

	// SyncStatus tracks the outcome of every sync run
	SyncStatus state.SyncStateService
}
