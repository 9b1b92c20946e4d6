// Package service provides the read facade over the local department store.
//
// Reads are served from the store. A read that finds nothing triggers a
// blocking sync, and a read against stale data returns what is stored while a
// refresh runs in the background.
package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/stacklok/department-sync/internal/department"
	"github.com/stacklok/department-sync/internal/hierarchy"
	"github.com/stacklok/department-sync/internal/sync"
)

//go:generate mockgen -destination=mocks/mock_service.go -package=mocks -source=service.go DepartmentService

// DepartmentService defines the department retrieval operations
type DepartmentService interface {
	// CheckReadiness checks if the service is ready to serve requests
	CheckReadiness(ctx context.Context) error

	// GetAll returns every department ordered by Order
	GetAll(ctx context.Context, forceRefresh bool) ([]*department.Department, error)

	// GetByID returns the department with the given internal id, or nil when it
	// does not exist even after a sync
	GetByID(ctx context.Context, id uuid.UUID, forceRefresh bool) (*department.Department, error)

	// GetByExternalID returns the department with the given upstream id, or nil
	// when it does not exist even after a sync
	GetByExternalID(ctx context.Context, externalID string, forceRefresh bool) (*department.Department, error)

	// Children returns the direct children of a department from the current
	// store contents, or nil when the department is unknown. It never syncs.
	Children(ctx context.Context, externalID string) ([]*department.Department, error)

	// SynchronizeNow runs a manual sync and returns its result
	SynchronizeNow(ctx context.Context, force bool) (*sync.Result, error)

	// Hierarchy returns the current store contents as a forest
	Hierarchy(ctx context.Context) ([]*hierarchy.Node, error)
}
