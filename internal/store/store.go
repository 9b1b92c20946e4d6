// Package store defines read access to the local department store.
//
// Writes go through internal/sync/writer so that every sync run persists its
// changes in a single bulk operation.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/stacklok/department-sync/internal/department"
)

// ErrNotFound is returned when a department does not exist in the store
var ErrNotFound = errors.New("department not found")

// Store is the read side of the local department store. List results are
// ordered by Order, then ExternalID.
//
//go:generate mockgen -destination=mocks/mock_store.go -package=mocks github.com/stacklok/department-sync/internal/store Store
type Store interface {
	// List returns every department
	List(ctx context.Context) ([]*department.Department, error)

	// GetByID returns the department with the given internal id or ErrNotFound
	GetByID(ctx context.Context, id uuid.UUID) (*department.Department, error)

	// GetByExternalID returns the department with the given upstream id or ErrNotFound
	GetByExternalID(ctx context.Context, externalID string) (*department.Department, error)

	// GetByExternalIDs returns the departments that exist among externalIDs, keyed by external id
	GetByExternalIDs(ctx context.Context, externalIDs []string) (map[string]*department.Department, error)

	// ListByParentExternalID returns the direct children of a department
	ListByParentExternalID(ctx context.Context, parentExternalID string) ([]*department.Department, error)

	// LatestSyncAt returns the newest lastSyncAt across all rows, nil when no row has been synced
	LatestSyncAt(ctx context.Context) (*time.Time, error)

	// Count returns the number of stored departments
	Count(ctx context.Context) (int, error)
}
