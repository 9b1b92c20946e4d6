// Package writer contains the SyncWriter interface and implementations
package writer

import (
	"context"

	"github.com/stacklok/department-sync/internal/department"
)

//go:generate mockgen -destination=mocks/mock_sync_writer.go -package=mocks -source=writer.go SyncWriter

// Batch is the set of changes staged by one sync run.
type Batch struct {
	// Creates are departments not yet present locally; IDs are assigned by the caller
	Creates []*department.Department

	// Updates are existing departments carrying refreshed upstream fields
	Updates []*department.Department
}

// Len returns the total number of staged writes
func (b *Batch) Len() int {
	if b == nil {
		return 0
	}
	return len(b.Creates) + len(b.Updates)
}

// SyncWriter persists a sync batch.
type SyncWriter interface {
	// Write applies every create and update in the batch atomically. Rows are
	// matched on external id, so a concurrent create of the same department
	// resolves to last write wins.
	Write(ctx context.Context, batch *Batch) error
}
