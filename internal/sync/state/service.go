// Package state contains the persisted sync status of the department replica.
package state

import (
	"context"
	"log/slog"

	"github.com/stacklok/department-sync/internal/status"
)

// SyncStateService reads and writes the department sync status.
//
//go:generate mockgen -destination=mocks/mock_sync_state_service.go -package=mocks github.com/stacklok/department-sync/internal/sync/state SyncStateService
type SyncStateService interface {
	// Initialize loads the stored status, creating a default one on first run
	// and resetting a run left in Syncing by a previous process.
	Initialize(ctx context.Context) error
	// GetSyncStatus returns a copy of the current status.
	GetSyncStatus(ctx context.Context) (*status.SyncStatus, error)
	// UpdateSyncStatus replaces the stored status.
	UpdateSyncStatus(ctx context.Context, syncStatus *status.SyncStatus) error
	// UpdateStatusAtomically applies fn to the current status and stores the
	// result when fn returns true, as one atomic step. It returns fn's result.
	UpdateStatusAtomically(ctx context.Context, fn func(syncStatus *status.SyncStatus) bool) (bool, error)
}

const (
	messageNoPreviousSync = "No previous sync status found"
	messageInterrupted    = "Previous sync was interrupted"
)

// normalizeLoaded fills in a default for a first run and fails a run left in
// Syncing. It reports whether s was changed and needs saving.
func normalizeLoaded(s *status.SyncStatus) bool {
	switch {
	case s.Phase == "" && s.LastSyncTime == nil:
		slog.Info("No previous department sync status found, initializing defaults")
		s.Phase = status.SyncPhaseFailed
		s.Message = messageNoPreviousSync
		return true
	case s.Phase == status.SyncPhaseSyncing:
		slog.Warn("Previous department sync was interrupted, resetting to Failed")
		s.Phase = status.SyncPhaseFailed
		s.Message = messageInterrupted
		return true
	}
	return false
}
