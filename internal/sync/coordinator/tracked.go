package coordinator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/stacklok/department-sync/internal/status"
	pkgsync "github.com/stacklok/department-sync/internal/sync"
	"github.com/stacklok/department-sync/internal/sync/state"
	"github.com/stacklok/department-sync/internal/telemetry"
)

// trackedManager wraps a Manager so that every run, whatever started it, is
// reflected in the persisted sync status and the sync metrics.
type trackedManager struct {
	manager   pkgsync.Manager
	statusSvc state.SyncStateService
	metrics   *telemetry.SyncMetrics
	now       func() time.Time
}

// NewTrackedManager returns a Manager that records each run of manager in statusSvc
func NewTrackedManager(
	manager pkgsync.Manager,
	statusSvc state.SyncStateService,
	metrics *telemetry.SyncMetrics,
) pkgsync.Manager {
	return &trackedManager{
		manager:   manager,
		statusSvc: statusSvc,
		metrics:   metrics,
		now:       time.Now,
	}
}

func (t *trackedManager) Synchronize(ctx context.Context, force bool) (result *pkgsync.Result, syncErr error) {
	trigger := pkgsync.TriggerFrom(ctx)
	start := t.now()

	var attempt int
	if _, err := t.statusSvc.UpdateStatusAtomically(ctx, func(s *status.SyncStatus) bool {
		s.Phase = status.SyncPhaseSyncing
		s.Message = "Sync in progress"
		s.LastAttempt = &start
		s.AttemptCount++
		attempt = s.AttemptCount
		return true
	}); err != nil {
		slog.Warn("Failed to persist syncing status", "error", err)
	}

	// the final status is written even if the run panics
	defer func() {
		finish := func(s *status.SyncStatus) bool {
			applyOutcome(s, result, syncErr)
			return true
		}
		if _, err := t.statusSvc.UpdateStatusAtomically(context.WithoutCancel(ctx), finish); err != nil {
			slog.Error("Failed to persist final sync status", "error", err)
		}
	}()

	slog.Info("Starting department sync", "trigger", trigger, "force", force, "attempt", attempt)

	result, syncErr = t.manager.Synchronize(ctx, force)

	success := syncErr == nil && result != nil && result.Success
	t.metrics.RecordSyncDuration(ctx, string(trigger), t.now().Sub(start), success)
	return result, syncErr
}

// applyOutcome folds a finished run into the stored status. A nil result means
// the run died before producing one.
func applyOutcome(s *status.SyncStatus, result *pkgsync.Result, syncErr error) {
	switch {
	case syncErr != nil:
		s.Phase = status.SyncPhaseFailed
		s.Message = syncErr.Error()
	case result == nil:
		s.Phase = status.SyncPhaseFailed
		s.Message = "Unexpected failure while syncing departments"
	case !result.Success:
		s.Phase = status.SyncPhaseDisabled
		s.Message = pkgsync.MessageDisabled
	default:
		syncedAt := result.SyncedAt
		s.Phase = status.SyncPhaseComplete
		s.LastSyncTime = &syncedAt
		s.AttemptCount = 0
		s.TotalProcessed = result.TotalProcessed
		s.Created = result.Created
		s.Updated = result.Updated
		s.ErrorCount = len(result.Errors)
		s.Message = "Sync completed successfully"
		if result.HasWarnings() {
			s.Message = fmt.Sprintf("Sync completed with %d record errors", len(result.Errors))
		}
	}
}
