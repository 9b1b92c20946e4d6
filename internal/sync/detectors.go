package sync

import (
	"time"

	"github.com/stacklok/department-sync/internal/department"
	"github.com/stacklok/department-sync/internal/sources"
)

// NeedsUpdate reports whether an upstream version should overwrite the local
// row. A row that has never been synced is always refreshed; otherwise the
// upstream must be strictly newer. Equal timestamps are not an update.
// Both sides are compared at the precision the store keeps.
func NeedsUpdate(local, incoming *department.Department) bool {
	if local.LastSyncAt == nil {
		return true
	}
	return local.SourceUpdatedAt.Truncate(sources.TimestampPrecision).
		Before(incoming.SourceUpdatedAt.Truncate(sources.TimestampPrecision))
}

// IsStale reports whether data last synced at lastSyncAt has outlived ttl.
// Data that was never synced is stale.
func IsStale(lastSyncAt *time.Time, ttl time.Duration, now time.Time) bool {
	if lastSyncAt == nil {
		return true
	}
	return now.Sub(*lastSyncAt) > ttl
}
