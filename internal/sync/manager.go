package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/stacklok/department-sync/internal/config"
	"github.com/stacklok/department-sync/internal/department"
	"github.com/stacklok/department-sync/internal/sources"
	"github.com/stacklok/department-sync/internal/store"
	"github.com/stacklok/department-sync/internal/sync/writer"
	"github.com/stacklok/department-sync/internal/telemetry"
)

// ErrorKind classifies a run-level synchronization failure
type ErrorKind string

const (
	// KindSourceUnavailable is reported when the upstream fetch fails or times out
	KindSourceUnavailable ErrorKind = "SourceUnavailable"
	// KindPersistence is reported when local lookups or the bulk write fail
	KindPersistence ErrorKind = "Persistence"
)

// MessageDisabled is the single error entry of a run refused because sync is disabled
const MessageDisabled = "department synchronization is disabled"

// Error is a run-level synchronization failure
type Error struct {
	Err     error
	Message string
	Kind    ErrorKind
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsKind reports whether err carries a sync *Error of the given kind
func IsKind(err error, kind ErrorKind) bool {
	var syncErr *Error
	return errors.As(err, &syncErr) && syncErr.Kind == kind
}

// Manager reconciles the upstream department list into local storage
//
//go:generate mockgen -destination=mocks/mock_manager.go -package=mocks github.com/stacklok/department-sync/internal/sync Manager
type Manager interface {
	// Synchronize runs one full pass. The returned Result is never nil. A non-nil
	// error is a *Error and means the run made no change to local data.
	// force bypasses the enabled flag and the freshness check.
	Synchronize(ctx context.Context, force bool) (*Result, error)
}

// Option configures the default manager
type Option func(*defaultSyncManager)

// WithIdentity sets the value written to CreatedBy/UpdatedBy
func WithIdentity(identity string) Option {
	return func(m *defaultSyncManager) {
		m.identity = identity
	}
}

// WithEnabled toggles whether unforced runs are allowed
func WithEnabled(enabled bool) Option {
	return func(m *defaultSyncManager) {
		m.enabled = enabled
	}
}

// WithFetchTimeout bounds the upstream fetch. Zero disables the bound.
func WithFetchTimeout(timeout time.Duration) Option {
	return func(m *defaultSyncManager) {
		m.fetchTimeout = timeout
	}
}

// WithClock replaces time.Now, for tests
func WithClock(now func() time.Time) Option {
	return func(m *defaultSyncManager) {
		m.now = now
	}
}

// WithMetrics records record outcomes on m
func WithMetrics(m *telemetry.SyncMetrics) Option {
	return func(d *defaultSyncManager) {
		d.metrics = m
	}
}

type defaultSyncManager struct {
	source sources.Source
	store  store.Store
	writer writer.SyncWriter

	identity     string
	enabled      bool
	fetchTimeout time.Duration
	now          func() time.Time
	metrics      *telemetry.SyncMetrics
}

// NewDefaultSyncManager creates a Manager reading from source, comparing against
// st and persisting through w
func NewDefaultSyncManager(source sources.Source, st store.Store, w writer.SyncWriter, opts ...Option) Manager {
	m := &defaultSyncManager{
		source:       source,
		store:        st,
		writer:       w,
		identity:     config.DefaultSyncIdentity,
		enabled:      true,
		fetchTimeout: config.DefaultFetchTimeout,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *defaultSyncManager) Synchronize(ctx context.Context, force bool) (*Result, error) {
	now := m.now().UTC().Truncate(sources.TimestampPrecision)

	if !m.enabled && !force {
		slog.Debug("Department synchronization skipped, disabled")
		return newFailedResult(now, []string{MessageDisabled}), nil
	}

	records, err := m.fetch(ctx)
	if err != nil {
		msg := fmt.Sprintf("failed to fetch departments from %s: %v", m.source.Describe(), err)
		slog.Error("Department fetch failed", "source", m.source.Describe(), "error", err)
		return newFailedResult(now, []string{msg}), &Error{Err: err, Message: msg, Kind: KindSourceUnavailable}
	}

	result := &Result{
		Success:        true,
		TotalProcessed: len(records),
		SyncedAt:       now,
	}

	incoming, errs := transformAll(records)
	result.Errors = append(result.Errors, errs...)

	existing, err := m.store.GetByExternalIDs(ctx, externalIDs(incoming))
	if err != nil {
		msg := fmt.Sprintf("failed to load local departments: %v", err)
		result.Success = false
		result.Errors = append(result.Errors, msg)
		return result, &Error{Err: err, Message: msg, Kind: KindPersistence}
	}

	batch := m.plan(incoming, existing, now, force)
	result.Created = len(batch.Creates)
	result.Updated = len(batch.Updates)

	if batch.Len() > 0 {
		if err := m.writer.Write(ctx, batch); err != nil {
			msg := fmt.Sprintf("failed to persist departments: %v", err)
			slog.Error("Department write failed", "creates", result.Created, "updates", result.Updated, "error", err)
			result.Success = false
			result.Created, result.Updated = 0, 0
			result.Errors = append(result.Errors, msg)
			return result, &Error{Err: err, Message: msg, Kind: KindPersistence}
		}
	}

	m.metrics.RecordOutcomes(ctx, result.Created, result.Updated, len(result.Errors))
	if count, err := m.store.Count(ctx); err == nil {
		m.metrics.RecordDepartments(ctx, count)
	}

	slog.Info("Department synchronization completed",
		"processed", result.TotalProcessed,
		"created", result.Created,
		"updated", result.Updated,
		"errors", len(result.Errors),
		"forced", force,
	)
	return result, nil
}

func (m *defaultSyncManager) fetch(ctx context.Context) ([]sources.Record, error) {
	if m.fetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.fetchTimeout)
		defer cancel()
	}
	return m.source.FetchDepartments(ctx)
}

// plan splits incoming departments into creates and updates. incoming is in
// upstream order and free of duplicate external ids.
func (m *defaultSyncManager) plan(
	incoming []*department.Department,
	existing map[string]*department.Department,
	now time.Time,
	force bool,
) *writer.Batch {
	batch := &writer.Batch{}
	for _, d := range incoming {
		syncedAt := now
		d.LastSyncAt = &syncedAt
		d.UpdatedBy = m.identity

		local, ok := existing[d.ExternalID]
		if !ok {
			d.ID = uuid.New()
			d.CreatedBy = m.identity
			batch.Creates = append(batch.Creates, d)
			continue
		}

		if !force && !NeedsUpdate(local, d) {
			continue
		}
		d.ID = local.ID
		d.CreatedBy = local.CreatedBy
		d.CreatedAt = local.CreatedAt
		batch.Updates = append(batch.Updates, d)
	}
	return batch
}

// transformAll converts records in order. Invalid records and repeated external
// ids produce one error message each and are left out.
func transformAll(records []sources.Record) ([]*department.Department, []string) {
	var (
		out  = make([]*department.Department, 0, len(records))
		errs []string
		seen = make(map[string]struct{}, len(records))
	)
	for i := range records {
		d, err := records[i].Transform()
		if err != nil {
			errs = append(errs, fmt.Sprintf("record %d (%s): %v", i, recordLabel(&records[i]), err))
			continue
		}
		if _, dup := seen[d.ExternalID]; dup {
			errs = append(errs, fmt.Sprintf("record %d (%s): duplicate department id in batch", i, d.ExternalID))
			continue
		}
		seen[d.ExternalID] = struct{}{}
		out = append(out, d)
	}
	return out, errs
}

func recordLabel(r *sources.Record) string {
	if r.ID == "" {
		return "<no id>"
	}
	return r.ID
}

func externalIDs(departments []*department.Department) []string {
	ids := make([]string, len(departments))
	for i, d := range departments {
		ids[i] = d.ExternalID
	}
	return ids
}
