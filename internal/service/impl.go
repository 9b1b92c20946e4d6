package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/stacklok/department-sync/internal/config"
	"github.com/stacklok/department-sync/internal/department"
	"github.com/stacklok/department-sync/internal/hierarchy"
	"github.com/stacklok/department-sync/internal/otel"
	"github.com/stacklok/department-sync/internal/store"
	"github.com/stacklok/department-sync/internal/sync"
)

// TracerName is the instrumentation name for department service spans
const TracerName = "github.com/stacklok/department-sync/internal/service"

// departmentSvc implements DepartmentService on top of a store and a sync manager
type departmentSvc struct {
	store   store.Store
	manager sync.Manager
	tracer  trace.Tracer

	ttl               time.Duration
	backgroundTimeout time.Duration
	now               func() time.Time

	// refreshing is set while a stale-read refresh is in flight
	refreshing atomic.Bool
	// refreshDone, when set, is called after each background refresh
	refreshDone func()
}

var _ DepartmentService = (*departmentSvc)(nil)

// Option is a functional option for configuring the department service
type Option func(*departmentSvc)

// WithTTL sets how old the newest lastSyncAt may be before reads refresh in the background
func WithTTL(ttl time.Duration) Option {
	return func(s *departmentSvc) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithBackgroundTimeout bounds a background refresh, which outlives the request that started it
func WithBackgroundTimeout(timeout time.Duration) Option {
	return func(s *departmentSvc) {
		if timeout > 0 {
			s.backgroundTimeout = timeout
		}
	}
}

// WithTracerProvider sets the provider used for service spans
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *departmentSvc) {
		if tp != nil {
			s.tracer = tp.Tracer(TracerName)
		}
	}
}

// WithClock replaces time.Now, for tests
func WithClock(now func() time.Time) Option {
	return func(s *departmentSvc) {
		if now != nil {
			s.now = now
		}
	}
}

// New creates a department service. Both the store and the manager are required.
func New(st store.Store, manager sync.Manager, opts ...Option) (DepartmentService, error) {
	if st == nil {
		return nil, fmt.Errorf("department store is required")
	}
	if manager == nil {
		return nil, fmt.Errorf("sync manager is required")
	}

	s := &departmentSvc{
		store:             st,
		manager:           manager,
		tracer:            noop.NewTracerProvider().Tracer(TracerName),
		ttl:               config.DefaultTTL,
		backgroundTimeout: config.DefaultFetchTimeout,
		now:               time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// CheckReadiness checks that the store can be queried
func (s *departmentSvc) CheckReadiness(ctx context.Context) error {
	if _, err := s.store.Count(ctx); err != nil {
		return fmt.Errorf("department store is not ready: %w", err)
	}
	return nil
}

// GetAll returns every department. An empty store or forceRefresh syncs first;
// stale data is returned as is while a background refresh runs.
func (s *departmentSvc) GetAll(ctx context.Context, forceRefresh bool) (_ []*department.Department, retErr error) {
	ctx, span := otel.StartSpan(ctx, s.tracer, "DepartmentService.GetAll",
		trace.WithAttributes(otel.AttrSyncForce.Bool(forceRefresh)),
	)
	defer func() {
		otel.RecordError(span, retErr)
		span.End()
	}()

	rows, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list departments: %w", err)
	}

	if forceRefresh || len(rows) == 0 {
		if _, err := s.synchronize(ctx, forceRefresh, sync.TriggerReadMiss); err != nil {
			return nil, err
		}
		rows, err = s.store.List(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list departments: %w", err)
		}
		span.SetAttributes(otel.AttrResultCount.Int(len(rows)))
		return rows, nil
	}

	stale, err := s.isStale(ctx)
	if err != nil {
		// Staleness only decides whether to refresh; the rows are still good
		slog.Warn("Failed to read last sync time", "error", err)
	}
	span.SetAttributes(otel.AttrSyncStale.Bool(stale), otel.AttrResultCount.Int(len(rows)))
	if stale {
		s.refreshInBackground(ctx)
	}

	return rows, nil
}

// GetByID returns a department by internal id, syncing once when it is missing
func (s *departmentSvc) GetByID(
	ctx context.Context,
	id uuid.UUID,
	forceRefresh bool,
) (_ *department.Department, retErr error) {
	ctx, span := otel.StartSpan(ctx, s.tracer, "DepartmentService.GetByID",
		trace.WithAttributes(
			otel.AttrDepartmentID.String(id.String()),
			otel.AttrSyncForce.Bool(forceRefresh),
		),
	)
	defer func() {
		otel.RecordError(span, retErr)
		span.End()
	}()

	return s.getOne(ctx, forceRefresh, func(ctx context.Context) (*department.Department, error) {
		return s.store.GetByID(ctx, id)
	})
}

// GetByExternalID returns a department by upstream id, syncing once when it is missing
func (s *departmentSvc) GetByExternalID(
	ctx context.Context,
	externalID string,
	forceRefresh bool,
) (_ *department.Department, retErr error) {
	ctx, span := otel.StartSpan(ctx, s.tracer, "DepartmentService.GetByExternalID",
		trace.WithAttributes(
			otel.AttrDepartmentExternalID.String(externalID),
			otel.AttrSyncForce.Bool(forceRefresh),
		),
	)
	defer func() {
		otel.RecordError(span, retErr)
		span.End()
	}()

	return s.getOne(ctx, forceRefresh, func(ctx context.Context) (*department.Department, error) {
		return s.store.GetByExternalID(ctx, externalID)
	})
}

// getOne reads a single department, and on a miss or forced read syncs and reads
// exactly once more. A department still missing after the sync is (nil, nil).
func (s *departmentSvc) getOne(
	ctx context.Context,
	forceRefresh bool,
	read func(context.Context) (*department.Department, error),
) (*department.Department, error) {
	if !forceRefresh {
		dept, err := read(ctx)
		if err == nil {
			return dept, nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("failed to get department: %w", err)
		}
	}

	if _, err := s.synchronize(ctx, forceRefresh, sync.TriggerReadMiss); err != nil {
		return nil, err
	}

	dept, err := read(ctx)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get department: %w", err)
	}
	return dept, nil
}

// Children lists the direct children of a department without syncing
func (s *departmentSvc) Children(ctx context.Context, externalID string) (_ []*department.Department, retErr error) {
	ctx, span := otel.StartSpan(ctx, s.tracer, "DepartmentService.Children",
		trace.WithAttributes(otel.AttrDepartmentExternalID.String(externalID)),
	)
	defer func() {
		otel.RecordError(span, retErr)
		span.End()
	}()

	if _, err := s.store.GetByExternalID(ctx, externalID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get department %s: %w", externalID, err)
	}

	children, err := s.store.ListByParentExternalID(ctx, externalID)
	if err != nil {
		return nil, fmt.Errorf("failed to list children of %s: %w", externalID, err)
	}
	if children == nil {
		children = []*department.Department{}
	}
	return children, nil
}

// SynchronizeNow runs a manual sync
func (s *departmentSvc) SynchronizeNow(ctx context.Context, force bool) (*sync.Result, error) {
	return s.synchronize(ctx, force, sync.TriggerManual)
}

// Hierarchy builds the department forest from the current store contents
func (s *departmentSvc) Hierarchy(ctx context.Context) (_ []*hierarchy.Node, retErr error) {
	ctx, span := otel.StartSpan(ctx, s.tracer, "DepartmentService.Hierarchy")
	defer func() {
		otel.RecordError(span, retErr)
		span.End()
	}()

	rows, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list departments: %w", err)
	}

	roots, err := hierarchy.BuildHierarchy(rows)
	if err != nil {
		return nil, err
	}

	if orphans := hierarchy.CountOrphans(roots); orphans > 0 {
		slog.Warn("Departments reference missing parents",
			"orphans", orphans,
			"departments", len(rows))
	}
	span.SetAttributes(otel.AttrResultCount.Int(len(roots)))

	return roots, nil
}

func (s *departmentSvc) synchronize(ctx context.Context, force bool, trigger sync.Trigger) (_ *sync.Result, retErr error) {
	ctx, span := otel.StartSpan(ctx, s.tracer, "DepartmentService.Synchronize",
		trace.WithAttributes(
			otel.AttrSyncForce.Bool(force),
			otel.AttrSyncTrigger.String(string(trigger)),
		),
	)
	defer func() {
		otel.RecordError(span, retErr)
		span.End()
	}()

	return s.manager.Synchronize(sync.WithTrigger(ctx, trigger), force)
}

// isStale reports whether the newest lastSyncAt is missing or older than the TTL
func (s *departmentSvc) isStale(ctx context.Context) (bool, error) {
	latest, err := s.store.LatestSyncAt(ctx)
	if err != nil {
		return false, err
	}
	if latest == nil {
		return true, nil
	}
	return s.now().Sub(*latest) > s.ttl, nil
}

// refreshInBackground starts a sync detached from the caller's cancellation.
// At most one background refresh runs at a time; further stale reads while it
// is in flight do not start another.
func (s *departmentSvc) refreshInBackground(ctx context.Context) {
	if !s.refreshing.CompareAndSwap(false, true) {
		return
	}

	bgCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.backgroundTimeout)
	go func() {
		defer func() {
			cancel()
			s.refreshing.Store(false)
			if s.refreshDone != nil {
				s.refreshDone()
			}
		}()

		result, err := s.synchronize(bgCtx, false, sync.TriggerStaleRead)
		if err != nil {
			slog.Error("Background department refresh failed", "error", err)
			return
		}
		slog.Debug("Background department refresh finished",
			"success", result.Success,
			"created", result.Created,
			"updated", result.Updated,
			"errors", len(result.Errors))
	}()
}
