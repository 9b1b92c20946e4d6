package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// SyncMetricsMeterName is the meter name for synchronization metrics
const SyncMetricsMeterName = "github.com/stacklok/department-sync/sync"

// Record outcomes reported by RecordOutcomes
const (
	OutcomeCreated = "created"
	OutcomeUpdated = "updated"
	OutcomeFailed  = "failed"
)

// SyncMetrics holds the instruments describing synchronization runs.
// All methods are no-ops on a nil receiver.
type SyncMetrics struct {
	duration    metric.Float64Histogram
	records     metric.Int64Counter
	departments metric.Int64Gauge
}

// NewSyncMetrics creates the sync instruments. A nil provider yields nil metrics.
func NewSyncMetrics(provider metric.MeterProvider) (*SyncMetrics, error) {
	if provider == nil {
		return nil, nil
	}

	meter := provider.Meter(SyncMetricsMeterName)

	duration, err := meter.Float64Histogram(
		"dept_sync_duration_seconds",
		metric.WithDescription("Duration of department synchronization runs in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120),
	)
	if err != nil {
		return nil, err
	}

	records, err := meter.Int64Counter(
		"dept_sync_records_total",
		metric.WithDescription("Upstream department records processed, by outcome"),
		metric.WithUnit("{record}"),
	)
	if err != nil {
		return nil, err
	}

	departments, err := meter.Int64Gauge(
		"dept_sync_departments",
		metric.WithDescription("Number of departments held locally"),
		metric.WithUnit("{department}"),
	)
	if err != nil {
		return nil, err
	}

	return &SyncMetrics{
		duration:    duration,
		records:     records,
		departments: departments,
	}, nil
}

// RecordSyncDuration records how long a run took. trigger names what started it
// (for example "scheduled", "manual" or "stale-read").
func (m *SyncMetrics) RecordSyncDuration(ctx context.Context, trigger string, duration time.Duration, success bool) {
	if m == nil {
		return
	}
	m.duration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("trigger", trigger),
		attribute.Bool("success", success),
	))
}

// RecordOutcomes adds per-outcome record counts. Zero counts are skipped.
func (m *SyncMetrics) RecordOutcomes(ctx context.Context, created, updated, failed int) {
	if m == nil {
		return
	}
	for outcome, n := range map[string]int{
		OutcomeCreated: created,
		OutcomeUpdated: updated,
		OutcomeFailed:  failed,
	} {
		if n == 0 {
			continue
		}
		m.records.Add(ctx, int64(n), metric.WithAttributes(attribute.String("outcome", outcome)))
	}
}

// RecordDepartments records the current local department count
func (m *SyncMetrics) RecordDepartments(ctx context.Context, count int) {
	if m == nil {
		return
	}
	m.departments.Record(ctx, int64(count))
}
