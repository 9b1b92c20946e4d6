// Package otel holds small tracing helpers shared by the service layers.
package otel

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys used on department spans
const (
	AttrDepartmentID         = attribute.Key("department.id")
	AttrDepartmentExternalID = attribute.Key("department.external_id")
	AttrSyncForce            = attribute.Key("sync.force")
	AttrSyncTrigger          = attribute.Key("sync.trigger")
	AttrSyncStale            = attribute.Key("sync.stale")
	AttrResultCount          = attribute.Key("result.count")
)

// StartSpan starts a span on tracer. A nil tracer returns the span already in ctx,
// which is a no-op span when none is present.
func StartSpan(
	ctx context.Context,
	tracer trace.Tracer,
	name string,
	opts ...trace.SpanStartOption,
) (context.Context, trace.Span) {
	if tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return tracer.Start(ctx, name, opts...)
}

// RecordError attaches err to span and marks it failed. The status description
// stays generic; details live in the recorded error event.
func RecordError(span trace.Span, err error) {
	if err == nil || span == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, "operation failed")
}
