package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// DefaultMetricsInterval is how often metrics are pushed to the collector
const DefaultMetricsInterval = 60 * time.Second

// providerOptions is shared by the tracer and meter provider constructors
type providerOptions struct {
	serviceName    string
	serviceVersion string
	endpoint       string
	insecure       bool
	tracing        *TracingConfig
	metrics        *MetricsConfig
}

// ProviderOption configures NewTracerProvider and NewMeterProvider
type ProviderOption func(*providerOptions)

// WithServiceName sets the service.name resource attribute
func WithServiceName(name string) ProviderOption {
	return func(o *providerOptions) {
		o.serviceName = name
	}
}

// WithServiceVersion sets the service.version resource attribute
func WithServiceVersion(version string) ProviderOption {
	return func(o *providerOptions) {
		o.serviceVersion = version
	}
}

// WithEndpoint sets the OTLP/HTTP collector endpoint
func WithEndpoint(endpoint string, insecure bool) ProviderOption {
	return func(o *providerOptions) {
		o.endpoint = endpoint
		o.insecure = insecure
	}
}

// WithTracingConfig enables tracing when tc is non-nil and enabled
func WithTracingConfig(tc *TracingConfig) ProviderOption {
	return func(o *providerOptions) {
		o.tracing = tc
	}
}

// WithMetricsConfig enables metrics when mc is non-nil and enabled
func WithMetricsConfig(mc *MetricsConfig) ProviderOption {
	return func(o *providerOptions) {
		o.metrics = mc
	}
}

func withCommon(common providerOptions) ProviderOption {
	return func(o *providerOptions) {
		o.serviceName = common.serviceName
		o.serviceVersion = common.serviceVersion
		o.endpoint = common.endpoint
		o.insecure = common.insecure
	}
}

func newProviderOptions(opts []ProviderOption) *providerOptions {
	o := &providerOptions{
		serviceName:    DefaultServiceName,
		serviceVersion: "unknown",
		endpoint:       DefaultEndpoint,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *providerOptions) resource(ctx context.Context) (*resource.Resource, error) {
	// resource.New rather than resource.Default avoids schema URL conflicts
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(o.serviceName),
			semconv.ServiceVersion(o.serviceVersion),
		),
		resource.WithHost(),
		resource.WithTelemetrySDK(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}
	return res, nil
}

// NewTracerProvider returns an SDK tracer provider exporting over OTLP/HTTP, or a
// no-op provider when tracing is not enabled. The SDK provider is also installed
// globally together with the W3C trace context propagator.
func NewTracerProvider(ctx context.Context, opts ...ProviderOption) (trace.TracerProvider, error) {
	o := newProviderOptions(opts)
	if o.tracing == nil || !o.tracing.Enabled {
		slog.Info("Tracing disabled, using no-op tracer provider")
		return tracenoop.NewTracerProvider(), nil
	}

	res, err := o.resource(ctx)
	if err != nil {
		return nil, err
	}

	exporterOpts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(o.endpoint)}
	if o.insecure {
		exporterOpts = append(exporterOpts, otlptracehttp.WithInsecure())
	}
	exporter, err := otlptracehttp.New(ctx, exporterOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP trace exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithBatcher(exporter),
		sdktrace.WithSampler(sdktrace.TraceIDRatioBased(o.tracing.GetSampling())),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	if o.insecure {
		slog.Warn("Tracing exports over plain HTTP")
	}
	slog.Info("Tracing initialized",
		"endpoint", o.endpoint,
		"sampling_ratio", o.tracing.GetSampling(),
	)
	return tp, nil
}

// NewMeterProvider returns an SDK meter provider with a periodic OTLP/HTTP reader,
// or a no-op provider when metrics are not enabled.
func NewMeterProvider(ctx context.Context, opts ...ProviderOption) (metric.MeterProvider, error) {
	o := newProviderOptions(opts)
	if o.metrics == nil || !o.metrics.Enabled {
		slog.Info("Metrics disabled, using no-op meter provider")
		return metricnoop.NewMeterProvider(), nil
	}

	res, err := o.resource(ctx)
	if err != nil {
		return nil, err
	}

	exporterOpts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(o.endpoint)}
	if o.insecure {
		exporterOpts = append(exporterOpts, otlpmetrichttp.WithInsecure())
	}
	exporter, err := otlpmetrichttp.New(ctx, exporterOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP metric exporter: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(DefaultMetricsInterval))),
	)
	otel.SetMeterProvider(mp)

	slog.Info("Metrics initialized", "endpoint", o.endpoint)
	return mp, nil
}
