package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/netip"
	"strings"
	gosync "sync"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/stacklok/department-sync/internal/api"
	"github.com/stacklok/department-sync/internal/app/storage"
	"github.com/stacklok/department-sync/internal/config"
	"github.com/stacklok/department-sync/internal/service"
	"github.com/stacklok/department-sync/internal/sources"
	pkgsync "github.com/stacklok/department-sync/internal/sync"
	"github.com/stacklok/department-sync/internal/sync/coordinator"
	"github.com/stacklok/department-sync/internal/sync/state"
	"github.com/stacklok/department-sync/internal/telemetry"
)

const (
	defaultHTTPAddress = ":8080"
	defaultReadTimeout = 10 * time.Second
	defaultIdleTimeout = 60 * time.Second

	// requestTimeoutMargin is added to the fetch timeout so a blocking sync
	// can finish its write and respond inside one request
	requestTimeoutMargin = 10 * time.Second
	writeTimeoutMargin   = 5 * time.Second
)

// DepartmentAppOptions is a function that configures the department app builder
type DepartmentAppOptions func(*departmentAppConfig) error

// departmentAppConfig holds everything NewDepartmentApp needs. Component
// overrides are primarily for tests.
type departmentAppConfig struct {
	config *config.Config

	// Optional component overrides
	source         sources.Source
	syncManager    pkgsync.Manager
	storageFactory storage.Factory

	// HTTP server options
	address        string
	middlewares    []func(http.Handler) http.Handler
	requestTimeout time.Duration
	readTimeout    time.Duration
	writeTimeout   time.Duration
	idleTimeout    time.Duration

	// Telemetry components
	meterProvider  metric.MeterProvider
	tracerProvider trace.TracerProvider
}

func baseConfig(opts ...DepartmentAppOptions) (*departmentAppConfig, error) {
	cfg := &departmentAppConfig{
		address:     defaultHTTPAddress,
		readTimeout: defaultReadTimeout,
		idleTimeout: defaultIdleTimeout,
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	if cfg.config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	if cfg.requestTimeout == 0 {
		cfg.requestTimeout = cfg.config.GetFetchTimeout() + requestTimeoutMargin
	}
	cfg.writeTimeout = cfg.requestTimeout + writeTimeoutMargin

	return cfg, nil
}

// NewDepartmentApp wires storage, the sync pipeline, the department service
// and the HTTP server from the given options.
func NewDepartmentApp(
	ctx context.Context,
	opts ...DepartmentAppOptions,
) (*DepartmentApp, error) {
	cfg, err := baseConfig(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to build base configuration: %w", err)
	}

	// single decision point for database vs memory storage
	if cfg.storageFactory == nil {
		cfg.storageFactory, err = storage.NewStorageFactory(ctx, cfg.config)
		if err != nil {
			return nil, fmt.Errorf("failed to create storage factory: %w", err)
		}
	}

	var cleanupNeeded = true
	defer func() {
		if cleanupNeeded {
			cfg.storageFactory.Cleanup()
		}
	}()

	statusSvc, err := buildStateService(ctx, cfg)
	if err != nil {
		return nil, err
	}

	syncCoordinator, manager, err := buildSyncComponents(ctx, cfg, statusSvc)
	if err != nil {
		return nil, fmt.Errorf("failed to build sync components: %w", err)
	}

	departmentService, err := buildServiceComponents(ctx, cfg, manager)
	if err != nil {
		return nil, fmt.Errorf("failed to build service components: %w", err)
	}

	httpServer, err := buildHTTPServer(cfg, departmentService, statusSvc)
	if err != nil {
		return nil, fmt.Errorf("failed to build HTTP server: %w", err)
	}

	appCtx, cancel := context.WithCancel(ctx)

	// the app owns storage cleanup from here on
	cleanupNeeded = false

	var once gosync.Once
	cancelFunc := func() {
		once.Do(func() {
			cancel()
			cfg.storageFactory.Cleanup()
		})
	}

	return &DepartmentApp{
		config: cfg.config,
		components: &AppComponents{
			SyncCoordinator:   syncCoordinator,
			DepartmentService: departmentService,
			SyncStatus:        statusSvc,
		},
		httpServer: httpServer,
		ctx:        appCtx,
		cancelFunc: cancelFunc,
	}, nil
}

// WithConfig sets the configuration
func WithConfig(c *config.Config) DepartmentAppOptions {
	return func(cfg *departmentAppConfig) error {
		cfg.config = c
		return nil
	}
}

// WithAddress sets the HTTP server address
func WithAddress(addr string) DepartmentAppOptions {
	return func(cfg *departmentAppConfig) error {
		if addr == "" {
			return fmt.Errorf("address cannot be empty")
		}

		parts := strings.SplitN(addr, ":", 2)
		if len(parts) != 2 || parts[1] == "" {
			return fmt.Errorf("address is not a valid port: %s", addr)
		}
		host, port := parts[0], parts[1]

		if host == "localhost" {
			host = "127.0.0.1"
		}
		if host == "" {
			host = "0.0.0.0"
		}

		if _, err := netip.ParseAddrPort(host + ":" + port); err != nil {
			return fmt.Errorf("address is not a valid port: %w", err)
		}

		cfg.address = addr
		return nil
	}
}

// WithMiddlewares replaces the default HTTP middlewares
func WithMiddlewares(mw ...func(http.Handler) http.Handler) DepartmentAppOptions {
	return func(cfg *departmentAppConfig) error {
		cfg.middlewares = mw
		return nil
	}
}

// WithStorageFactory allows injecting a custom storage factory (for testing)
func WithStorageFactory(f storage.Factory) DepartmentAppOptions {
	return func(cfg *departmentAppConfig) error {
		cfg.storageFactory = f
		return nil
	}
}

// WithSource allows injecting a custom department source (for testing)
func WithSource(s sources.Source) DepartmentAppOptions {
	return func(cfg *departmentAppConfig) error {
		cfg.source = s
		return nil
	}
}

// WithSyncManager allows injecting a custom sync manager (for testing).
// The manager is still wrapped so its runs are tracked.
func WithSyncManager(sm pkgsync.Manager) DepartmentAppOptions {
	return func(cfg *departmentAppConfig) error {
		cfg.syncManager = sm
		return nil
	}
}

// WithMeterProvider sets the OpenTelemetry meter provider for sync and HTTP metrics
func WithMeterProvider(mp metric.MeterProvider) DepartmentAppOptions {
	return func(cfg *departmentAppConfig) error {
		cfg.meterProvider = mp
		return nil
	}
}

// WithTracerProvider sets the OpenTelemetry tracer provider for service and HTTP spans
func WithTracerProvider(tp trace.TracerProvider) DepartmentAppOptions {
	return func(cfg *departmentAppConfig) error {
		cfg.tracerProvider = tp
		return nil
	}
}

// WithRequestTimeout bounds the handling of a single HTTP request. It defaults
// to the fetch timeout plus a margin, since reads may block on a sync.
func WithRequestTimeout(timeout time.Duration) DepartmentAppOptions {
	return func(cfg *departmentAppConfig) error {
		if timeout <= 0 {
			return fmt.Errorf("request timeout must be positive")
		}
		cfg.requestTimeout = timeout
		return nil
	}
}

func buildStateService(ctx context.Context, b *departmentAppConfig) (state.SyncStateService, error) {
	statusSvc, err := b.storageFactory.CreateStateService(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create state service: %w", err)
	}
	if err := statusSvc.Initialize(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize sync status: %w", err)
	}
	return statusSvc, nil
}

// buildSyncComponents builds the tracked sync manager and the coordinator
// that calls it on a schedule
func buildSyncComponents(
	ctx context.Context,
	b *departmentAppConfig,
	statusSvc state.SyncStateService,
) (coordinator.Coordinator, pkgsync.Manager, error) {
	slog.Info("Initializing sync components")

	syncMetrics, err := telemetry.NewSyncMetrics(b.meterProvider)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create sync metrics: %w", err)
	}
	if syncMetrics != nil {
		slog.Info("Sync metrics enabled")
	}

	if b.syncManager == nil {
		if b.source == nil {
			b.source, err = sources.NewSource(b.config)
			if err != nil {
				return nil, nil, fmt.Errorf("failed to create department source: %w", err)
			}
		}

		st, err := b.storageFactory.CreateStore(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create department store: %w", err)
		}
		syncWriter, err := b.storageFactory.CreateSyncWriter(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create sync writer: %w", err)
		}

		b.syncManager = pkgsync.NewDefaultSyncManager(
			b.source,
			st,
			syncWriter,
			pkgsync.WithIdentity(b.config.GetSyncIdentity()),
			pkgsync.WithEnabled(b.config.IsSyncEnabled()),
			pkgsync.WithFetchTimeout(b.config.GetFetchTimeout()),
			pkgsync.WithMetrics(syncMetrics),
		)
	}

	tracked := coordinator.NewTrackedManager(b.syncManager, statusSvc, syncMetrics)
	syncCoordinator := coordinator.New(tracked, b.config.GetSyncInterval())

	slog.Info("Sync components initialized successfully",
		"enabled", b.config.IsSyncEnabled(),
		"interval", b.config.GetSyncInterval(),
	)
	return syncCoordinator, tracked, nil
}

// buildServiceComponents builds the department service over the tracked manager
func buildServiceComponents(
	ctx context.Context,
	b *departmentAppConfig,
	manager pkgsync.Manager,
) (service.DepartmentService, error) {
	slog.Info("Initializing service components")

	st, err := b.storageFactory.CreateStore(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create department store: %w", err)
	}

	svcOpts := []service.Option{
		service.WithTTL(b.config.GetTTL()),
		service.WithBackgroundTimeout(b.config.GetFetchTimeout()),
	}
	if b.tracerProvider != nil {
		svcOpts = append(svcOpts, service.WithTracerProvider(b.tracerProvider))
	}

	svc, err := service.New(st, manager, svcOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create department service: %w", err)
	}

	slog.Info("Service components initialized successfully", "ttl", b.config.GetTTL())
	return svc, nil
}

// buildHTTPServer builds the HTTP server with router and middleware
func buildHTTPServer(
	b *departmentAppConfig,
	svc service.DepartmentService,
	statusSvc state.SyncStateService,
) (*http.Server, error) {
	slog.Info("Initializing HTTP server")

	if b.middlewares == nil {
		b.middlewares = []func(http.Handler) http.Handler{
			middleware.RequestID,
			middleware.RealIP,
			middleware.Recoverer,
			middleware.Timeout(b.requestTimeout),
			api.LoggingMiddleware,
		}
	}

	// telemetry wraps the whole chain so rejected requests are observed too
	var telemetryMiddlewares []func(http.Handler) http.Handler
	if b.tracerProvider != nil {
		telemetryMiddlewares = append(telemetryMiddlewares, telemetry.TracingMiddleware(b.tracerProvider))
	}
	httpMetrics, err := telemetry.NewHTTPMetrics(b.meterProvider)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP metrics: %w", err)
	}
	if httpMetrics != nil {
		telemetryMiddlewares = append(telemetryMiddlewares, httpMetrics.Middleware)
		slog.Info("HTTP metrics middleware enabled")
	}
	middlewares := append(telemetryMiddlewares, b.middlewares...)

	router := api.NewServer(svc,
		api.WithMiddlewares(middlewares...),
		api.WithSyncStatus(statusSvc),
	)

	return &http.Server{
		Addr:         b.address,
		Handler:      router,
		ReadTimeout:  b.readTimeout,
		WriteTimeout: b.writeTimeout,
		IdleTimeout:  b.idleTimeout,
	}, nil
}
