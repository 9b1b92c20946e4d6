package app

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	deptapp "github.com/stacklok/department-sync/internal/app"
	"github.com/stacklok/department-sync/internal/telemetry"
	"github.com/stacklok/department-sync/internal/versions"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the department API server",
	Long: `Start the department API server. Departments are synchronized from the
configured source on a schedule, on demand via POST /v1/sync, and whenever a
read finds the local store empty or stale.

The server requires a configuration file (--config) that specifies:
- the department source (api or file)
- the storage backend (database or memory)
- sync policy (enabled, ttl, interval, identity)`,
	RunE: runServe,
}

const (
	defaultGracefulTimeout = 30 * time.Second
	telemetryFlushTimeout  = 5 * time.Second
)

func init() {
	serveCmd.Flags().String("address", ":8080", "Address to listen on")
	serveCmd.Flags().String("config", "", "Path to configuration file (YAML format, required)")

	if err := viper.BindPFlag("address", serveCmd.Flags().Lookup("address")); err != nil {
		slog.Error("Failed to bind address flag", "error", err)
	}

	if err := serveCmd.MarkFlagRequired("config"); err != nil {
		slog.Error("Failed to mark config flag as required", "error", err)
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	slog.Info("Loaded configuration",
		"source", cfg.Source.Type,
		"storage", cfg.GetStorageType(),
		"sync_enabled", cfg.IsSyncEnabled(),
	)

	if cfg.Telemetry != nil && cfg.Telemetry.ServiceVersion == "" {
		cfg.Telemetry.ServiceVersion = versions.GetVersionInfo().Version
	}
	tel, err := telemetry.New(ctx, cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), telemetryFlushTimeout)
		defer cancel()
		if err := tel.Shutdown(flushCtx); err != nil {
			slog.Error("Failed to shutdown telemetry", "error", err)
		}
	}()

	server, err := deptapp.NewDepartmentApp(ctx,
		deptapp.WithConfig(cfg),
		deptapp.WithAddress(viper.GetString("address")),
		deptapp.WithMeterProvider(tel.MeterProvider()),
		deptapp.WithTracerProvider(tel.TracerProvider()),
	)
	if err != nil {
		return fmt.Errorf("failed to build application: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(server.Start)
	g.Go(func() error {
		<-gctx.Done()
		return server.Stop(defaultGracefulTimeout)
	})

	return g.Wait()
}
