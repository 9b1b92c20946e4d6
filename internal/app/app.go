// Package app provides application lifecycle management for the department sync server.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/stacklok/department-sync/internal/config"
	"github.com/stacklok/department-sync/internal/service"
)

// DepartmentApp encapsulates all components needed to run the department API server.
// It provides lifecycle management and graceful shutdown capabilities.
type DepartmentApp struct {
	config     *config.Config
	components *AppComponents
	httpServer *http.Server

	// Lifecycle management
	ctx        context.Context
	cancelFunc context.CancelFunc
}

// Start starts the sync coordinator in the background and serves HTTP.
// It blocks until the HTTP server stops or encounters an error.
func (app *DepartmentApp) Start() error {
	go func() {
		if err := app.components.SyncCoordinator.Start(app.ctx); err != nil {
			slog.Error("Sync coordinator failed", "error", err)
		}
	}()

	slog.Info("Server listening", "address", app.httpServer.Addr)
	if err := app.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("HTTP server failed: %w", err)
	}

	return nil
}

// Stop stops the sync coordinator, then shuts down the HTTP server within timeout.
func (app *DepartmentApp) Stop(timeout time.Duration) error {
	slog.Info("Shutting down server")

	if err := app.components.SyncCoordinator.Stop(); err != nil {
		slog.Error("Failed to stop sync coordinator", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	err := app.httpServer.Shutdown(shutdownCtx)

	// storage is released only once in-flight requests are done with it
	if app.cancelFunc != nil {
		app.cancelFunc()
	}

	if err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	slog.Info("Server shutdown complete")
	return nil
}

// GetConfig returns the application configuration
func (app *DepartmentApp) GetConfig() *config.Config {
	return app.config
}

// GetHTTPServer returns the HTTP server (useful for testing to get the actual port)
func (app *DepartmentApp) GetHTTPServer() *http.Server {
	return app.httpServer
}

// Service returns the department service, used by commands that run a sync
// without serving HTTP.
func (app *DepartmentApp) Service() service.DepartmentService {
	return app.components.DepartmentService
}

// Close releases storage without starting the app. It is for one-shot
// commands; a started app is released by Stop.
func (app *DepartmentApp) Close() {
	if app.cancelFunc != nil {
		app.cancelFunc()
	}
}
