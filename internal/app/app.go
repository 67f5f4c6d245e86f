// Package app provides application lifecycle management for the issue sync service.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofrs/flock"

	"github.com/stacklok/gitsorted/internal/config"
)

// ErrLocked is returned by Start when another process holds the lock file.
var ErrLocked = errors.New("another gitsorted instance holds the lock file")

// SyncApp encapsulates the scheduler and the display server
// It provides lifecycle management and graceful shutdown capabilities
type SyncApp struct {
	config     *config.Config
	components *AppComponents
	httpServer *http.Server

	// Lifecycle management
	ctx        context.Context
	cancelFunc context.CancelFunc
}

// Start acquires the lock file when configured, starts the coordinator in the
// background and serves HTTP. It blocks until the HTTP server stops.
func (app *SyncApp) Start() error {
	if err := app.lock(); err != nil {
		return err
	}

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

// lock takes the single-scheduler lock file
func (app *SyncApp) lock() error {
	if app.config == nil || app.config.Server.LockFile == "" {
		return nil
	}

	fl := flock.New(app.config.Server.LockFile)
	locked, err := fl.TryLock()
	if err != nil {
		return fmt.Errorf("failed to acquire lock file %s: %w", app.config.Server.LockFile, err)
	}
	if !locked {
		return fmt.Errorf("%w: %s", ErrLocked, app.config.Server.LockFile)
	}
	app.components.Lock = fl
	slog.Debug("Lock file acquired", "path", app.config.Server.LockFile)
	return nil
}

// Stop stops the coordinator, waits for an in-flight tick, then shuts the
// HTTP server down within timeout.
func (app *SyncApp) Stop(timeout time.Duration) error {
	slog.Info("Shutting down server...")

	if err := app.components.SyncCoordinator.Stop(); err != nil {
		slog.Error("Failed to stop sync coordinator", "error", err)
	}

	if app.cancelFunc != nil {
		app.cancelFunc()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	err := app.httpServer.Shutdown(shutdownCtx)

	if app.components.Lock != nil {
		if unlockErr := app.components.Lock.Unlock(); unlockErr != nil {
			slog.Warn("Failed to release lock file", "error", unlockErr)
		}
	}

	if err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	slog.Info("Server shutdown complete")
	return nil
}

// GetConfig returns the application configuration
func (app *SyncApp) GetConfig() *config.Config {
	return app.config
}

// GetHTTPServer returns the HTTP server (useful for testing to get the actual port)
func (app *SyncApp) GetHTTPServer() *http.Server {
	return app.httpServer
}
