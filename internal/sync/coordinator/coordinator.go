package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/stacklok/gitsorted/internal/config"
	pkgsync "github.com/stacklok/gitsorted/internal/sync"
	"github.com/stacklok/gitsorted/internal/telemetry"
)

// Coordinator manages background tick scheduling
type Coordinator interface {
	// Start begins the tick loop. Blocks until ctx is cancelled or Stop is called.
	Start(ctx context.Context) error

	// Stop ends the loop and waits for an in-flight tick
	Stop() error
}

type defaultCoordinator struct {
	engine   pkgsync.Engine
	interval time.Duration

	mu         sync.Mutex
	cancelFunc context.CancelFunc
	done       chan struct{}
	ticks      sync.WaitGroup

	syncMetrics *telemetry.SyncMetrics
}

// Option is a function that configures the coordinator
type Option func(*defaultCoordinator)

// WithSyncMetrics sets the sync metrics for the coordinator
func WithSyncMetrics(metrics *telemetry.SyncMetrics) Option {
	return func(c *defaultCoordinator) {
		c.syncMetrics = metrics
	}
}

// WithInterval overrides the configured tick interval
func WithInterval(interval time.Duration) Option {
	return func(c *defaultCoordinator) {
		if interval > 0 {
			c.interval = interval
		}
	}
}

// New creates a new coordinator with injected dependencies
func New(engine pkgsync.Engine, cfg *config.Config, opts ...Option) Coordinator {
	c := &defaultCoordinator{
		engine:   engine,
		interval: getTickInterval(cfg),
		done:     make(chan struct{}),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Start begins background tick scheduling
func (c *defaultCoordinator) Start(ctx context.Context) error {
	coordCtx, cancel := context.WithCancel(ctx)
	c.mu.Lock()
	if c.cancelFunc != nil {
		c.mu.Unlock()
		cancel()
		return fmt.Errorf("coordinator already started")
	}
	c.cancelFunc = cancel
	c.mu.Unlock()

	slog.Info("Starting background sync coordinator", "interval", c.interval)
	defer func() {
		c.ticks.Wait()
		close(c.done)
		slog.Info("Background sync coordinator shutting down")
	}()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.launchTick(coordCtx)

	for {
		select {
		case <-ticker.C:
			c.launchTick(coordCtx)
		case <-coordCtx.Done():
			slog.Info("Sync coordinator stopping")
			return nil
		}
	}
}

// Stop gracefully stops the coordinator
func (c *defaultCoordinator) Stop() error {
	c.mu.Lock()
	cancel := c.cancelFunc
	c.mu.Unlock()

	if cancel != nil {
		slog.Info("Stopping sync coordinator")
		cancel()
		<-c.done
	}
	return nil
}

func (c *defaultCoordinator) launchTick(ctx context.Context) {
	c.ticks.Add(1)
	go func() {
		defer c.ticks.Done()
		c.runTick(ctx)
	}()
}

// runTick executes one tick and logs its outcome. Panics are contained here.
func (c *defaultCoordinator) runTick(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Tick panicked", "panic", r)
		}
	}()

	result, err := c.engine.Tick(ctx)
	switch {
	case errors.Is(err, pkgsync.ErrTickInProgress):
		slog.Warn("Skipping tick, previous tick still running")
		c.syncMetrics.RecordTick(ctx, telemetry.OutcomeSkipped, 0)
	case err != nil:
		attrs := []any{"error", err}
		if result != nil {
			attrs = append(attrs, "tick_id", result.TickID, "state", result.State)
		}
		slog.Error("Tick failed", attrs...)
	default:
		slog.Debug("Tick completed",
			"tick_id", result.TickID,
			"candidates", len(result.Batch),
			"committed", result.Committed)
	}
}
