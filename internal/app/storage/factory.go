// Package storage provides factory functions for creating storage-dependent components.
// It implements the Abstract Factory pattern so the watermark reader, the issue
// writer and the display service share one store client.
package storage

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/trace"

	"github.com/stacklok/gitsorted/internal/config"
	"github.com/stacklok/gitsorted/internal/service"
	"github.com/stacklok/gitsorted/internal/sync/state"
	"github.com/stacklok/gitsorted/internal/sync/writer"
)

//go:generate mockgen -destination=mocks/mock_factory.go -package=mocks -source=factory.go Factory

// Factory creates storage-dependent components as a family.
//
// The factory encapsulates the creation of:
// - WatermarkReader: reads the watermark at the start of a tick
// - IssueWriter: commits a tick's batch
// - IssueService: serves the display endpoints
//
// All of them use the single store client owned by the factory.
type Factory interface {
	// CreateWatermarkReader creates the watermark reader for the sync engine.
	CreateWatermarkReader(ctx context.Context) (state.WatermarkReader, error)

	// CreateIssueWriter creates the persistence writer for the sync engine.
	CreateIssueWriter(ctx context.Context) (writer.IssueWriter, error)

	// CreateIssueService creates the read-only display service.
	CreateIssueService(ctx context.Context) (service.IssueService, error)

	// Cleanup releases the store client.
	// Should be called when the application shuts down.
	Cleanup()
}

// Option configures a storage factory
type Option func(*factoryOptions)

type factoryOptions struct {
	tracer trace.Tracer
}

// WithTracer sets the OpenTelemetry tracer for the display service.
// If not set, tracing will be disabled (no-op).
func WithTracer(tracer trace.Tracer) Option {
	return func(o *factoryOptions) {
		o.tracer = tracer
	}
}

// NewStorageFactory creates a storage factory based on the configured store type.
func NewStorageFactory(ctx context.Context, cfg *config.Config, opts ...Option) (Factory, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	switch cfg.GetStoreType() {
	case config.StoreTypePostgres:
		return NewDatabaseFactory(ctx, cfg, opts...)
	case config.StoreTypePostgREST:
		return NewRESTFactory(cfg, opts...)
	default:
		return nil, fmt.Errorf("unknown store type: %s", cfg.GetStoreType())
	}
}

func applyOptions(opts []Option) *factoryOptions {
	o := &factoryOptions{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// watermarkColumn maps the watermark source setting to a column name
func watermarkColumn(cfg *config.Config) string {
	if cfg.Sync.WatermarkSource == config.WatermarkSourceCreatedAt {
		return config.WatermarkSourceCreatedAt
	}
	return config.WatermarkSourceLastProcessed
}
