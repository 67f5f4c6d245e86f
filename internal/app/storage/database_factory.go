package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/trace"

	"github.com/stacklok/gitsorted/database"
	"github.com/stacklok/gitsorted/internal/config"
	"github.com/stacklok/gitsorted/internal/db"
	"github.com/stacklok/gitsorted/internal/service"
	"github.com/stacklok/gitsorted/internal/sync/state"
	"github.com/stacklok/gitsorted/internal/sync/writer"
)

// DatabaseFactory creates postgres-backed storage components.
type DatabaseFactory struct {
	config *config.Config
	pool   *pgxpool.Pool
	tracer trace.Tracer
}

var _ Factory = (*DatabaseFactory)(nil)

// NewDatabaseFactory applies pending migrations when configured, then opens
// the connection pool shared by every component.
func NewDatabaseFactory(ctx context.Context, cfg *config.Config, opts ...Option) (*DatabaseFactory, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	slog.Info("Creating database-backed storage factory")

	if cfg.Store.MigrateOnStart {
		connString, err := db.MigrationConnString(ctx, &cfg.Store)
		if err != nil {
			return nil, fmt.Errorf("failed to build migration connection string: %w", err)
		}
		if err := database.MigrateUp(ctx, connString); err != nil {
			return nil, fmt.Errorf("failed to apply migrations: %w", err)
		}
	}

	pool, err := db.NewPool(ctx, &cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("failed to create database connection pool: %w", err)
	}

	return newDatabaseFactory(cfg, pool, opts...), nil
}

func newDatabaseFactory(cfg *config.Config, pool *pgxpool.Pool, opts ...Option) *DatabaseFactory {
	return &DatabaseFactory{
		config: cfg,
		pool:   pool,
		tracer: applyOptions(opts).tracer,
	}
}

// CreateWatermarkReader creates a postgres watermark reader.
func (d *DatabaseFactory) CreateWatermarkReader(_ context.Context) (state.WatermarkReader, error) {
	bootstrap, err := d.config.GetBootstrapWatermark()
	if err != nil {
		return nil, err
	}
	slog.Debug("Creating database-backed watermark reader", "column", watermarkColumn(d.config))
	return state.NewDBWatermarkReader(d.pool, d.config.Store.Table, watermarkColumn(d.config), bootstrap)
}

// CreateIssueWriter creates a postgres issue writer.
func (d *DatabaseFactory) CreateIssueWriter(_ context.Context) (writer.IssueWriter, error) {
	slog.Debug("Creating database-backed issue writer")
	return writer.NewDBIssueWriter(d.pool, d.config.Store.Table)
}

// CreateIssueService creates the postgres display service.
func (d *DatabaseFactory) CreateIssueService(_ context.Context) (service.IssueService, error) {
	slog.Debug("Creating database-backed issue service")
	var opts []service.Option
	if d.tracer != nil {
		opts = append(opts, service.WithTracer(d.tracer))
	}
	return service.NewDBService(d.pool, d.config.Store.Table, opts...)
}

// Cleanup closes the connection pool.
func (d *DatabaseFactory) Cleanup() {
	if d.pool != nil {
		slog.Info("Closing database connection pool")
		d.pool.Close()
	}
}
