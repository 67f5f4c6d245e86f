package state

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stacklok/gitsorted/internal/db"
	"github.com/stacklok/gitsorted/internal/issues"
	"github.com/stacklok/gitsorted/internal/postgrest"
)

// latestStore is implemented by *db.Queries and *postgrest.Client
type latestStore interface {
	LatestBy(ctx context.Context, column string, limit int) ([]issues.Record, error)
}

type storeWatermarkReader struct {
	store     latestStore
	column    string
	bootstrap time.Time
}

// NewDBWatermarkReader reads the watermark from a postgres table.
func NewDBWatermarkReader(pool *pgxpool.Pool, table, column string, bootstrap time.Time) (WatermarkReader, error) {
	if pool == nil {
		return nil, fmt.Errorf("pgx pool is required")
	}
	return newStoreWatermarkReader(db.New(pool, table), column, bootstrap)
}

// NewRESTWatermarkReader reads the watermark through PostgREST.
func NewRESTWatermarkReader(client *postgrest.Client, column string, bootstrap time.Time) (WatermarkReader, error) {
	if client == nil {
		return nil, fmt.Errorf("postgrest client is required")
	}
	return newStoreWatermarkReader(client, column, bootstrap)
}

func newStoreWatermarkReader(store latestStore, column string, bootstrap time.Time) (*storeWatermarkReader, error) {
	switch column {
	case db.ColumnCreatedAt, db.ColumnLastProcessed:
	default:
		return nil, fmt.Errorf("unsupported watermark column %q", column)
	}
	return &storeWatermarkReader{
		store:     store,
		column:    column,
		bootstrap: bootstrap,
	}, nil
}

// ReadWatermark queries the record with the greatest watermark column and
// requires exactly one row, falling back to the bootstrap value on an empty store.
func (r *storeWatermarkReader) ReadWatermark(ctx context.Context) (time.Time, error) {
	records, err := r.store.LatestBy(ctx, r.column, 1)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to read watermark: %w", err)
	}

	switch len(records) {
	case 0:
		slog.InfoContext(ctx, "Issue store is empty, using bootstrap watermark",
			"watermark", r.bootstrap)
		return r.bootstrap, nil
	case 1:
	default:
		return time.Time{}, fmt.Errorf("%w: watermark query returned %d rows, expected 1",
			issues.ErrDataInvariant, len(records))
	}

	record := records[0]
	value := record.CreatedAt
	if r.column == db.ColumnLastProcessed {
		value = record.LastProcessed
	}
	if value.IsZero() {
		return time.Time{}, fmt.Errorf("%w: issue #%d has no %s", issues.ErrParse, record.Number, r.column)
	}

	slog.DebugContext(ctx, "Read watermark",
		"watermark", value,
		"column", r.column,
		"issue", record.Number,
	)
	return value, nil
}
