package writer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stacklok/gitsorted/internal/db"
	"github.com/stacklok/gitsorted/internal/issues"
)

// dbIssueWriter writes batches with a single INSERT ... ON CONFLICT statement
type dbIssueWriter struct {
	queries *db.Queries
}

// NewDBIssueWriter creates an IssueWriter backed by a postgres table.
func NewDBIssueWriter(pool *pgxpool.Pool, table string) (IssueWriter, error) {
	if pool == nil {
		return nil, fmt.Errorf("pgx pool is required")
	}
	return &dbIssueWriter{queries: db.New(pool, table)}, nil
}

func (w *dbIssueWriter) Upsert(ctx context.Context, batch issues.Batch) error {
	if batch.Empty() {
		return nil
	}

	affected, err := w.queries.UpsertIssues(ctx, batch)
	if err != nil {
		return fmt.Errorf("failed to upsert %d issues: %w", len(batch), err)
	}

	slog.DebugContext(ctx, "Upserted issues",
		"count", len(batch),
		"rows_affected", affected,
		"numbers", batch.Numbers(),
	)
	return nil
}
