package writer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/stacklok/gitsorted/internal/issues"
	"github.com/stacklok/gitsorted/internal/postgrest"
)

type restUpserter interface {
	UpsertIssues(ctx context.Context, batch issues.Batch) error
}

type restIssueWriter struct {
	client restUpserter
}

// NewRESTIssueWriter creates an IssueWriter that merges duplicates through PostgREST.
func NewRESTIssueWriter(client *postgrest.Client) (IssueWriter, error) {
	if client == nil {
		return nil, fmt.Errorf("postgrest client is required")
	}
	return &restIssueWriter{client: client}, nil
}

func (w *restIssueWriter) Upsert(ctx context.Context, batch issues.Batch) error {
	if batch.Empty() {
		return nil
	}
	if err := w.client.UpsertIssues(ctx, batch); err != nil {
		return fmt.Errorf("failed to upsert %d issues: %w", len(batch), err)
	}
	slog.DebugContext(ctx, "Upserted issues", "count", len(batch), "numbers", batch.Numbers())
	return nil
}
