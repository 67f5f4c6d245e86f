// Package writer commits the batch built by a tick to the issue store.
package writer

import (
	"context"

	"github.com/stacklok/gitsorted/internal/issues"
)

//go:generate mockgen -destination=mocks/mock_writer.go -package=mocks -source=writer.go IssueWriter

// IssueWriter upserts a batch keyed by issue number.
// Implementations must be idempotent: writing the same batch twice leaves the
// store in the same state as writing it once.
type IssueWriter interface {
	Upsert(ctx context.Context, batch issues.Batch) error
}
