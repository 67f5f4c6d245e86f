package db

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stacklok/gitsorted/database"
	"github.com/stacklok/gitsorted/internal/issues"
)

func record(number int, created, processed time.Time) issues.Record {
	return issues.Record{
		ID:            int64(number) * 100,
		Number:        number,
		CreatedAt:     created,
		Title:         "title",
		Author:        "someone",
		LastProcessed: processed,
	}
}

func TestQueries(t *testing.T) {
	t.Parallel()

	pool, cleanup := database.SetupTestDB(t)
	t.Cleanup(cleanup)

	ctx := context.Background()
	q := New(pool, "issues")
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	t.Run("empty table", func(t *testing.T) {
		latest, err := q.LatestBy(ctx, ColumnLastProcessed, 1)
		require.NoError(t, err)
		assert.Empty(t, latest)
	})

	t.Run("insert batch", func(t *testing.T) {
		n, err := q.UpsertIssues(ctx, issues.Batch{
			record(1, t0, t0.Add(time.Hour)),
			record(2, t0.Add(time.Minute), t0.Add(time.Hour)),
		})
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)

		all, err := q.ListIssues(ctx)
		require.NoError(t, err)
		require.Len(t, all, 2)
		assert.Equal(t, 2, all[0].Number)
		assert.True(t, all[0].CreatedAt.Equal(t0.Add(time.Minute)))
	})

	t.Run("latest by created_at", func(t *testing.T) {
		latest, err := q.LatestBy(ctx, ColumnCreatedAt, 1)
		require.NoError(t, err)
		require.Len(t, latest, 1)
		assert.Equal(t, 2, latest[0].Number)
	})

	t.Run("ties on last_processed still return one row", func(t *testing.T) {
		latest, err := q.LatestBy(ctx, ColumnLastProcessed, 1)
		require.NoError(t, err)
		require.Len(t, latest, 1)
		assert.True(t, latest[0].LastProcessed.Equal(t0.Add(time.Hour)))
	})

	t.Run("upsert updates mutable fields and keeps last_processed monotonic", func(t *testing.T) {
		updated := record(1, t0, t0.Add(30*time.Minute))
		updated.Title = "renamed"
		updated.Author = "other"

		_, err := q.UpsertIssues(ctx, issues.Batch{updated})
		require.NoError(t, err)

		all, err := q.ListIssues(ctx)
		require.NoError(t, err)
		require.Len(t, all, 2)

		var one issues.Record
		for _, r := range all {
			if r.Number == 1 {
				one = r
			}
		}
		assert.Equal(t, "renamed", one.Title)
		assert.Equal(t, "other", one.Author)
		assert.True(t, one.LastProcessed.Equal(t0.Add(time.Hour)), "last_processed moved backwards")
	})

	t.Run("unsupported column", func(t *testing.T) {
		_, err := q.LatestBy(ctx, "title; drop table issues", 1)
		require.Error(t, err)
	})
}

func TestNew_QuotesTable(t *testing.T) {
	t.Parallel()

	q := New(nil, `Issues`)
	assert.Equal(t, `"Issues"`, q.table)
}
