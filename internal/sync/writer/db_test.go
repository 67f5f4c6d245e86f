package writer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stacklok/gitsorted/database"
	"github.com/stacklok/gitsorted/internal/db"
	"github.com/stacklok/gitsorted/internal/issues"
)

func TestNewDBIssueWriter_NilPool(t *testing.T) {
	t.Parallel()

	w, err := NewDBIssueWriter(nil, "issues")
	require.Error(t, err)
	assert.Nil(t, w)
}

func TestDBIssueWriter_Upsert(t *testing.T) {
	t.Parallel()

	pool, cleanup := database.SetupTestDB(t)
	t.Cleanup(cleanup)

	ctx := context.Background()
	w, err := NewDBIssueWriter(pool, "issues")
	require.NoError(t, err)

	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	first := t0.Add(time.Minute)
	batch := issues.Batch{
		{ID: 1012, Number: 12, CreatedAt: t0.Add(30 * time.Second), Title: "Crash", Author: "ext1", LastProcessed: first},
		{ID: 1011, Number: 11, CreatedAt: t0.Add(10 * time.Second), Title: "Docs", Author: "internal1", LastProcessed: first},
	}

	t.Run("empty batch is a no-op", func(t *testing.T) {
		require.NoError(t, w.Upsert(ctx, nil))
	})

	t.Run("write twice keeps one row per number", func(t *testing.T) {
		require.NoError(t, w.Upsert(ctx, batch))
		require.NoError(t, w.Upsert(ctx, batch))

		records, err := db.New(pool, "issues").ListIssues(ctx)
		require.NoError(t, err)
		require.Len(t, records, 2)
		assert.Equal(t, 12, records[0].Number)
		assert.Equal(t, 11, records[1].Number)
	})

	t.Run("rewrite updates fields", func(t *testing.T) {
		second := first.Add(time.Minute)
		updated := issues.Batch{batch[0]}
		updated[0].Title = "Crash on startup"
		updated[0].LastProcessed = second
		require.NoError(t, w.Upsert(ctx, updated))

		records, err := db.New(pool, "issues").ListIssues(ctx)
		require.NoError(t, err)
		require.Len(t, records, 2)
		assert.Equal(t, "Crash on startup", records[0].Title)
		assert.True(t, records[0].LastProcessed.Equal(second))
	})
}
