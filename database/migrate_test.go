package database

import (
	"context"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrations(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db, cleanupFunc := SetupTestDBContainer(t, ctx)
	t.Cleanup(cleanupFunc)

	m, err := GetMigrate(db.Config().ConnString())
	require.NoError(t, err)
	defer func() { _, _ = m.Close() }()

	fnames, err := fs.Glob(migrationsFS, "migrations/*.up.sql")
	require.NoError(t, err)
	require.NotEmpty(t, fnames)

	for i := 1; i <= len(fnames); i++ {
		assert.NoError(t, m.Steps(i))
		assert.NoError(t, m.Steps(-i))
		assert.NoError(t, m.Steps(i))
		assert.NoError(t, m.Steps(-i))
	}
}

func TestMigrateUpDown(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db, cleanupFunc := SetupTestDBContainer(t, ctx)
	t.Cleanup(cleanupFunc)

	connString := db.Config().ConnString()

	require.NoError(t, MigrateUp(ctx, connString))
	// Already applied
	require.NoError(t, MigrateUp(ctx, connString))

	var exists bool
	err := db.QueryRow(ctx, `SELECT to_regclass('public.issues') IS NOT NULL`).Scan(&exists)
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, MigrateDown(ctx, connString, 0))

	err = db.QueryRow(ctx, `SELECT to_regclass('public.issues') IS NOT NULL`).Scan(&exists)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestPgx5URL(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "pgx5://u:p@localhost:5432/db", pgx5URL("postgres://u:p@localhost:5432/db"))
	assert.Equal(t, "pgx5://localhost/db?sslmode=disable", pgx5URL("postgresql://localhost/db?sslmode=disable"))
	assert.Equal(t, "pgx5://already", pgx5URL("pgx5://already"))
}
