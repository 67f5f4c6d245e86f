package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/golang-migrate/migrate/v4"
)

// MigrateUp applies every pending migration. An up-to-date schema is not an error.
func MigrateUp(ctx context.Context, connString string) error {
	return withMigrator(ctx, connString, func(m Migrator) error {
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("failed to apply migrations: %w", err)
		}
		return nil
	})
}

// MigrateDown reverts the given number of migrations. A non-positive count
// reverts all of them.
func MigrateDown(ctx context.Context, connString string, steps int) error {
	return withMigrator(ctx, connString, func(m Migrator) error {
		var err error
		if steps <= 0 {
			err = m.Down()
		} else {
			err = m.Steps(-steps)
		}
		if err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("failed to revert migrations: %w", err)
		}
		return nil
	})
}

func withMigrator(ctx context.Context, connString string, fn func(Migrator) error) error {
	m, err := GetMigrate(connString)
	if err != nil {
		return err
	}
	defer func() {
		if srcErr, dbErr := m.Close(); srcErr != nil || dbErr != nil {
			slog.WarnContext(ctx, "Failed to close migrator", "source_error", srcErr, "database_error", dbErr)
		}
	}()

	// Stop between migrations when the caller goes away.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			m.GracefulStop <- true
		case <-done:
		}
	}()

	if err := fn(m); err != nil {
		return err
	}

	version, dirty, err := m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		slog.InfoContext(ctx, "Database schema has no migrations applied")
	case err != nil:
		return fmt.Errorf("failed to read schema version: %w", err)
	default:
		slog.InfoContext(ctx, "Database schema migrated", "version", version, "dirty", dirty)
	}
	return nil
}

// pgx5URL rewrites a postgres URL to the scheme of the pgx/v5 migrate driver.
func pgx5URL(connString string) string {
	for _, prefix := range []string{"postgres://", "postgresql://"} {
		if strings.HasPrefix(connString, prefix) {
			return "pgx5://" + strings.TrimPrefix(connString, prefix)
		}
	}
	return connString
}
