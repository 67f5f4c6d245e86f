package helpers

import (
	"context"
	"fmt"

	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

// Postgres is a disposable database container
type Postgres struct {
	container *postgres.PostgresContainer
	ConnStr   string
}

// StartPostgres starts an empty database. Migrations are left to the app.
func StartPostgres(ctx context.Context) (*Postgres, error) {
	container, err := postgres.Run(
		ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("gitsorted"),
		postgres.WithUsername("gitsorted"),
		postgres.WithPassword("gitsorted"),
		postgres.BasicWaitStrategies(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start postgres container: %w", err)
	}

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = tc.TerminateContainer(container)
		return nil, fmt.Errorf("failed to get connection string: %w", err)
	}

	return &Postgres{container: container, ConnStr: connStr}, nil
}

// Stop terminates the container
func (p *Postgres) Stop() error {
	return tc.TerminateContainer(p.container)
}
