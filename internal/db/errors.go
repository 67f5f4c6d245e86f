package db

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/stacklok/gitsorted/internal/issues"
)

// classify wraps err with its category. Authentication failures are ErrAuth,
// errors reported by the server are serverCategory, anything else ErrTransport.
func classify(op string, err error, serverCategory error) error {
	var pgErr *pgconn.PgError
	switch {
	case errors.As(err, &pgErr) && isPermanent(err):
		return fmt.Errorf("%w: %s: %w", issues.ErrAuth, op, err)
	case errors.As(err, &pgErr):
		return fmt.Errorf("%w: %s: %w", serverCategory, op, err)
	default:
		return fmt.Errorf("%w: %s: %w", issues.ErrTransport, op, err)
	}
}
