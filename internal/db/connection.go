// Package db connects to the PostgreSQL issue store and holds its typed queries.
package db

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stacklok/gitsorted/internal/config"
)

const (
	defaultConnectTimeout = 10 * time.Second
	defaultStartupRetry   = 30 * time.Second
)

// PoolOption configures NewPool
type PoolOption func(*poolOptions)

type poolOptions struct {
	startupRetry time.Duration
}

// WithStartupRetry bounds how long NewPool keeps retrying the first ping.
// Zero disables retries.
func WithStartupRetry(d time.Duration) PoolOption {
	return func(o *poolOptions) {
		o.startupRetry = d
	}
}

// NewPool creates a connection pool for the postgres store and waits until the
// database answers a ping. Transient failures are retried with exponential
// backoff; authentication failures are not.
func NewPool(ctx context.Context, cfg *config.StoreConfig, opts ...PoolOption) (*pgxpool.Pool, error) {
	if cfg == nil {
		return nil, fmt.Errorf("store configuration is required")
	}

	o := &poolOptions{startupRetry: defaultStartupRetry}
	for _, opt := range opts {
		opt(o)
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse store URL: %w", err)
	}

	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if poolCfg.ConnConfig.ConnectTimeout == 0 {
		poolCfg.ConnConfig.ConnectTimeout = defaultConnectTimeout
	}
	if poolCfg.ConnConfig.Password == "" && cfg.APIKey != "" {
		poolCfg.ConnConfig.Password = cfg.APIKey
	}

	if cfg.AWSRDSIAMRegion != "" {
		authFunc, err := NewRDSIAMAuth(ctx, cfg.AWSRDSIAMRegion, poolCfg.ConnConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to configure AWS RDS IAM authentication: %w", err)
		}
		poolCfg.BeforeConnect = authFunc
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pingWithRetry(ctx, pool, o.startupRetry); err != nil {
		pool.Close()
		return nil, err
	}

	slog.InfoContext(ctx, "Database connection established",
		"host", poolCfg.ConnConfig.Host,
		"port", poolCfg.ConnConfig.Port,
		"database", poolCfg.ConnConfig.Database,
		"user", poolCfg.ConnConfig.User,
	)
	return pool, nil
}

func pingWithRetry(ctx context.Context, pool *pgxpool.Pool, maxElapsed time.Duration) error {
	ping := func() (struct{}, error) {
		err := pool.Ping(ctx)
		if err != nil && isPermanent(err) {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	}

	if maxElapsed <= 0 {
		if _, err := ping(); err != nil {
			return fmt.Errorf("failed to ping database: %w", err)
		}
		return nil
	}

	_, err := backoff.Retry(ctx, ping,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxElapsedTime(maxElapsed),
		backoff.WithNotify(func(err error, next time.Duration) {
			slog.WarnContext(ctx, "Database not ready, retrying", "error", err, "retry_in", next)
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}
	return nil
}

// isPermanent reports errors that retrying cannot fix.
func isPermanent(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "28000", "28P01", "3D000": // invalid authorization, invalid password, unknown database
			return true
		}
	}
	return false
}

// MigrationConnString returns the store URL with the credential the pool
// would use embedded, so that golang-migrate can open its own connection.
// Non-URL connection strings are returned unchanged.
func MigrationConnString(ctx context.Context, cfg *config.StoreConfig) (string, error) {
	if cfg == nil {
		return "", fmt.Errorf("store configuration is required")
	}

	u, err := url.Parse(cfg.URL)
	if err != nil || u.Scheme == "" {
		return cfg.URL, nil
	}

	var password string
	switch {
	case cfg.AWSRDSIAMRegion != "":
		connCfg, err := pgx.ParseConfig(cfg.URL)
		if err != nil {
			return "", fmt.Errorf("failed to parse store URL: %w", err)
		}
		if password, err = NewRDSIAMToken(ctx, cfg.AWSRDSIAMRegion, connCfg); err != nil {
			return "", err
		}
	case cfg.APIKey != "":
		if u.User != nil {
			if _, set := u.User.Password(); set {
				return cfg.URL, nil
			}
		}
		password = cfg.APIKey
	default:
		return cfg.URL, nil
	}

	username := ""
	if u.User != nil {
		username = u.User.Username()
	}
	u.User = url.UserPassword(username, password)
	return u.String(), nil
}
