package db

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stacklok/gitsorted/database"
	"github.com/stacklok/gitsorted/internal/config"
)

func TestMigrationConnString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		cfg      config.StoreConfig
		expected string
	}{
		{
			name:     "no api key",
			cfg:      config.StoreConfig{URL: "postgres://app@db:5432/issues"},
			expected: "postgres://app@db:5432/issues",
		},
		{
			name:     "api key becomes password",
			cfg:      config.StoreConfig{URL: "postgres://app@db:5432/issues", APIKey: "s3cret"},
			expected: "postgres://app:s3cret@db:5432/issues",
		},
		{
			name:     "explicit password wins",
			cfg:      config.StoreConfig{URL: "postgres://app:pw@db:5432/issues", APIKey: "s3cret"},
			expected: "postgres://app:pw@db:5432/issues",
		},
		{
			name:     "keyword value string untouched",
			cfg:      config.StoreConfig{URL: "host=db user=app", APIKey: "s3cret"},
			expected: "host=db user=app",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := MigrationConnString(context.Background(), &tt.cfg)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestIsPermanent(t *testing.T) {
	t.Parallel()

	assert.True(t, isPermanent(&pgconn.PgError{Code: "28P01"}))
	assert.True(t, isPermanent(&pgconn.PgError{Code: "3D000"}))
	assert.False(t, isPermanent(&pgconn.PgError{Code: "57P03"}))
	assert.False(t, isPermanent(context.DeadlineExceeded))
}

func TestNewPool_NilConfig(t *testing.T) {
	t.Parallel()

	_, err := NewPool(context.Background(), nil)
	require.Error(t, err)
}

func TestNewPool_Unreachable(t *testing.T) {
	t.Parallel()

	cfg := &config.StoreConfig{URL: "postgres://app@127.0.0.1:1/issues?connect_timeout=1"}
	_, err := NewPool(context.Background(), cfg, WithStartupRetry(0))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to ping database")
}

func TestNewPool_Container(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	container, cleanup := database.SetupTestDBContainer(t, ctx)
	t.Cleanup(cleanup)

	pool, err := NewPool(ctx, &config.StoreConfig{URL: container.Config().ConnString(), MaxConns: 3},
		WithStartupRetry(5*time.Second))
	require.NoError(t, err)
	defer pool.Close()

	assert.Equal(t, int32(3), pool.Config().MaxConns)
}
