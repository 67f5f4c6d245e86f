package state

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stacklok/gitsorted/internal/db"
	"github.com/stacklok/gitsorted/internal/issues"
)

type fakeStore struct {
	records []issues.Record
	err     error
	column  string
	limit   int
}

func (f *fakeStore) LatestBy(_ context.Context, column string, limit int) ([]issues.Record, error) {
	f.column = column
	f.limit = limit
	return f.records, f.err
}

func TestStoreWatermarkReader_ReadWatermark(t *testing.T) {
	t.Parallel()

	bootstrap := time.Unix(0, 0).UTC()
	created := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	processed := created.Add(time.Hour)
	one := issues.Record{Number: 12, CreatedAt: created, LastProcessed: processed}

	tests := []struct {
		name     string
		column   string
		store    *fakeStore
		expected time.Time
		wantErr  error
	}{
		{
			name:     "empty store uses bootstrap",
			column:   db.ColumnCreatedAt,
			store:    &fakeStore{},
			expected: bootstrap,
		},
		{
			name:     "created_at column",
			column:   db.ColumnCreatedAt,
			store:    &fakeStore{records: []issues.Record{one}},
			expected: created,
		},
		{
			name:     "last_processed column",
			column:   db.ColumnLastProcessed,
			store:    &fakeStore{records: []issues.Record{one}},
			expected: processed,
		},
		{
			name:    "more than one row",
			column:  db.ColumnCreatedAt,
			store:   &fakeStore{records: []issues.Record{one, one}},
			wantErr: issues.ErrDataInvariant,
		},
		{
			name:    "row without timestamp",
			column:  db.ColumnLastProcessed,
			store:   &fakeStore{records: []issues.Record{{Number: 3, CreatedAt: created}}},
			wantErr: issues.ErrParse,
		},
		{
			name:    "store failure propagates",
			column:  db.ColumnCreatedAt,
			store:   &fakeStore{err: errors.Join(issues.ErrTransport, errors.New("connection refused"))},
			wantErr: issues.ErrTransport,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			reader, err := newStoreWatermarkReader(tt.store, tt.column, bootstrap)
			require.NoError(t, err)

			got, err := reader.ReadWatermark(context.Background())
			assert.Equal(t, tt.column, tt.store.column)
			assert.Equal(t, 1, tt.store.limit)

			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.expected.Equal(got), "expected %v, got %v", tt.expected, got)
		})
	}
}

func TestNewStoreWatermarkReader_UnknownColumn(t *testing.T) {
	t.Parallel()

	_, err := newStoreWatermarkReader(&fakeStore{}, "updated_at", time.Time{})
	require.Error(t, err)
}

func TestNewWatermarkReaders_RequireClient(t *testing.T) {
	t.Parallel()

	_, err := NewDBWatermarkReader(nil, "issues", db.ColumnCreatedAt, time.Time{})
	require.Error(t, err)

	_, err = NewRESTWatermarkReader(nil, db.ColumnCreatedAt, time.Time{})
	require.Error(t, err)
}
