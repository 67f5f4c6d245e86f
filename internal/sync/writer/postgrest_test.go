package writer

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stacklok/gitsorted/internal/issues"
)

type fakeUpserter struct {
	calls   int
	batches []issues.Batch
	err     error
}

func (f *fakeUpserter) UpsertIssues(_ context.Context, batch issues.Batch) error {
	f.calls++
	f.batches = append(f.batches, batch)
	return f.err
}

func TestRESTIssueWriter_Upsert(t *testing.T) {
	t.Parallel()

	batch := issues.Batch{{Number: 12, CreatedAt: time.Unix(30, 0), Author: "ext1"}}

	tests := []struct {
		name      string
		batch     issues.Batch
		err       error
		wantCalls int
		wantErr   error
	}{
		{
			name:      "empty batch skips the request",
			batch:     issues.Batch{},
			wantCalls: 0,
		},
		{
			name:      "batch is sent once",
			batch:     batch,
			wantCalls: 1,
		},
		{
			name:      "persistence error is kept",
			batch:     batch,
			err:       fmt.Errorf("%w: upsert: conflict", issues.ErrPersistence),
			wantCalls: 1,
			wantErr:   issues.ErrPersistence,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			fake := &fakeUpserter{err: tt.err}
			w := &restIssueWriter{client: fake}

			err := w.Upsert(context.Background(), tt.batch)
			assert.Equal(t, tt.wantCalls, fake.calls)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestNewRESTIssueWriter_NilClient(t *testing.T) {
	t.Parallel()

	_, err := NewRESTIssueWriter(nil)
	require.Error(t, err)
}
