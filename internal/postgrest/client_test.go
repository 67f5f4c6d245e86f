package postgrest

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stacklok/gitsorted/internal/httpclient"
	"github.com/stacklok/gitsorted/internal/issues"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	server.Config.SetKeepAlivesEnabled(false)
	t.Cleanup(server.Close)
	return NewClient(httpclient.NewDefaultClient(time.Second), server.URL+"/rest/v1", "anon-key", "Issues")
}

func TestClient_LatestBy(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/v1/Issues", r.URL.Path)
		assert.Equal(t, "anon-key", r.Header.Get("apikey"))
		assert.Equal(t, "Bearer anon-key", r.Header.Get("Authorization"))

		q := r.URL.Query()
		assert.Equal(t, "*", q.Get("select"))
		assert.Equal(t, "not.is.null", q.Get("last_processed"))
		assert.Equal(t, "last_processed.desc,number.desc", q.Get("order"))
		assert.Equal(t, "1", q.Get("limit"))

		_, _ = io.WriteString(w, `[{"id": 7, "number": 3, "title": "crash", "author": "ext",
			"created_at": "2024-03-01T10:00:00+00:00", "last_processed": "2024-03-02T11:00:00.5+00:00"}]`)
	})

	records, err := client.LatestBy(context.Background(), "last_processed", 1)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 3, records[0].Number)
	assert.Equal(t, int64(7), records[0].ID)
	assert.True(t, records[0].LastProcessed.Equal(time.Date(2024, 3, 2, 11, 0, 0, 5e8, time.UTC)))
}

func TestClient_ListIssues_ParseError(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `[{"number": 3, "created_at": "yesterday"}]`)
	})

	_, err := client.ListIssues(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, issues.ErrParse)
}

func TestClient_UpsertIssues(t *testing.T) {
	t.Parallel()

	t0 := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	var got []issues.Record

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "number", r.URL.Query().Get("on_conflict"))
		assert.Equal(t, "resolution=merge-duplicates,return=minimal", r.Header.Get("Prefer"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
	})

	batch := issues.Batch{
		{ID: 1, Number: 12, CreatedAt: t0, Title: "a", Author: "ext", LastProcessed: t0.Add(time.Hour)},
		{ID: 2, Number: 11, CreatedAt: t0, Title: "b", Author: "int", LastProcessed: t0.Add(time.Hour)},
	}
	require.NoError(t, client.UpsertIssues(context.Background(), batch))
	require.Len(t, got, 2)
	assert.Equal(t, []int{12, 11}, issues.Batch(got).Numbers())
}

func TestClient_APIError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name             string
		status           int
		body             string
		wantCode         string
		wantMessage      string
		wantUnauthorized bool
		wantCategory     error
	}{
		{
			name:         "postgrest error object",
			status:       http.StatusConflict,
			body:         `{"code":"23505","message":"duplicate key value","details":"Key (number)=(1) already exists.","hint":null}`,
			wantCode:     "23505",
			wantMessage:  "duplicate key value",
			wantCategory: issues.ErrPersistence,
		},
		{
			name:             "jwt rejected",
			status:           http.StatusUnauthorized,
			body:             `{"code":"PGRST301","message":"JWT expired"}`,
			wantCode:         "PGRST301",
			wantMessage:      "JWT expired",
			wantUnauthorized: true,
			wantCategory:     issues.ErrAuth,
		},
		{
			name:         "non json body",
			status:       http.StatusBadGateway,
			body:         `<html>bad gateway</html>`,
			wantMessage:  "502 Bad Gateway",
			wantCategory: issues.ErrPersistence,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})

			err := client.UpsertIssues(context.Background(), issues.Batch{{Number: 1}})
			require.Error(t, err)

			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, tt.wantCode, apiErr.Code)
			assert.Equal(t, tt.wantMessage, apiErr.Message)
			assert.Equal(t, tt.wantUnauthorized, apiErr.Unauthorized())

			var httpErr *httpclient.HTTPError
			assert.True(t, errors.As(err, &httpErr))
			assert.ErrorIs(t, err, tt.wantCategory)
		})
	}
}

func TestClient_ReadErrorCategories(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	_, err := client.LatestBy(context.Background(), "created_at", 1)
	assert.ErrorIs(t, err, issues.ErrTransport)

	unreachable := NewClient(httpclient.NewDefaultClient(time.Second), "http://127.0.0.1:1", "k", "Issues")
	_, err = unreachable.ListIssues(context.Background())
	assert.ErrorIs(t, err, issues.ErrTransport)
}
