package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stacklok/gitsorted/internal/issues"
)

// newTestServer disables keep-alives so parallel tests do not share idle connections.
func newTestServer(t *testing.T, handler http.Handler) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(handler)
	server.Config.SetKeepAlivesEnabled(false)
	t.Cleanup(server.Close)
	return server
}

func newTestClient(t *testing.T, server *httptest.Server, opts ...GitHubOption) *GitHubClient {
	t.Helper()
	opts = append([]GitHubOption{WithBaseURL(server.URL), WithTransport(http.DefaultTransport)}, opts...)
	client, err := NewGitHubClient("test-token", "acme", "widgets", opts...)
	require.NoError(t, err)
	return client
}

func issueJSON(number int, created time.Time, login string, pr bool) map[string]any {
	item := map[string]any{
		"id":         int64(1000 + number),
		"number":     number,
		"title":      fmt.Sprintf("issue %d", number),
		"created_at": created.Format(time.RFC3339),
		"html_url":   fmt.Sprintf("https://github.com/acme/widgets/issues/%d", number),
		"user":       map[string]any{"login": login},
	}
	if pr {
		item["pull_request"] = map[string]any{"url": "https://api.github.com/repos/acme/widgets/pulls/1"}
	}
	return item
}

func TestNewGitHubClient(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		token   string
		owner   string
		repo    string
		opts    []GitHubOption
		wantErr string
	}{
		{name: "valid", token: "t", owner: "o", repo: "r"},
		{name: "missing token", owner: "o", repo: "r", wantErr: "github token is required"},
		{name: "missing repo", token: "t", owner: "o", wantErr: "repository owner and name are required"},
		{name: "page size too large", token: "t", owner: "o", repo: "r", opts: []GitHubOption{WithPageSize(500)}, wantErr: "page size must be between"},
		{name: "enterprise base url", token: "t", owner: "o", repo: "r", opts: []GitHubOption{WithBaseURL("https://ghe.example.com/api/v3")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			client, err := NewGitHubClient(tt.token, tt.owner, tt.repo, tt.opts...)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, client)
		})
	}
}

func TestNewGitHubClient_MissingTokenIsAuthError(t *testing.T) {
	t.Parallel()

	_, err := NewGitHubClient("", "o", "r")
	assert.ErrorIs(t, err, issues.ErrAuth)
}

func TestGitHubClient_FetchPage(t *testing.T) {
	t.Parallel()

	t0 := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	var serverURL string

	server := newTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/acme/widgets/issues", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))

		q := r.URL.Query()
		assert.Equal(t, "open", q.Get("state"))
		assert.Equal(t, "created", q.Get("sort"))
		assert.Equal(t, "desc", q.Get("direction"))
		assert.Equal(t, "2", q.Get("per_page"))

		w.Header().Set("Content-Type", "application/json")
		switch q.Get("page") {
		case "1":
			w.Header().Set("Link", fmt.Sprintf(`<%s/repos/acme/widgets/issues?page=2&per_page=2>; rel="next"`, serverURL))
			_ = json.NewEncoder(w).Encode([]map[string]any{
				issueJSON(12, t0.Add(30*time.Second), "ext1", false),
				issueJSON(11, t0.Add(10*time.Second), "internal1", true),
			})
		case "2":
			_ = json.NewEncoder(w).Encode([]map[string]any{
				issueJSON(10, t0.Add(-5*time.Second), "ext2", false),
			})
		default:
			t.Errorf("unexpected page %q", q.Get("page"))
		}
	}))
	serverURL = server.URL

	client := newTestClient(t, server, WithPageSize(2))

	first, err := client.FetchPage(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, first.Issues, 2)
	assert.True(t, first.HasNext())
	assert.Equal(t, "2", first.NextCursor)

	assert.Equal(t, issues.Summary{
		ID:        1012,
		Number:    12,
		CreatedAt: t0.Add(30 * time.Second),
		Title:     "issue 12",
		Author:    "ext1",
		URL:       "https://github.com/acme/widgets/issues/12",
	}, first.Issues[0])
	assert.True(t, first.Issues[1].PullRequest)

	second, err := client.FetchPage(context.Background(), first.NextCursor)
	require.NoError(t, err)
	require.Len(t, second.Issues, 1)
	assert.False(t, second.HasNext())
	assert.Equal(t, 10, second.Issues[0].Number)
}

func TestGitHubClient_FetchPage_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cursor  string
		status  int
		body    string
		wantErr error
	}{
		{name: "unauthorized", status: http.StatusUnauthorized, body: `{"message":"Bad credentials"}`, wantErr: issues.ErrAuth},
		{name: "server error", status: http.StatusBadGateway, body: `{"message":"upstream"}`, wantErr: issues.ErrTransport},
		{name: "malformed body", status: http.StatusOK, body: `[{"number": "twelve"}]`, wantErr: issues.ErrParse},
		{name: "missing created_at", status: http.StatusOK, body: `[{"number": 3, "user": {"login": "x"}}]`, wantErr: issues.ErrParse},
		{name: "bad cursor", cursor: "next", wantErr: issues.ErrParse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			server := newTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))

			_, err := newTestClient(t, server).FetchPage(context.Background(), tt.cursor)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestGitHubClient_FetchPage_Unreachable(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.NotFoundHandler())
	client := newTestClient(t, server)
	server.Close()

	_, err := client.FetchPage(context.Background(), "")
	require.Error(t, err)
	assert.ErrorIs(t, err, issues.ErrTransport)
}

func TestGitHubClient_PostComment(t *testing.T) {
	t.Parallel()

	var gotBody map[string]string
	server := newTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/repos/acme/widgets/issues/12/comments", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"id": 1}`)
	}))

	err := newTestClient(t, server).PostComment(context.Background(), 12, "thanks for the report")
	require.NoError(t, err)
	assert.Equal(t, "thanks for the report", gotBody["body"])
}

func TestGitHubClient_PostComment_Forbidden(t *testing.T) {
	t.Parallel()

	server := newTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = io.WriteString(w, `{"message":"Resource not accessible by integration"}`)
	}))

	err := newTestClient(t, server).PostComment(context.Background(), 12, "hi")
	require.Error(t, err)
	assert.ErrorIs(t, err, issues.ErrAuth)
}
