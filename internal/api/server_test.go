package api_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/stacklok/gitsorted/internal/api"
	"github.com/stacklok/gitsorted/internal/issues"
	"github.com/stacklok/gitsorted/internal/service/mocks"
)

func serve(t *testing.T, handler http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, path, nil)
	require.NoError(t, err)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

func TestHealthEndpoint(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)

	// No expectations: the liveness probe never touches the store
	server := api.NewServer(mocks.NewMockIssueService(ctrl))

	rr := serve(t, server, "/healthz")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "OK", rr.Body.String())
}

func TestReadinessEndpoint(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		setupMock      func(*mocks.MockIssueService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "store ready",
			setupMock: func(m *mocks.MockIssueService) {
				m.EXPECT().CheckReadiness(gomock.Any()).Return(nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   "ready",
		},
		{
			name: "store not ready",
			setupMock: func(m *mocks.MockIssueService) {
				m.EXPECT().CheckReadiness(gomock.Any()).Return(fmt.Errorf("connection refused"))
			},
			expectedStatus: http.StatusServiceUnavailable,
			expectedBody:   "error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ctrl := gomock.NewController(t)

			svc := mocks.NewMockIssueService(ctrl)
			tt.setupMock(svc)

			rr := serve(t, api.NewServer(svc), "/readiness")
			assert.Equal(t, tt.expectedStatus, rr.Code)
			assert.Contains(t, rr.Body.String(), tt.expectedBody)
			assert.NotContains(t, rr.Body.String(), "connection refused")
		})
	}
}

func TestVersionEndpoint(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)

	rr := serve(t, api.NewServer(mocks.NewMockIssueService(ctrl)), "/version")
	assert.Equal(t, http.StatusOK, rr.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.NotEmpty(t, body["version"])
	assert.NotEmpty(t, body["go_version"])
}

func TestIndexPage(t *testing.T) {
	t.Parallel()

	created := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name           string
		records        []issues.Record
		err            error
		expectedStatus int
		contains       []string
	}{
		{
			name: "lists records and escapes titles",
			records: []issues.Record{
				{Number: 12, CreatedAt: created, Title: "<script>alert(1)</script>", Author: "ext1", LastProcessed: created},
			},
			expectedStatus: http.StatusOK,
			contains:       []string{"acme/widgets", "<td>12</td>", "&lt;script&gt;", "ext1", "2024-05-01 09:00:00Z"},
		},
		{
			name:           "empty store",
			expectedStatus: http.StatusOK,
			contains:       []string{"No issues synchronized yet."},
		},
		{
			name:           "store failure",
			err:            fmt.Errorf("%w: list issues", issues.ErrTransport),
			expectedStatus: http.StatusInternalServerError,
			contains:       []string{"failed to load issues"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ctrl := gomock.NewController(t)

			svc := mocks.NewMockIssueService(ctrl)
			svc.EXPECT().ListIssues(gomock.Any()).Return(tt.records, tt.err)

			rr := serve(t, api.NewServer(svc, api.WithTitle("acme/widgets")), "/")
			assert.Equal(t, tt.expectedStatus, rr.Code)
			for _, s := range tt.contains {
				assert.Contains(t, rr.Body.String(), s)
			}
		})
	}
}

func TestIssuesAPIIsMounted(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)

	svc := mocks.NewMockIssueService(ctrl)
	svc.EXPECT().ListIssues(gomock.Any()).Return([]issues.Record{{Number: 3}}, nil)

	rr := serve(t, api.NewServer(svc), "/api/v1/issues")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"number":3`)
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)
	svc := mocks.NewMockIssueService(ctrl)

	rr := serve(t, api.NewServer(svc), "/metrics")
	assert.Equal(t, http.StatusNotFound, rr.Code)

	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("gitsorted_candidates_total 1\n"))
	})
	rr = serve(t, api.NewServer(svc, api.WithMetricsHandler(metrics)), "/metrics")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "gitsorted_candidates_total")
}
