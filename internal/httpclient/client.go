// Package httpclient is the outbound HTTP client shared by the chat notifier
// and the PostgREST store.
package httpclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/stacklok/gitsorted/internal/versions"
)

const (
	// DefaultTimeout bounds a single request including reading the body
	DefaultTimeout = 10 * time.Second

	// MaxResponseSize is the largest response body accepted (10MB)
	MaxResponseSize = 10 * 1024 * 1024

	maxErrorBody = 4096
)

// UserAgent is sent with every request
var UserAgent = "gitsorted/" + versions.Version

// Client performs HTTP requests and returns the response body.
type Client interface {
	// Get performs a GET request
	Get(ctx context.Context, url string, header http.Header) ([]byte, error)
	// Post performs a POST request with a JSON body
	Post(ctx context.Context, url string, body []byte, header http.Header) ([]byte, error)
}

// DefaultClient is the Client used outside of tests.
type DefaultClient struct {
	client *http.Client
}

// NewDefaultClient creates a client whose transport is traced with otelhttp.
// A zero timeout selects DefaultTimeout.
func NewDefaultClient(timeout time.Duration) *DefaultClient {
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	return &DefaultClient{
		client: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

// Get performs an HTTP GET request
func (c *DefaultClient) Get(ctx context.Context, url string, header http.Header) ([]byte, error) {
	return c.do(ctx, http.MethodGet, url, nil, header)
}

// Post performs an HTTP POST request
func (c *DefaultClient) Post(ctx context.Context, url string, body []byte, header http.Header) ([]byte, error) {
	return c.do(ctx, http.MethodPost, url, body, header)
}

func (c *DefaultClient) do(ctx context.Context, method, url string, body []byte, header http.Header) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for key, values := range header {
		req.Header.Del(key)
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.ContentLength > MaxResponseSize {
		return nil, fmt.Errorf("response size %d bytes exceeds maximum allowed size of %d bytes",
			resp.ContentLength, MaxResponseSize)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if int64(len(data)) > MaxResponseSize {
		return nil, fmt.Errorf("response size exceeds maximum allowed size of %d bytes", MaxResponseSize)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		snippet := data
		if len(snippet) > maxErrorBody {
			snippet = snippet[:maxErrorBody]
		}
		return nil, NewHTTPError(resp.StatusCode, url, resp.Status, snippet)
	}

	return data, nil
}
