// Package postgrest talks to the issue table through a PostgREST endpoint,
// such as the REST interface of a Supabase project.
package postgrest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/tidwall/gjson"

	"github.com/stacklok/gitsorted/internal/httpclient"
	"github.com/stacklok/gitsorted/internal/issues"
)

// APIError is an error answer from PostgREST.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Details    string
	Hint       string
	cause      error
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("postgrest: HTTP %d", e.StatusCode)
	if e.Code != "" {
		msg += " " + e.Code
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Details != "" {
		msg += " (" + e.Details + ")"
	}
	return msg
}

func (e *APIError) Unwrap() error {
	return e.cause
}

// Unauthorized reports whether the API key was rejected.
func (e *APIError) Unauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
}

// Client reads and writes issue records of one table.
type Client struct {
	http    httpclient.Client
	baseURL string
	apiKey  string
	table   string
}

// NewClient creates a client for table under baseURL (for Supabase, https://<project>.supabase.co/rest/v1).
func NewClient(client httpclient.Client, baseURL, apiKey, table string) *Client {
	return &Client{
		http:    client,
		baseURL: baseURL,
		apiKey:  apiKey,
		table:   table,
	}
}

func (c *Client) header() http.Header {
	h := http.Header{}
	h.Set("apikey", c.apiKey)
	h.Set("Authorization", "Bearer "+c.apiKey)
	return h
}

func (c *Client) tableURL(query url.Values) (string, error) {
	u, err := url.JoinPath(c.baseURL, c.table)
	if err != nil {
		return "", fmt.Errorf("invalid PostgREST URL: %w", err)
	}
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u, nil
}

// LatestBy returns up to limit records with the greatest non-null value in column.
func (c *Client) LatestBy(ctx context.Context, column string, limit int) ([]issues.Record, error) {
	query := url.Values{}
	query.Set("select", "*")
	query.Set(column, "not.is.null")
	query.Set("order", column+".desc,number.desc")
	query.Set("limit", strconv.Itoa(limit))
	return c.list(ctx, query)
}

// ListIssues returns every record, newest first.
func (c *Client) ListIssues(ctx context.Context) ([]issues.Record, error) {
	query := url.Values{}
	query.Set("select", "*")
	query.Set("order", "created_at.desc,number.desc")
	return c.list(ctx, query)
}

func (c *Client) list(ctx context.Context, query url.Values) ([]issues.Record, error) {
	u, err := c.tableURL(query)
	if err != nil {
		return nil, err
	}

	body, err := c.http.Get(ctx, u, c.header())
	if err != nil {
		return nil, classify("reading "+c.table, err, issues.ErrTransport)
	}

	var records []issues.Record
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, fmt.Errorf("%w: decoding %s rows: %w", issues.ErrParse, c.table, err)
	}
	return records, nil
}

// UpsertIssues writes batch in one request, merging rows that share a number.
func (c *Client) UpsertIssues(ctx context.Context, batch issues.Batch) error {
	payload, err := json.Marshal(batch)
	if err != nil {
		return fmt.Errorf("failed to encode batch: %w", err)
	}

	query := url.Values{}
	query.Set("on_conflict", "number")
	u, err := c.tableURL(query)
	if err != nil {
		return err
	}

	header := c.header()
	header.Set("Prefer", "resolution=merge-duplicates,return=minimal")

	if _, err := c.http.Post(ctx, u, payload, header); err != nil {
		return classify("upserting into "+c.table, err, issues.ErrPersistence)
	}
	return nil
}

// classify wraps err with its category: ErrAuth for a rejected key,
// statusCategory for any other error answer, ErrTransport when no answer arrived.
func classify(op string, err error, statusCategory error) error {
	apiErr := toAPIError(err)

	var typed *APIError
	switch {
	case !errors.As(apiErr, &typed):
		return fmt.Errorf("%w: %s: %w", issues.ErrTransport, op, err)
	case typed.Unauthorized():
		return fmt.Errorf("%w: %s: %w", issues.ErrAuth, op, apiErr)
	default:
		return fmt.Errorf("%w: %s: %w", statusCategory, op, apiErr)
	}
}

// toAPIError turns an HTTP status error into an *APIError, reading the
// PostgREST error object when the body carries one.
func toAPIError(err error) error {
	var httpErr *httpclient.HTTPError
	if !errors.As(err, &httpErr) {
		return err
	}

	apiErr := &APIError{
		StatusCode: httpErr.StatusCode,
		Message:    httpErr.Message,
		cause:      err,
	}
	if gjson.ValidBytes(httpErr.Body) {
		parsed := gjson.ParseBytes(httpErr.Body)
		apiErr.Code = parsed.Get("code").String()
		if msg := parsed.Get("message").String(); msg != "" {
			apiErr.Message = msg
		}
		apiErr.Details = parsed.Get("details").String()
		apiErr.Hint = parsed.Get("hint").String()
	}
	return apiErr
}
