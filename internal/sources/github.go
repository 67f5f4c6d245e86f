package sources

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/go-github/v66/github"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/oauth2"

	"github.com/stacklok/gitsorted/internal/issues"
)

const (
	// DefaultPageSize is the number of issues requested per page
	DefaultPageSize = 50

	// MaxPageSize is the largest page the GitHub API serves
	MaxPageSize = 100
)

// GitHubClient implements IssueSource and Commenter for one GitHub repository.
type GitHubClient struct {
	client   *github.Client
	owner    string
	repo     string
	pageSize int
}

// GitHubOption configures a GitHubClient
type GitHubOption func(*githubOptions)

type githubOptions struct {
	baseURL   string
	pageSize  int
	transport http.RoundTripper
}

// WithBaseURL points the client at another REST API root, such as
// https://ghe.example.com/api/v3/ for GitHub Enterprise.
func WithBaseURL(baseURL string) GitHubOption {
	return func(o *githubOptions) {
		o.baseURL = baseURL
	}
}

// WithPageSize sets the number of issues requested per page
func WithPageSize(size int) GitHubOption {
	return func(o *githubOptions) {
		o.pageSize = size
	}
}

// WithTransport replaces the base transport under the oauth2 layer
func WithTransport(rt http.RoundTripper) GitHubOption {
	return func(o *githubOptions) {
		o.transport = rt
	}
}

// NewGitHubClient creates a client authenticated with token.
func NewGitHubClient(token, owner, repo string, opts ...GitHubOption) (*GitHubClient, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: github token is required", issues.ErrAuth)
	}
	if owner == "" || repo == "" {
		return nil, fmt.Errorf("repository owner and name are required")
	}

	o := &githubOptions{pageSize: DefaultPageSize}
	for _, opt := range opts {
		opt(o)
	}
	if o.pageSize <= 0 || o.pageSize > MaxPageSize {
		return nil, fmt.Errorf("page size must be between 1 and %d, got %d", MaxPageSize, o.pageSize)
	}
	if o.transport == nil {
		o.transport = otelhttp.NewTransport(http.DefaultTransport)
	}

	// Timeouts come from the caller's context, so the http.Client has none.
	base := &http.Client{Transport: o.transport}
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, base)
	httpClient := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}))

	client := github.NewClient(httpClient)
	if o.baseURL != "" {
		u, err := url.Parse(o.baseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid GitHub base URL: %w", err)
		}
		if !strings.HasSuffix(u.Path, "/") {
			u.Path += "/"
		}
		client.BaseURL = u
	}

	return &GitHubClient{
		client:   client,
		owner:    owner,
		repo:     repo,
		pageSize: o.pageSize,
	}, nil
}

// FetchPage lists one page of open issues sorted by creation time, newest first.
// Pull requests are returned too, flagged with Summary.PullRequest.
func (c *GitHubClient) FetchPage(ctx context.Context, cursor string) (Page, error) {
	page := 1
	if cursor != "" {
		n, err := strconv.Atoi(cursor)
		if err != nil || n < 1 {
			return Page{}, fmt.Errorf("%w: invalid page cursor %q", issues.ErrParse, cursor)
		}
		page = n
	}

	list, resp, err := c.client.Issues.ListByRepo(ctx, c.owner, c.repo, &github.IssueListByRepoOptions{
		State:     "open",
		Sort:      "created",
		Direction: "desc",
		ListOptions: github.ListOptions{
			Page:    page,
			PerPage: c.pageSize,
		},
	})
	if err != nil {
		return Page{}, classify(fmt.Sprintf("listing issues of %s/%s page %d", c.owner, c.repo, page), err)
	}

	result := Page{Issues: make([]issues.Summary, 0, len(list))}
	for _, item := range list {
		if item.CreatedAt == nil {
			return Page{}, fmt.Errorf("%w: issue #%d has no creation time", issues.ErrParse, item.GetNumber())
		}
		result.Issues = append(result.Issues, issues.Summary{
			ID:          item.GetID(),
			Number:      item.GetNumber(),
			CreatedAt:   item.GetCreatedAt().Time,
			Title:       item.GetTitle(),
			Author:      item.GetUser().GetLogin(),
			URL:         item.GetHTMLURL(),
			PullRequest: item.IsPullRequest(),
		})
	}

	if resp != nil && resp.NextPage != 0 {
		result.NextCursor = strconv.Itoa(resp.NextPage)
	}
	return result, nil
}

// PostComment creates an issue comment.
func (c *GitHubClient) PostComment(ctx context.Context, number int, body string) error {
	_, _, err := c.client.Issues.CreateComment(ctx, c.owner, c.repo, number, &github.IssueComment{
		Body: github.String(body),
	})
	if err != nil {
		return classify(fmt.Sprintf("commenting on issue #%d", number), err)
	}
	return nil
}

// classify wraps err with its error category.
func classify(op string, err error) error {
	var (
		rateErr   *github.RateLimitError
		abuseErr  *github.AbuseRateLimitError
		respErr   *github.ErrorResponse
		syntaxErr *json.SyntaxError
		typeErr   *json.UnmarshalTypeError
	)

	switch {
	case errors.As(err, &rateErr), errors.As(err, &abuseErr):
		return fmt.Errorf("%w: %s: %w", issues.ErrTransport, op, err)
	case errors.As(err, &respErr) && respErr.Response != nil &&
		(respErr.Response.StatusCode == http.StatusUnauthorized || respErr.Response.StatusCode == http.StatusForbidden):
		return fmt.Errorf("%w: %s: %w", issues.ErrAuth, op, err)
	case errors.As(err, &syntaxErr), errors.As(err, &typeErr):
		return fmt.Errorf("%w: %s: %w", issues.ErrParse, op, err)
	default:
		return fmt.Errorf("%w: %s: %w", issues.ErrTransport, op, err)
	}
}
