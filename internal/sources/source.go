package sources

import (
	"context"

	"github.com/stacklok/gitsorted/internal/issues"
)

//go:generate mockgen -destination=mocks/mock_source.go -package=mocks -source=source.go IssueSource,Commenter

// IssueSource pages through the open issues of a repository.
type IssueSource interface {
	// FetchPage returns the page addressed by cursor. The empty cursor is the first page.
	FetchPage(ctx context.Context, cursor string) (Page, error)
}

// Commenter posts comments on issues.
type Commenter interface {
	// PostComment posts body as a new comment on issue number
	PostComment(ctx context.Context, number int, body string) error
}

// Page is one page of open issues, ordered newest-created first.
type Page struct {
	Issues []issues.Summary
	// NextCursor addresses the following page; empty on the last page
	NextCursor string
}

// HasNext reports whether another page follows.
func (p Page) HasNext() bool {
	return p.NextCursor != ""
}
