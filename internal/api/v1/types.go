package v1

import (
	"time"

	"github.com/stacklok/gitsorted/internal/issues"
)

// IssueResponse is one stored issue
type IssueResponse struct {
	ID            int64     `json:"id"`
	Number        int       `json:"number"`
	CreatedAt     time.Time `json:"created_at"`
	Title         string    `json:"title"`
	Author        string    `json:"author"`
	LastProcessed time.Time `json:"last_processed"`
}

// ListIssuesResponse is the body of GET /issues
type ListIssuesResponse struct {
	Issues []IssueResponse `json:"issues"`
	Count  int             `json:"count"`
}

func newListIssuesResponse(records []issues.Record) ListIssuesResponse {
	out := make([]IssueResponse, 0, len(records))
	for _, r := range records {
		out = append(out, IssueResponse(r))
	}
	return ListIssuesResponse{Issues: out, Count: len(out)}
}
