// Package service provides the read-only display service over the issue store.
package service

import (
	"context"

	"github.com/stacklok/gitsorted/internal/issues"
)

//go:generate mockgen -destination=mocks/mock_service.go -package=mocks -source=service.go IssueService

// IssueService lists stored issue records for display.
type IssueService interface {
	// CheckReadiness reports whether the store answers
	CheckReadiness(ctx context.Context) error

	// ListIssues returns every stored record, newest created first
	ListIssues(ctx context.Context) ([]issues.Record, error)
}
