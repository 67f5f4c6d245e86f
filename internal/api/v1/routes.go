// Package v1 serves the stored issue records as JSON.
package v1

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/stacklok/gitsorted/internal/api/common"
	"github.com/stacklok/gitsorted/internal/service"
)

// Router creates the v1 routes
func Router(svc service.IssueService) http.Handler {
	r := chi.NewRouter()
	r.Get("/issues", listIssues(svc))
	return r
}

// listIssues returns every stored issue, newest created first
func listIssues(svc service.IssueService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		records, err := svc.ListIssues(r.Context())
		if err != nil {
			slog.ErrorContext(r.Context(), "Failed to list issues", "error", err)
			common.WriteErrorResponse(w, "failed to list issues", http.StatusInternalServerError)
			return
		}
		common.WriteJSONResponse(w, newListIssuesResponse(records), http.StatusOK)
	}
}
