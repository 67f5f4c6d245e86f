package api

import (
	"bytes"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/stacklok/gitsorted/internal/issues"
	"github.com/stacklok/gitsorted/internal/service"
)

var indexTemplate = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
</head>
<body>
<h1>{{.Title}}</h1>
{{- if .Issues}}
<table>
<thead><tr><th>#</th><th>Title</th><th>Author</th><th>Created</th><th>Last processed</th></tr></thead>
<tbody>
{{- range .Issues}}
<tr><td>{{.Number}}</td><td>{{.Title}}</td><td>{{.Author}}</td><td>{{.CreatedAt.Format "2006-01-02 15:04:05Z07:00"}}</td><td>{{.LastProcessed.Format "2006-01-02 15:04:05Z07:00"}}</td></tr>
{{- end}}
</tbody>
</table>
{{- else}}
<p>No issues synchronized yet.</p>
{{- end}}
</body>
</html>
`))

type indexData struct {
	Title  string
	Issues []issues.Record
}

// indexHandler renders the stored issues as an HTML table
func indexHandler(svc service.IssueService, title string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		records, err := svc.ListIssues(r.Context())
		if err != nil {
			slog.ErrorContext(r.Context(), "Failed to list issues for index", "error", err)
			http.Error(w, "failed to load issues", http.StatusInternalServerError)
			return
		}

		var buf bytes.Buffer
		if err := indexTemplate.Execute(&buf, indexData{Title: title, Issues: records}); err != nil {
			slog.ErrorContext(r.Context(), "Failed to render index", "error", err)
			http.Error(w, "failed to render page", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = buf.WriteTo(w)
	}
}
