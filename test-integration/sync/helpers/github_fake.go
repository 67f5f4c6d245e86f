// Package helpers provides fakes and lifecycle helpers for the integration suite.
package helpers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// FakeIssue is an issue served by FakeGitHub
type FakeIssue struct {
	Number      int
	Title       string
	Author      string
	CreatedAt   time.Time
	PullRequest bool
}

// FakeComment is a comment received by FakeGitHub
type FakeComment struct {
	Number int
	Body   string
}

// FakeGitHub serves the issues listing and comment endpoints of one repository.
type FakeGitHub struct {
	server *httptest.Server
	owner  string
	repo   string

	mu          sync.Mutex
	issues      []FakeIssue
	comments    []FakeComment
	listings    int
	lastListing time.Time
}

// NewFakeGitHub starts the fake for owner/repo
func NewFakeGitHub(owner, repo string) *FakeGitHub {
	f := &FakeGitHub{owner: owner, repo: repo}
	mux := http.NewServeMux()
	mux.HandleFunc(fmt.Sprintf("GET /repos/%s/%s/issues", owner, repo), f.listIssues)
	mux.HandleFunc(fmt.Sprintf("POST /repos/%s/%s/issues/{number}/comments", owner, repo), f.createComment)
	f.server = httptest.NewServer(mux)
	return f
}

// URL is the API root to configure as source.base_url
func (f *FakeGitHub) URL() string {
	return f.server.URL + "/"
}

// Close stops the server
func (f *FakeGitHub) Close() {
	f.server.Close()
}

// AddIssues publishes issues. An issue without CreatedAt is stamped a microsecond
// after the last listing served, later ones in argument order newer.
// That places it after every tick time already committed and before the next one.
func (f *FakeGitHub) AddIssues(issues ...FakeIssue) {
	f.mu.Lock()
	defer f.mu.Unlock()
	base := f.lastListing
	if base.IsZero() {
		base = time.Now()
	}
	for i := range issues {
		if issues[i].CreatedAt.IsZero() {
			issues[i].CreatedAt = base.Add(time.Duration(i+1) * time.Microsecond)
		}
	}
	f.issues = append(f.issues, issues...)
}

// Comments returns the comments received so far
func (f *FakeGitHub) Comments() []FakeComment {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]FakeComment(nil), f.comments...)
}

// CommentedNumbers returns the issue numbers commented on, in arrival order
func (f *FakeGitHub) CommentedNumbers() []int {
	comments := f.Comments()
	numbers := make([]int, 0, len(comments))
	for _, c := range comments {
		numbers = append(numbers, c.Number)
	}
	return numbers
}

// Listings returns how many listing requests were served
func (f *FakeGitHub) Listings() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listings
}

func (f *FakeGitHub) listIssues(w http.ResponseWriter, r *http.Request) {
	if !strings.HasPrefix(r.Header.Get("Authorization"), "Bearer ") {
		http.Error(w, `{"message":"Requires authentication"}`, http.StatusUnauthorized)
		return
	}

	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	if page < 1 {
		page = 1
	}
	perPage, _ := strconv.Atoi(q.Get("per_page"))
	if perPage < 1 {
		perPage = 30
	}

	f.mu.Lock()
	f.listings++
	f.lastListing = time.Now()
	sorted := append([]FakeIssue(nil), f.issues...)
	f.mu.Unlock()

	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
	})

	start := (page - 1) * perPage
	if start > len(sorted) {
		start = len(sorted)
	}
	end := start + perPage
	if end > len(sorted) {
		end = len(sorted)
	}

	items := make([]map[string]any, 0, end-start)
	for _, is := range sorted[start:end] {
		item := map[string]any{
			"id":         int64(100000 + is.Number),
			"number":     is.Number,
			"title":      is.Title,
			"state":      "open",
			"created_at": is.CreatedAt.UTC().Format(time.RFC3339Nano),
			"html_url":   fmt.Sprintf("https://github.com/%s/%s/issues/%d", f.owner, f.repo, is.Number),
			"user":       map[string]any{"login": is.Author},
		}
		if is.PullRequest {
			item["pull_request"] = map[string]any{
				"url": fmt.Sprintf("https://api.github.com/repos/%s/%s/pulls/%d", f.owner, f.repo, is.Number),
			}
		}
		items = append(items, item)
	}

	if end < len(sorted) {
		next := *r.URL
		nq := next.Query()
		nq.Set("page", strconv.Itoa(page+1))
		next.RawQuery = nq.Encode()
		w.Header().Set("Link", fmt.Sprintf(`<%s%s>; rel="next"`, f.server.URL, next.RequestURI()))
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(items)
}

func (f *FakeGitHub) createComment(w http.ResponseWriter, r *http.Request) {
	number, err := strconv.Atoi(r.PathValue("number"))
	if err != nil {
		http.Error(w, `{"message":"Not Found"}`, http.StatusNotFound)
		return
	}
	var body struct {
		Body string `json:"body"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, `{"message":"Problems parsing JSON"}`, http.StatusBadRequest)
		return
	}

	f.mu.Lock()
	f.comments = append(f.comments, FakeComment{Number: number, Body: body.Body})
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(map[string]any{"id": number, "body": body.Body})
}
