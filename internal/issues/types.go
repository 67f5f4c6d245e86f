package issues

import (
	"fmt"
	"time"
)

// Summary is one open issue as reported by the issue source.
type Summary struct {
	// ID is the source-assigned numeric identity
	ID int64
	// Number is the repository-local sequence number
	Number int
	// CreatedAt is when the issue was opened
	CreatedAt time.Time
	// Title is the issue title
	Title string
	// Author is the handle of the user who opened the issue
	Author string
	// URL is the browser URL of the issue, if the source reports one
	URL string
	// PullRequest is true when the source item is a pull request
	PullRequest bool
}

// Record is a tracked issue as persisted in the store, keyed by Number.
type Record struct {
	ID            int64     `json:"id"`
	Number        int       `json:"number"`
	CreatedAt     time.Time `json:"created_at"`
	Title         string    `json:"title"`
	Author        string    `json:"author"`
	LastProcessed time.Time `json:"last_processed"`
}

// NewRecord builds the Record for a Summary processed at the given tick time.
func NewRecord(s Summary, processedAt time.Time) Record {
	return Record{
		ID:            s.ID,
		Number:        s.Number,
		CreatedAt:     s.CreatedAt,
		Title:         s.Title,
		Author:        s.Author,
		LastProcessed: processedAt,
	}
}

// String returns a short human-readable form used in log lines.
func (r Record) String() string {
	return fmt.Sprintf("#%d %q by %s", r.Number, r.Title, r.Author)
}

// Batch is the ordered set of records built by a single tick.
// It is owned by the tick that built it and discarded if the tick aborts.
type Batch []Record

// Numbers returns the issue numbers of the batch in order.
func (b Batch) Numbers() []int {
	numbers := make([]int, len(b))
	for i, r := range b {
		numbers[i] = r.Number
	}
	return numbers
}

// Empty reports whether the batch has no records.
func (b Batch) Empty() bool {
	return len(b) == 0
}
