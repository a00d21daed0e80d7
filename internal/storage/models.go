package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicateURL is returned by SaveURL when the URL is already recorded.
// The existing row is left untouched.
var ErrDuplicateURL = errors.New("url already processed")

// Source tags written to processed_urls.source.
const (
	SourceFundingNews = "funding_news"
	SourceBlog        = "blog"
)

// ProcessedURL is one row of the dedup table. Rows are written once and
// never updated or deleted.
type ProcessedURL struct {
	ID        int64
	URL       string
	Source    string
	Title     string
	CreatedAt time.Time
}

// ListFilter narrows ListProcessedURLs. Zero values mean "no constraint";
// Limit 0 returns every row.
type ListFilter struct {
	Source string
	Limit  int
	Offset int
}

// Run summarizes one ingest invocation.
type Run struct {
	ID         int64
	StartedAt  time.Time
	FinishedAt time.Time
	Feeds      int
	Entries    int
	Archived   int
	Skipped    int
	TooShort   int
	Failed     int
	Facts      int
	Degraded   int
	Marked     int
}
