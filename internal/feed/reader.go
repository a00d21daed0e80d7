// Package feed reads syndication feeds into (link, title) entries.
package feed

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
)

// Kind selects the content-filtering policy applied to a feed's articles.
type Kind string

const (
	KindNews Kind = "news"
	KindBlog Kind = "blog"
)

// ParseKind maps a configured source name to a Kind.
func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case KindNews, "":
		return KindNews, nil
	case KindBlog:
		return KindBlog, nil
	}
	return "", fmt.Errorf("unknown feed kind %q", s)
}

// Source is one configured feed.
type Source struct {
	URL  string
	Kind Kind
}

// Entry is one item of a feed. Published is zero when the feed omits it.
type Entry struct {
	Link      string
	Title     string
	Published time.Time
}

// SourcedEntry pairs an entry with the feed it came from.
type SourcedEntry struct {
	Entry
	Source Source
}

// Reader fetches and parses feeds. Reads are not retried and do not
// paginate.
type Reader struct {
	client    *http.Client
	parser    *gofeed.Parser
	userAgent string
	logger    *slog.Logger
}

// NewReader creates a Reader. A nil client uses http.DefaultClient.
func NewReader(client *http.Client, userAgent string) *Reader {
	if client == nil {
		client = http.DefaultClient
	}
	return &Reader{
		client:    client,
		parser:    gofeed.NewParser(),
		userAgent: userAgent,
		logger:    slog.Default(),
	}
}

// WithLogger sets the logger used for feed failures.
func (r *Reader) WithLogger(l *slog.Logger) *Reader {
	r.logger = l
	return r
}

// Read returns the entries of the feed at url in feed order. A feed that
// cannot be fetched or parsed yields no entries; the failure is logged,
// never returned.
func (r *Reader) Read(ctx context.Context, url string) []Entry {
	f, err := r.fetch(ctx, url)
	if err != nil {
		r.logger.Warn("feed unavailable", "url", url, "error", err)
		return nil
	}

	entries := make([]Entry, 0, len(f.Items))
	for _, item := range f.Items {
		if item == nil {
			continue
		}
		link := strings.TrimSpace(item.Link)
		if link == "" {
			continue
		}
		e := Entry{Link: link, Title: strings.TrimSpace(item.Title)}
		if item.PublishedParsed != nil {
			e.Published = item.PublishedParsed.UTC()
		}
		entries = append(entries, e)
	}
	return entries
}

func (r *Reader) fetch(ctx context.Context, url string) (*gofeed.Feed, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if r.userAgent != "" {
		req.Header.Set("User-Agent", r.userAgent)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	f, err := r.parser.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parsing feed: %w", err)
	}
	return f, nil
}
