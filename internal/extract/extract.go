// Package extract turns article pages into plain text. Each feed kind has
// its own filtering policy and the two are never merged.
package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/charset"
)

var (
	// ErrNoContent means the page could not be fetched or parsed.
	ErrNoContent = errors.New("no content")
	// ErrTooShort means the page parsed but its text failed the policy.
	ErrTooShort = errors.New("content too short")
)

const (
	// DefaultTimeout bounds a single page fetch.
	DefaultTimeout = 10 * time.Second
	// MaxBodyBytes caps how much of a page is read.
	MaxBodyBytes = 5 << 20
)

// stripTags are removed before paragraphs are collected.
var stripTags = []string{"script", "style", "nav", "footer", "header", "aside", "noscript"}

// Extractor fetches pages and applies a Policy to their paragraph text.
type Extractor struct {
	client    *http.Client
	userAgent string
	logger    *slog.Logger
}

// New creates an Extractor. A zero timeout uses DefaultTimeout.
func New(timeout time.Duration, userAgent string) *Extractor {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Extractor{
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
		logger:    slog.Default(),
	}
}

// NewWithClient creates an Extractor around an existing client.
func NewWithClient(client *http.Client, userAgent string) *Extractor {
	return &Extractor{client: client, userAgent: userAgent, logger: slog.Default()}
}

// Extract fetches url and returns its text filtered by p. Any fetch or
// parse failure is reported as ErrNoContent; a policy rejection as
// ErrTooShort. Callers must not archive or mark the URL on either error.
func (e *Extractor) Extract(ctx context.Context, url string, p Policy) (string, error) {
	body, contentType, err := e.fetch(ctx, url)
	if err != nil {
		e.logger.Debug("page fetch failed", "url", url, "error", err)
		return "", fmt.Errorf("%w: %v", ErrNoContent, err)
	}

	var paragraphs []string
	if isPDF(contentType, url) {
		text, err := pdfText(body)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrNoContent, err)
		}
		paragraphs = []string{text}
	} else {
		paragraphs, err = Paragraphs(bytes.NewReader(body), contentType)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrNoContent, err)
		}
	}

	return p.Apply(paragraphs)
}

func (e *Extractor) fetch(ctx context.Context, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("build request: %w", err)
	}
	if e.userAgent != "" {
		req.Header.Set("User-Agent", e.userAgent)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("request page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("page returned %s", resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxBodyBytes))
	if err != nil {
		return nil, "", fmt.Errorf("read body: %w", err)
	}
	return body, resp.Header.Get("Content-Type"), nil
}

// Paragraphs parses an HTML document and returns the text of its <p>
// elements in document order. Non-content tags are dropped first, and the
// first <article> element is preferred over the whole document when present.
func Paragraphs(r io.Reader, contentType string) ([]string, error) {
	utf8Reader, err := charset.NewReader(r, contentType)
	if err != nil {
		return nil, fmt.Errorf("decode charset: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(utf8Reader)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}

	doc.Find(strings.Join(stripTags, ", ")).Remove()

	root := doc.Selection
	if article := doc.Find("article").First(); article.Length() > 0 {
		root = article
	}

	var out []string
	root.Find("p").Each(func(_ int, s *goquery.Selection) {
		out = append(out, s.Text())
	})
	return out, nil
}

func isPDF(contentType, url string) bool {
	if mt, _, err := mime.ParseMediaType(contentType); err == nil && mt == "application/pdf" {
		return true
	}
	return contentType == "" && strings.HasSuffix(strings.ToLower(url), ".pdf")
}
