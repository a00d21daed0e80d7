package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
)

// Exists reports whether url has already been recorded.
func (s *Store) Exists(ctx context.Context, url string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, "SELECT 1 FROM processed_urls WHERE url = ?", url).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking url: %w", err)
	}
	return true, nil
}

// SaveURL records url as processed. A second save of the same URL returns
// ErrDuplicateURL and leaves the first row as it was.
func (s *Store) SaveURL(ctx context.Context, url, source, title string) error {
	var t sql.NullString
	if title != "" {
		t = sql.NullString{String: title, Valid: true}
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO processed_urls (url, source, title, created_at) VALUES (?, ?, ?, ?)",
		url, source, t, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%s: %w", url, ErrDuplicateURL)
		}
		return fmt.Errorf("saving url: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

var processedColumns = []string{"id", "url", "source", "title", "created_at"}

// GetProcessedURL returns the row for url or ErrNotFound.
func (s *Store) GetProcessedURL(ctx context.Context, url string) (ProcessedURL, error) {
	query, args, err := sq.Select(processedColumns...).
		From("processed_urls").
		Where(sq.Eq{"url": url}).
		ToSql()
	if err != nil {
		return ProcessedURL{}, fmt.Errorf("building query: %w", err)
	}

	p, err := scanProcessed(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return ProcessedURL{}, ErrNotFound
	}
	return p, err
}

// ListProcessedURLs returns rows newest first.
func (s *Store) ListProcessedURLs(ctx context.Context, f ListFilter) ([]ProcessedURL, error) {
	b := sq.Select(processedColumns...).
		From("processed_urls").
		OrderBy("id DESC")
	if f.Source != "" {
		b = b.Where(sq.Eq{"source": f.Source})
	}
	if f.Limit > 0 {
		b = b.Limit(uint64(f.Limit))
		if f.Offset > 0 {
			b = b.Offset(uint64(f.Offset))
		}
	}

	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("building query: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing processed urls: %w", err)
	}
	defer rows.Close()

	var out []ProcessedURL
	for rows.Next() {
		p, err := scanProcessed(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// CountProcessedURLs counts rows, optionally restricted to one source tag.
func (s *Store) CountProcessedURLs(ctx context.Context, source string) (int, error) {
	b := sq.Select("COUNT(*)").From("processed_urls")
	if source != "" {
		b = b.Where(sq.Eq{"source": source})
	}
	query, args, err := b.ToSql()
	if err != nil {
		return 0, fmt.Errorf("building query: %w", err)
	}
	var n int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting processed urls: %w", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProcessed(r rowScanner) (ProcessedURL, error) {
	var p ProcessedURL
	var title sql.NullString
	var createdAt string
	if err := r.Scan(&p.ID, &p.URL, &p.Source, &title, &createdAt); err != nil {
		return ProcessedURL{}, err
	}
	p.Title = title.String
	t, err := parseTime(createdAt)
	if err != nil {
		return ProcessedURL{}, fmt.Errorf("parsing created_at for %s: %w", p.URL, err)
	}
	p.CreatedAt = t
	return p, nil
}
