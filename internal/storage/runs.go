package storage

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
)

// SaveRun appends r to the ingest run log and returns its id.
func (s *Store) SaveRun(ctx context.Context, r Run) (int64, error) {
	query, args, err := sq.Insert("ingest_runs").
		Columns("started_at", "finished_at", "feeds", "entries", "archived", "skipped", "too_short", "failed", "facts", "degraded", "marked").
		Values(
			r.StartedAt.UTC().Format(time.RFC3339), r.FinishedAt.UTC().Format(time.RFC3339),
			r.Feeds, r.Entries, r.Archived, r.Skipped, r.TooShort, r.Failed, r.Facts, r.Degraded, r.Marked,
		).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("building insert: %w", err)
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("saving run: %w", err)
	}
	return res.LastInsertId()
}

// RecentRuns returns up to limit runs, newest first.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]Run, error) {
	query, args, err := sq.Select("id", "started_at", "finished_at", "feeds", "entries", "archived", "skipped", "too_short", "failed", "facts", "degraded", "marked").
		From("ingest_runs").
		OrderBy("id DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building query: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var r Run
		var started, finished string
		if err := rows.Scan(&r.ID, &started, &finished, &r.Feeds, &r.Entries, &r.Archived, &r.Skipped, &r.TooShort, &r.Failed, &r.Facts, &r.Degraded, &r.Marked); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		if r.StartedAt, err = parseTime(started); err != nil {
			return nil, err
		}
		if r.FinishedAt, err = parseTime(finished); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
