package retrieval

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	sq "github.com/Masterminds/squirrel"
)

// ErrDocumentNotFound is returned by Delete for an unknown ID.
var ErrDocumentNotFound = errors.New("document not found")

var _ VectorStore = (*SQLiteStore)(nil)

const vectorsTable = "fact_vectors"

// upsertBatch bounds rows per INSERT to stay under SQLite's variable limit.
const upsertBatch = 200

var (
	docColumns = []string{"id", "source_url", "source_type", "text", "metadata", "embedding", "created_at"}

	filterable = map[string]bool{"source_type": true, "source_url": true}

	upsertSuffix = `ON CONFLICT(id) DO UPDATE SET
		source_url = excluded.source_url,
		source_type = excluded.source_type,
		text = excluded.text,
		metadata = excluded.metadata,
		embedding = excluded.embedding,
		created_at = excluded.created_at`
)

// SQLiteStore keeps fact documents in the fact_vectors table created by the
// storage migrations. Search is an exhaustive cosine scan.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Upsert inserts or replaces docs by ID inside one transaction.
func (s *SQLiteStore) Upsert(ctx context.Context, docs []Document) (err error) {
	if len(docs) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning upsert: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	for start := 0; start < len(docs); start += upsertBatch {
		end := min(start+upsertBatch, len(docs))
		ins := sq.Insert(vectorsTable).Columns(docColumns...).Suffix(upsertSuffix)
		for _, d := range docs[start:end] {
			meta, err := metadataJSON(d.Metadata)
			if err != nil {
				return fmt.Errorf("encoding metadata for %s: %w", d.ID, err)
			}
			created := d.CreatedAt
			if created.IsZero() {
				created = now
			}
			ins = ins.Values(d.ID, d.SourceURL, d.SourceType, d.Text, meta,
				vectorBlob(d.Embedding), created.UTC().Format(time.RFC3339Nano))
		}
		query, args, err := ins.ToSql()
		if err != nil {
			return fmt.Errorf("building upsert: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("upserting %d documents: %w", end-start, err)
		}
	}
	return tx.Commit()
}

// Search scores every vector passing filter against vector and returns the
// topK best, highest score first. Only winners are loaded in full.
func (s *SQLiteStore) Search(ctx context.Context, vector []float32, topK int, filter Filter) ([]ScoredDocument, error) {
	qMag := magnitude(vector)
	if topK <= 0 || qMag == 0 {
		return nil, nil
	}

	sel := sq.Select("id", "embedding").From(vectorsTable)
	if len(filter) > 0 {
		where := sq.Eq{}
		for col, val := range filter {
			if !filterable[col] {
				return nil, fmt.Errorf("unsupported filter key %q", col)
			}
			where[col] = val
		}
		sel = sel.Where(where)
	}
	query, args, err := sel.ToSql()
	if err != nil {
		return nil, fmt.Errorf("building search query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("scanning vectors: %w", err)
	}
	defer rows.Close()

	best := newRanker(topK)
	var (
		id   string
		blob []byte
		vec  []float32
	)
	for rows.Next() {
		if err := rows.Scan(&id, &blob); err != nil {
			return nil, fmt.Errorf("reading vector row: %w", err)
		}
		if vec, err = blobVector(vec, blob); err != nil {
			return nil, fmt.Errorf("decoding embedding for %s: %w", id, err)
		}
		best.offer(hit{id: id, score: similarity(vector, qMag, vec)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scanning vectors: %w", err)
	}
	rows.Close()

	if len(best.hits) == 0 {
		return nil, nil
	}
	ids := make([]string, len(best.hits))
	rank := make(map[string]int, len(best.hits))
	for i, h := range best.hits {
		ids[i] = h.id
		rank[h.id] = i
	}
	docs, err := s.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("loading top documents: %w", err)
	}
	sort.Slice(docs, func(i, j int) bool { return rank[docs[i].ID] < rank[docs[j].ID] })

	out := make([]ScoredDocument, len(docs))
	for i, d := range docs {
		out[i] = ScoredDocument{Document: d, Score: best.hits[rank[d.ID]].score}
	}
	return out, nil
}

// GetByIDs loads documents by ID in no particular order; unknown IDs are
// skipped.
func (s *SQLiteStore) GetByIDs(ctx context.Context, ids []string) ([]Document, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query, args, err := sq.Select(docColumns...).From(vectorsTable).Where(sq.Eq{"id": ids}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("building lookup: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("loading documents: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// IDs lists every document ID in ascending order.
func (s *SQLiteStore) IDs(ctx context.Context) ([]string, error) {
	query, args, err := sq.Select("id").From(vectorsTable).OrderBy("id").ToSql()
	if err != nil {
		return nil, fmt.Errorf("building id listing: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("listing ids: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	query, args, err := sq.Delete(vectorsTable).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("building delete: %w", err)
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("deleting document %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("deleting document %s: %w", id, err)
	} else if n == 0 {
		return fmt.Errorf("deleting %s: %w", id, ErrDocumentNotFound)
	}
	return nil
}

func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	query, args, err := sq.Select("COUNT(*)").From(vectorsTable).ToSql()
	if err != nil {
		return 0, err
	}
	var n int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting documents: %w", err)
	}
	return n, nil
}

func scanDocument(rows *sql.Rows) (Document, error) {
	var (
		d       Document
		meta    string
		blob    []byte
		created string
	)
	if err := rows.Scan(&d.ID, &d.SourceURL, &d.SourceType, &d.Text, &meta, &blob, &created); err != nil {
		return Document{}, fmt.Errorf("reading document: %w", err)
	}
	vec, err := blobVector(nil, blob)
	if err != nil {
		return Document{}, fmt.Errorf("decoding embedding for %s: %w", d.ID, err)
	}
	d.Embedding = vec
	if meta != "" {
		if err := json.Unmarshal([]byte(meta), &d.Metadata); err != nil {
			return Document{}, fmt.Errorf("decoding metadata for %s: %w", d.ID, err)
		}
	}
	if d.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
		return Document{}, fmt.Errorf("parsing created_at for %s: %w", d.ID, err)
	}
	return d, nil
}

func metadataJSON(m map[string]string) (string, error) {
	if len(m) == 0 {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	return string(b), err
}
