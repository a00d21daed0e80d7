package retrieval

import (
	"context"
	"time"
)

// VectorStore persists embedded documents and answers similarity queries.
// The SQLite implementation scans every vector; callers should not assume
// any index beyond that.
type VectorStore interface {
	// Upsert inserts documents, replacing any existing document with the same ID.
	Upsert(ctx context.Context, docs []Document) error

	// Search returns the topK documents most similar to vector, best first.
	// filter restricts candidates by exact match on indexed columns.
	Search(ctx context.Context, vector []float32, topK int, filter Filter) ([]ScoredDocument, error)

	// GetByIDs returns the documents with the given IDs.
	GetByIDs(ctx context.Context, ids []string) ([]Document, error)

	// IDs returns every stored document ID.
	IDs(ctx context.Context) ([]string, error)

	// Delete removes a document by ID.
	Delete(ctx context.Context, id string) error

	// Count returns the number of stored documents.
	Count(ctx context.Context) (int, error)
}

// Document is one indexed fact record.
type Document struct {
	ID         string
	SourceURL  string
	SourceType string
	Text       string
	Metadata   map[string]string
	Embedding  []float32
	CreatedAt  time.Time
}

// ScoredDocument is a Document with its cosine similarity to the query.
type ScoredDocument struct {
	Document
	Score float32
}

// Filter restricts a search to documents whose columns equal the given
// values. Supported keys are "source_type" and "source_url".
type Filter map[string]string
