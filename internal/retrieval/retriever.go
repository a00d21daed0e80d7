package retrieval

import (
	"context"
	"time"
)

// Chunk is a retrieved document with its similarity score.
type Chunk struct {
	ID         string
	SourceURL  string
	SourceType string
	Text       string
	Metadata   map[string]string
	Score      float32
	CreatedAt  time.Time
}

// Retriever combines embedding and vector search to find relevant facts.
type Retriever struct {
	embedder *Embedder
	store    VectorStore
}

// NewRetriever creates a Retriever backed by the given Embedder and VectorStore.
func NewRetriever(embedder *Embedder, store VectorStore) *Retriever {
	return &Retriever{embedder: embedder, store: store}
}

// Retrieve embeds the query and returns the topK most similar chunks.
func (r *Retriever) Retrieve(ctx context.Context, query string, topK int, filter Filter) ([]Chunk, error) {
	vec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}

	scored, err := r.store.Search(ctx, vec, topK, filter)
	if err != nil {
		return nil, err
	}
	return scoredToChunks(scored), nil
}

func scoredToChunks(scored []ScoredDocument) []Chunk {
	chunks := make([]Chunk, len(scored))
	for i, s := range scored {
		chunks[i] = docToChunk(s.Document, s.Score)
	}
	return chunks
}

func docToChunk(d Document, score float32) Chunk {
	return Chunk{
		ID:         d.ID,
		SourceURL:  d.SourceURL,
		SourceType: d.SourceType,
		Text:       d.Text,
		Metadata:   d.Metadata,
		Score:      score,
		CreatedAt:  d.CreatedAt,
	}
}
