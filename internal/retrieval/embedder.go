package retrieval

import (
	"context"
	"fmt"

	"github.com/djivites/startup-intelligence-rag-sample/internal/engine"
)

// Embedder binds an engine to one embedding model. Query and document
// vectors must come from the same model to be comparable.
type Embedder struct {
	backend engine.Embedder
	model   string
}

func NewEmbedder(backend engine.Embedder, model string) *Embedder {
	return &Embedder{backend: backend, model: model}
}

func (e *Embedder) Model() string { return e.model }

func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vec, err := e.backend.Embed(ctx, e.model, text)
	if err != nil {
		return nil, fmt.Errorf("embedding text with %s: %w", e.model, err)
	}
	if len(vec) == 0 {
		return nil, fmt.Errorf("embedding text with %s: empty vector", e.model)
	}
	return vec, nil
}

// EmbedBatch embeds texts in one backend call. Empty input yields nil.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	vecs, err := e.backend.EmbedBatch(ctx, e.model, texts)
	switch {
	case err != nil:
		return nil, fmt.Errorf("embedding %d texts with %s: %w", len(texts), e.model, err)
	case len(vecs) != len(texts):
		return nil, fmt.Errorf("embedding %d texts with %s: got %d vectors", len(texts), e.model, len(vecs))
	}
	return vecs, nil
}
