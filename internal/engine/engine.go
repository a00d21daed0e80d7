// Package engine hides the inference backend behind one interface so fact
// extraction, indexing and question answering work against either a local
// Ollama server or an OpenAI-compatible API.
package engine

import (
	"context"

	"github.com/djivites/startup-intelligence-rag-sample/internal/ollama"
)

// Message roles understood by every backend.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type (
	Message      = ollama.Message
	PullProgress = ollama.PullProgress
)

// ChatOptions tunes a single chat call.
type ChatOptions struct {
	// JSON asks for a JSON reply where the backend supports it. Replies must
	// still be parsed tolerantly.
	JSON bool
}

type Chatter interface {
	Chat(ctx context.Context, model string, messages []Message, opts ChatOptions) (string, error)
}

// Embedder turns text into vectors. EmbedBatch results are index-aligned
// with texts.
type Embedder interface {
	Embed(ctx context.Context, model string, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, model string, texts []string) ([][]float32, error)
}

// ModelManager inspects and provisions models on the backend.
type ModelManager interface {
	IsRunning(ctx context.Context) bool
	ListModels(ctx context.Context) ([]string, error)
	HasModel(ctx context.Context, name string) bool
	// PullModel downloads name; onProgress may be nil.
	PullModel(ctx context.Context, name string, onProgress func(PullProgress)) error
}

type Engine interface {
	Chatter
	Embedder
	ModelManager
}
