package engine

import (
	"context"

	"github.com/djivites/startup-intelligence-rag-sample/internal/ollama"
)

// OllamaEngine serves Engine from a local Ollama server. Everything but Chat
// is the client's own method.
type OllamaEngine struct {
	*ollama.Client
	temperature *float64
}

// NewOllamaEngine targets the server at baseURL. A positive temperature is
// sent with every chat call; zero leaves the model default.
func NewOllamaEngine(baseURL string, temperature float64) *OllamaEngine {
	e := &OllamaEngine{Client: ollama.New(baseURL)}
	if temperature > 0 {
		e.temperature = &temperature
	}
	return e
}

func (e *OllamaEngine) Chat(ctx context.Context, model string, messages []Message, opts ChatOptions) (string, error) {
	return e.Client.Chat(ctx, model, messages, ollama.ChatOptions{
		JSON:        opts.JSON,
		Temperature: e.temperature,
	})
}

var _ Engine = (*OllamaEngine)(nil)
