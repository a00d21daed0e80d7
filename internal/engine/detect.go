package engine

import (
	"fmt"

	"github.com/djivites/startup-intelligence-rag-sample/internal/config"
)

// Detect returns the Engine selected by cfg.Engine.Backend.
func Detect(cfg config.Config) (Engine, error) {
	switch cfg.Engine.Backend {
	case config.BackendOllama, "":
		return NewOllamaEngine(cfg.Ollama.BaseURL, cfg.Ollama.Temperature), nil
	case config.BackendOpenAI:
		if cfg.OpenAI.APIKey == "" {
			return nil, fmt.Errorf("engine %q requires openai.api_key", config.BackendOpenAI)
		}
		return NewOpenAIEngine(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL), nil
	default:
		return nil, fmt.Errorf("unknown engine backend %q", cfg.Engine.Backend)
	}
}

// Models returns the chat and embedding model names for the configured backend.
func Models(cfg config.Config) (chat, embed string) {
	if cfg.Engine.Backend == config.BackendOpenAI {
		return cfg.OpenAI.ChatModel, cfg.OpenAI.EmbedModel
	}
	return cfg.Ollama.ChatModel, cfg.Ollama.EmbedModel
}
