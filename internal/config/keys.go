package config

import (
	"fmt"
	"os"
	"strconv"
)

type keyType int

const (
	kString keyType = iota
	kInt
	kBool
	kFloat
)

type keySpec struct {
	key     string
	typ     keyType
	env     string
	secret  bool
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

var specs = []keySpec{
	{
		key: "server.port", typ: kInt, env: "STARTUPINTEL_SERVER_PORT",
		apply:   func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.Port },
	},
	{
		key: "server.api_token", typ: kString, env: "STARTUPINTEL_API_TOKEN",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Server.APIToken = v.(string) },
		extract: func(cfg Config) any { return cfg.Server.APIToken },
	},
	{
		key: "engine.backend", typ: kString, env: "STARTUPINTEL_ENGINE_BACKEND",
		apply:   func(cfg *Config, v any) { cfg.Engine.Backend = v.(string) },
		extract: func(cfg Config) any { return cfg.Engine.Backend },
	},
	{
		key: "ollama.base_url", typ: kString, env: "STARTUPINTEL_OLLAMA_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.Ollama.BaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.Ollama.BaseURL },
	},
	{
		key: "ollama.chat_model", typ: kString, env: "STARTUPINTEL_OLLAMA_CHAT_MODEL",
		apply:   func(cfg *Config, v any) { cfg.Ollama.ChatModel = v.(string) },
		extract: func(cfg Config) any { return cfg.Ollama.ChatModel },
	},
	{
		key: "ollama.embed_model", typ: kString, env: "STARTUPINTEL_OLLAMA_EMBED_MODEL",
		apply:   func(cfg *Config, v any) { cfg.Ollama.EmbedModel = v.(string) },
		extract: func(cfg Config) any { return cfg.Ollama.EmbedModel },
	},
	{
		key: "ollama.temperature", typ: kFloat, env: "STARTUPINTEL_OLLAMA_TEMPERATURE",
		apply:   func(cfg *Config, v any) { cfg.Ollama.Temperature = v.(float64) },
		extract: func(cfg Config) any { return cfg.Ollama.Temperature },
	},
	{
		key: "openai.api_key", typ: kString, env: "STARTUPINTEL_OPENAI_API_KEY",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.OpenAI.APIKey = v.(string) },
		extract: func(cfg Config) any { return cfg.OpenAI.APIKey },
	},
	{
		key: "openai.base_url", typ: kString, env: "STARTUPINTEL_OPENAI_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.OpenAI.BaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.OpenAI.BaseURL },
	},
	{
		key: "openai.chat_model", typ: kString, env: "STARTUPINTEL_OPENAI_CHAT_MODEL",
		apply:   func(cfg *Config, v any) { cfg.OpenAI.ChatModel = v.(string) },
		extract: func(cfg Config) any { return cfg.OpenAI.ChatModel },
	},
	{
		key: "openai.embed_model", typ: kString, env: "STARTUPINTEL_OPENAI_EMBED_MODEL",
		apply:   func(cfg *Config, v any) { cfg.OpenAI.EmbedModel = v.(string) },
		extract: func(cfg Config) any { return cfg.OpenAI.EmbedModel },
	},
	{
		key: "storage.data_dir", typ: kString, env: "STARTUPINTEL_DATA_DIR",
		apply:   func(cfg *Config, v any) { cfg.Storage.DataDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.DataDir },
	},
	{
		key: "feeds.file", typ: kString, env: "STARTUPINTEL_FEEDS_FILE",
		apply:   func(cfg *Config, v any) { cfg.Feeds.File = v.(string) },
		extract: func(cfg Config) any { return cfg.Feeds.File },
	},
	{
		key: "ingest.page_timeout", typ: kString, env: "STARTUPINTEL_INGEST_PAGE_TIMEOUT",
		apply:   func(cfg *Config, v any) { cfg.Ingest.PageTimeout = v.(string) },
		extract: func(cfg Config) any { return cfg.Ingest.PageTimeout },
	},
	{
		key: "ingest.user_agent", typ: kString, env: "STARTUPINTEL_INGEST_USER_AGENT",
		apply:   func(cfg *Config, v any) { cfg.Ingest.UserAgent = v.(string) },
		extract: func(cfg Config) any { return cfg.Ingest.UserAgent },
	},
	{
		key: "ingest.extract_facts", typ: kBool, env: "STARTUPINTEL_INGEST_EXTRACT_FACTS",
		apply:   func(cfg *Config, v any) { cfg.Ingest.ExtractFacts = v.(bool) },
		extract: func(cfg Config) any { return cfg.Ingest.ExtractFacts },
	},
	{
		key: "ingest.mark_failed_extractions", typ: kBool, env: "STARTUPINTEL_INGEST_MARK_FAILED_EXTRACTIONS",
		apply:   func(cfg *Config, v any) { cfg.Ingest.MarkFailedExtractions = v.(bool) },
		extract: func(cfg Config) any { return cfg.Ingest.MarkFailedExtractions },
	},
	{
		key: "retrieval.top_k", typ: kInt, env: "STARTUPINTEL_RETRIEVAL_TOP_K",
		apply:   func(cfg *Config, v any) { cfg.Retrieval.TopK = v.(int) },
		extract: func(cfg Config) any { return cfg.Retrieval.TopK },
	},
	{
		key: "sessions.max_sessions", typ: kInt, env: "STARTUPINTEL_SESSIONS_MAX",
		apply:   func(cfg *Config, v any) { cfg.Sessions.MaxSessions = v.(int) },
		extract: func(cfg Config) any { return cfg.Sessions.MaxSessions },
	},
	{
		key: "sessions.ttl", typ: kString, env: "STARTUPINTEL_SESSIONS_TTL",
		apply:   func(cfg *Config, v any) { cfg.Sessions.TTL = v.(string) },
		extract: func(cfg Config) any { return cfg.Sessions.TTL },
	},
	{
		key: "sessions.max_turns", typ: kInt, env: "STARTUPINTEL_SESSIONS_MAX_TURNS",
		apply:   func(cfg *Config, v any) { cfg.Sessions.MaxTurns = v.(int) },
		extract: func(cfg Config) any { return cfg.Sessions.MaxTurns },
	},
	{
		key: "log.level", typ: kString, env: "STARTUPINTEL_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
}

func (t keyType) String() string {
	switch t {
	case kInt:
		return "integer"
	case kBool:
		return "bool"
	case kFloat:
		return "float"
	default:
		return "string"
	}
}

// parse converts a raw string into the Go value apply expects for t.
func (t keyType) parse(raw string) (any, error) {
	switch t {
	case kInt:
		return strconv.Atoi(raw)
	case kBool:
		return strconv.ParseBool(raw)
	case kFloat:
		return strconv.ParseFloat(raw, 64)
	default:
		return raw, nil
	}
}

func lookupSpec(key string) (keySpec, bool) {
	for _, s := range specs {
		if s.key == key {
			return s, true
		}
	}
	return keySpec{}, false
}

func applyBackend(cfg *Config, b ConfigBackend) error {
	for _, s := range specs {
		if s.secret {
			continue
		}
		if s.typ == kInt {
			v, ok, err := b.GetInt(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
			continue
		}
		raw, ok, err := b.GetString(s.key)
		if err != nil {
			return fmt.Errorf("reading %s: %w", s.key, err)
		}
		if !ok || (raw == "" && s.typ != kString) {
			continue
		}
		v, err := s.typ.parse(raw)
		if err != nil {
			fmt.Fprintf(os.Stderr, "[WARN] could not parse %s from config key %s=%q: %v. Using default value.\n", s.typ, s.key, raw, err)
			continue
		}
		s.apply(cfg, v)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		raw := os.Getenv(s.env)
		if s.env == "" || raw == "" {
			continue
		}
		v, err := s.typ.parse(raw)
		if err != nil {
			fmt.Fprintf(os.Stderr, "[WARN] could not parse %s from env var %s=%q: %v. Using default value.\n", s.typ, s.env, raw, err)
			continue
		}
		s.apply(cfg, v)
	}
}
