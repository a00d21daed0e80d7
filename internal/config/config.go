package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	Engine    EngineConfig
	Ollama    OllamaConfig
	OpenAI    OpenAIConfig
	Storage   StorageConfig
	Feeds     FeedsConfig
	Ingest    IngestConfig
	Retrieval RetrievalConfig
	Sessions  SessionsConfig
	Log       LogConfig
}

type ServerConfig struct {
	Port     int
	APIToken string
}

// EngineConfig selects the inference backend: "ollama" or "openai".
type EngineConfig struct {
	Backend string
}

type OllamaConfig struct {
	BaseURL     string
	ChatModel   string
	EmbedModel  string
	Temperature float64
}

type OpenAIConfig struct {
	APIKey     string
	BaseURL    string
	ChatModel  string
	EmbedModel string
}

type StorageConfig struct {
	DataDir string
}

type FeedsConfig struct {
	File string
}

type IngestConfig struct {
	PageTimeout           string
	UserAgent             string
	ExtractFacts          bool
	MarkFailedExtractions bool
}

type RetrievalConfig struct {
	TopK int
}

type SessionsConfig struct {
	MaxSessions int
	TTL         string
	MaxTurns    int
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port: 4100,
		},
		Engine: EngineConfig{
			Backend: BackendOllama,
		},
		Ollama: OllamaConfig{
			BaseURL:     "http://localhost:11434",
			ChatModel:   "llama3",
			EmbedModel:  "llama3",
			Temperature: 0.7,
		},
		OpenAI: OpenAIConfig{
			BaseURL:    "https://api.openai.com/v1",
			ChatModel:  "gpt-4o-mini",
			EmbedModel: "text-embedding-3-small",
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Ingest: IngestConfig{
			PageTimeout:           "10s",
			UserAgent:             "startupintel/1.0",
			MarkFailedExtractions: true,
		},
		Retrieval: RetrievalConfig{
			TopK: 8,
		},
		Sessions: SessionsConfig{
			MaxSessions: 256,
			TTL:         "2h",
			MaxTurns:    20,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

const (
	BackendOllama = "ollama"
	BackendOpenAI = "openai"
)

// Load reads configuration from the YAML config file, a .env file in the
// working directory, environment variables, and the local secrets file.
//
// The config file lives at $XDG_CONFIG_HOME/startupintel/config.yaml.
// Environment variables (STARTUPINTEL_*) override backend values.
func Load() (Config, error) {
	// Variables already present in the environment win over .env.
	_ = godotenv.Load()
	return loadWith(newFileBackend(configFilePath()), secretsFile{path: secretsFilePath()})
}

// secretReader abstracts the secrets file for testing.
type secretReader interface {
	Get(key string) (string, error)
}

func loadWith(b ConfigBackend, secrets secretReader) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)
	cfg.Engine.Backend = strings.ToLower(strings.TrimSpace(cfg.Engine.Backend))

	if cfg.OpenAI.APIKey == "" {
		if key, err := secrets.Get("openai.api_key"); err == nil && key != "" {
			cfg.OpenAI.APIKey = key
		}
	}
	if cfg.Server.APIToken == "" {
		if tok, err := secrets.Get("server.api_token"); err == nil && tok != "" {
			cfg.Server.APIToken = tok
		}
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.Engine.Backend {
	case BackendOllama:
	case BackendOpenAI:
		if c.OpenAI.APIKey == "" {
			return fmt.Errorf("missing required config: OpenAI API key. "+
				"Set it via environment variable STARTUPINTEL_OPENAI_API_KEY or the secrets file %s", secretsFilePath())
		}
	default:
		return fmt.Errorf("invalid engine.backend %q: want %q or %q", c.Engine.Backend, BackendOllama, BackendOpenAI)
	}
	if c.Retrieval.TopK <= 0 {
		return fmt.Errorf("invalid retrieval.top_k %d: must be positive", c.Retrieval.TopK)
	}
	return nil
}

// PageTimeoutDuration returns the page fetch timeout, falling back to 10s on a bad value.
func (c IngestConfig) PageTimeoutDuration() time.Duration {
	d, err := time.ParseDuration(c.PageTimeout)
	if err != nil || d <= 0 {
		return 10 * time.Second
	}
	return d
}

// TTLDuration returns the session TTL, falling back to 2h on a bad value.
func (c SessionsConfig) TTLDuration() time.Duration {
	d, err := time.ParseDuration(c.TTL)
	if err != nil || d <= 0 {
		return 2 * time.Hour
	}
	return d
}

// Paths under the data directory.

func (c StorageConfig) RawDir() string {
	return filepath.Join(c.DataDir, "raw")
}

func (c StorageConfig) FactsDir() string {
	return filepath.Join(c.DataDir, "processed")
}

func (c StorageConfig) MetadataDir() string {
	return filepath.Join(c.DataDir, "metadata")
}

func defaultDataDir() string {
	return filepath.Join(xdgDir("XDG_DATA_HOME", ".local", "share"), "startupintel")
}

func configFilePath() string {
	return filepath.Join(xdgDir("XDG_CONFIG_HOME", ".config"), "startupintel", "config.yaml")
}
