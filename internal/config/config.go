package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"pdf-rag/internal/domain"
)

// LoggingConfig controls the arbor logger.
type LoggingConfig struct {
	Level  string   `yaml:"level" toml:"level" validate:"oneof=trace debug info warn error"`
	Output []string `yaml:"output" toml:"output" validate:"dive,oneof=console stdout file"`
	File   string   `yaml:"file" toml:"file"`
}

// StorageConfig locates the local databases.
type StorageConfig struct {
	BadgerPath string `yaml:"badger_path" toml:"badger_path" validate:"required"`
}

// QueueConfig configures the ingestion job queue and its consumers.
type QueueConfig struct {
	Name              string `yaml:"name" toml:"name" validate:"required"`
	Concurrency       int    `yaml:"concurrency" toml:"concurrency" validate:"gte=1"`
	PollInterval      string `yaml:"poll_interval" toml:"poll_interval" validate:"duration"`
	VisibilityTimeout string `yaml:"visibility_timeout" toml:"visibility_timeout" validate:"duration"`
	MaxReceive        int    `yaml:"max_receive" toml:"max_receive" validate:"gte=1"`
}

// ChunkerConfig configures how documents are split into chunks.
type ChunkerConfig struct {
	Type    string `yaml:"type" toml:"type" validate:"oneof=char"`
	Size    int    `yaml:"size" toml:"size" validate:"gt=0"`
	Overlap int    `yaml:"overlap" toml:"overlap" validate:"gte=0,ltfield=Size"`
}

// TFIDFConfig configures the local embedding engine.
type TFIDFConfig struct {
	Persist bool `yaml:"persist" toml:"persist"`
}

// OpenAIEmbedderConfig holds configuration for the OpenAI-compatible embedder.
type OpenAIEmbedderConfig struct {
	BaseURL     string `yaml:"base_url" toml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env" toml:"api_key_env"`
	Model       string `yaml:"model" toml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs" toml:"timeout_secs"`
}

// EmbedderConfig selects and configures the text embedder implementation.
type EmbedderConfig struct {
	Type   string               `yaml:"type" toml:"type" validate:"oneof=tfidf openai"`
	TFIDF  TFIDFConfig          `yaml:"tfidf" toml:"tfidf"`
	OpenAI OpenAIEmbedderConfig `yaml:"openai" toml:"openai"`
}

// BoltConfig locates the bbolt vector file.
type BoltConfig struct {
	Path string `yaml:"path" toml:"path"`
}

// QdrantConfig contains connection details for a Qdrant vector store.
type QdrantConfig struct {
	URL         string `yaml:"url" toml:"url"`
	APIKey      string `yaml:"api_key" toml:"api_key"`
	TimeoutSecs int    `yaml:"timeout_secs" toml:"timeout_secs"`
}

// VectorStoreConfig selects and configures the vector store implementation.
type VectorStoreConfig struct {
	Type       string       `yaml:"type" toml:"type" validate:"oneof=memory bolt qdrant"`
	Collection string       `yaml:"collection" toml:"collection" validate:"required"`
	Bolt       BoltConfig   `yaml:"bolt" toml:"bolt"`
	Qdrant     QdrantConfig `yaml:"qdrant" toml:"qdrant"`
}

// RetrievalConfig configures query-time search.
type RetrievalConfig struct {
	TopK int `yaml:"top_k" toml:"top_k" validate:"gte=1"`
}

// GeminiConfig configures the Gemini answer generator.
type GeminiConfig struct {
	APIKeyEnv string `yaml:"api_key_env" toml:"api_key_env"`
	Model     string `yaml:"model" toml:"model"`
}

// ClaudeConfig configures the Claude answer generator.
type ClaudeConfig struct {
	APIKeyEnv string `yaml:"api_key_env" toml:"api_key_env"`
	Model     string `yaml:"model" toml:"model"`
	MaxTokens int    `yaml:"max_tokens" toml:"max_tokens"`
}

// GeneratorConfig selects the remote answer generator. The local fallback is always on.
type GeneratorConfig struct {
	Type    string       `yaml:"type" toml:"type" validate:"oneof=gemini claude none"`
	Timeout string       `yaml:"timeout" toml:"timeout" validate:"duration"`
	Gemini  GeminiConfig `yaml:"gemini" toml:"gemini"`
	Claude  ClaudeConfig `yaml:"claude" toml:"claude"`
}

// InboxConfig configures the watched upload directory.
type InboxConfig struct {
	Dir string `yaml:"dir" toml:"dir"`
}

// SummarizerConfig selects and configures the summarizer.
type SummarizerConfig struct {
	Type         string `yaml:"type" toml:"type" validate:"oneof=frequency none"`
	MaxSentences int    `yaml:"max_sentences" toml:"max_sentences" validate:"gte=0"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Logging     LoggingConfig     `yaml:"logging" toml:"logging"`
	Storage     StorageConfig     `yaml:"storage" toml:"storage"`
	Queue       QueueConfig       `yaml:"queue" toml:"queue"`
	Chunker     ChunkerConfig     `yaml:"chunker" toml:"chunker"`
	Embedder    EmbedderConfig    `yaml:"embedder" toml:"embedder"`
	VectorStore VectorStoreConfig `yaml:"vector_store" toml:"vector_store"`
	Retrieval   RetrievalConfig   `yaml:"retrieval" toml:"retrieval"`
	Generator   GeneratorConfig   `yaml:"generator" toml:"generator"`
	Inbox       InboxConfig       `yaml:"inbox" toml:"inbox"`
	Summarizer  SummarizerConfig  `yaml:"summarizer" toml:"summarizer"`
}

// PollEvery returns the parsed queue poll interval.
func (c QueueConfig) PollEvery() time.Duration { return mustDuration(c.PollInterval) }

// Visibility returns the parsed visibility timeout.
func (c QueueConfig) Visibility() time.Duration { return mustDuration(c.VisibilityTimeout) }

// TimeoutDuration returns the parsed generator timeout.
func (c GeneratorConfig) TimeoutDuration() time.Duration { return mustDuration(c.Timeout) }

// mustDuration parses a duration that Validate has already checked.
func mustDuration(s string) time.Duration {
	d, _ := time.ParseDuration(s)
	return d
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
// Files ending in .toml are decoded as TOML, everything else as YAML.
func Load(path string) (*AppConfig, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, err
	}
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		err = toml.Unmarshal(data, cfg)
	} else {
		err = yaml.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, domain.Wrap(domain.ErrConfiguration, err, "parse "+path)
	}
	applyConfigDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/pdf-rag/config.yaml.
// If neither exists, it writes defaults to ~/.config/pdf-rag/config.yaml and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := Default()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	var (
		data []byte
		err  error
	)
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		data, err = toml.Marshal(cfg)
	} else {
		data, err = yaml.Marshal(cfg)
	}
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate checks field rules and returns an ErrConfiguration on the first violation.
func (c *AppConfig) Validate() error {
	v := validator.New()
	if err := v.RegisterValidation("duration", validDuration); err != nil {
		return err
	}
	if err := v.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return domain.Errorf(domain.ErrConfiguration, "%s failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value())
		}
		return domain.Wrap(domain.ErrConfiguration, err, "validate config")
	}
	return nil
}

func validDuration(fl validator.FieldLevel) bool {
	d, err := time.ParseDuration(fl.Field().String())
	return err == nil && d > 0
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "pdf-rag", "config.yaml"), nil
}

// Default returns the built-in configuration.
func Default() *AppConfig {
	return &AppConfig{
		Logging: LoggingConfig{Level: "info", Output: []string{"console"}},
		Storage: StorageConfig{BadgerPath: filepath.Join("data", "badger")},
		Queue: QueueConfig{
			Name:              "file-upload-queue",
			Concurrency:       1,
			PollInterval:      "500ms",
			VisibilityTimeout: "5m",
			MaxReceive:        3,
		},
		Chunker:  ChunkerConfig{Type: "char", Size: 1000, Overlap: 200},
		Embedder: EmbedderConfig{Type: "tfidf", TFIDF: TFIDFConfig{Persist: true}},
		VectorStore: VectorStoreConfig{
			Type:       "bolt",
			Collection: "pdf-docs",
			Bolt:       BoltConfig{Path: filepath.Join("data", "vectors.db")},
			Qdrant:     QdrantConfig{URL: "http://localhost:6333"},
		},
		Retrieval: RetrievalConfig{TopK: 2},
		Generator: GeneratorConfig{
			Type:    "gemini",
			Timeout: "30s",
			Gemini:  GeminiConfig{APIKeyEnv: "GEMINI_API_KEY", Model: "gemini-2.0-flash"},
			Claude:  ClaudeConfig{APIKeyEnv: "ANTHROPIC_API_KEY", Model: "claude-sonnet-4-5", MaxTokens: 1024},
		},
		Inbox:      InboxConfig{Dir: "uploads"},
		Summarizer: SummarizerConfig{Type: "frequency", MaxSentences: 5},
	}
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.Embedder.Type == "openai" {
		if cfg.Embedder.OpenAI.BaseURL == "" {
			cfg.Embedder.OpenAI.BaseURL = "https://api.openai.com/v1"
		}
		if cfg.Embedder.OpenAI.APIKeyEnv == "" {
			cfg.Embedder.OpenAI.APIKeyEnv = "OPENAI_API_KEY"
		}
		if cfg.Embedder.OpenAI.Model == "" {
			cfg.Embedder.OpenAI.Model = "text-embedding-3-small"
		}
		if cfg.Embedder.OpenAI.TimeoutSecs == 0 {
			cfg.Embedder.OpenAI.TimeoutSecs = 30
		}
	}
	if cfg.VectorStore.Type == "qdrant" && cfg.VectorStore.Qdrant.TimeoutSecs == 0 {
		cfg.VectorStore.Qdrant.TimeoutSecs = 15
	}
	if cfg.Generator.Claude.MaxTokens <= 0 {
		cfg.Generator.Claude.MaxTokens = 1024
	}
}
