// Package config loads docchat settings from YAML and .env files.
//
// Values are resolved in this order, later sources winning: built-in
// defaults, the YAML file, environment variables, command-line flags. The
// last two are applied by the CLI.
package config

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/poiesic/docchat/ai"
	"github.com/poiesic/docchat/search"
	"github.com/poiesic/docchat/segment"
	"github.com/poiesic/docchat/watch"
	"gopkg.in/yaml.v3"
)

// ModelConfig configures the embedding and chat models.
type ModelConfig struct {
	APIType         string `yaml:"api_type"`
	APIVersion      string `yaml:"api_version"`
	Host            string `yaml:"host"`
	EmbeddingHost   string `yaml:"embedding_host,omitempty"`
	ChatHost        string `yaml:"chat_host,omitempty"`
	APIKeyEnv       string `yaml:"api_key_env,omitempty"`
	EmbeddingModel  string `yaml:"embedding_model"`
	ChatModel       string `yaml:"chat_model"`
	BatchSize       int    `yaml:"batch_size"`
	MaxAnswerTokens int    `yaml:"max_answer_tokens"`
}

// RetrievalConfig configures segmentation and ranking.
type RetrievalConfig struct {
	MaxChunkWords int `yaml:"max_chunk_words"`
	TopK          int `yaml:"top_k"`
}

// IngestionConfig configures the ingestion worker pool.
type IngestionConfig struct {
	PoolSize     int           `yaml:"pool_size"`
	EmbedRetries int           `yaml:"embed_retries"`
	RetryDelay   time.Duration `yaml:"retry_delay"`
}

// WatchConfig configures directory watching.
type WatchConfig struct {
	Debounce time.Duration `yaml:"debounce"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Model     ModelConfig     `yaml:"model"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Ingestion IngestionConfig `yaml:"ingestion"`
	Watch     WatchConfig     `yaml:"watch"`
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DefaultConfig(), nil
		}
		return nil, err
	}
	return Parse(data)
}

// Parse decodes YAML config data and fills unset values with defaults.
func Parse(data []byte) (*AppConfig, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	applyDefaults(cfg)
	return cfg, nil
}

// LoadDefault tries ./docchat.yaml first, then ~/.config/docchat/config.yaml.
// If neither exists, it returns defaults and an empty path.
func LoadDefault() (*AppConfig, string, error) {
	candidates := []string{"docchat.yaml"}
	if path, err := UserPath(); err == nil {
		candidates = append(candidates, path)
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			cfg, err := Load(path)
			return cfg, path, err
		}
	}
	return DefaultConfig(), "", nil
}

// UserPath returns ~/.config/docchat/config.yaml.
func UserPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "docchat", "config.yaml"), nil
}

// LoadEnv loads variables from the given .env files into the process
// environment without overriding variables that are already set.
// With no arguments it reads ./.env. Missing files are ignored.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, file := range files {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}
	return nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *AppConfig {
	defaults := ai.DefaultConfig()
	return &AppConfig{
		Model: ModelConfig{
			APIType:         defaults.APIType,
			Host:            defaults.EmbeddingHost,
			EmbeddingModel:  defaults.EmbeddingModel,
			ChatModel:       defaults.ChatModel,
			BatchSize:       defaults.EmbeddingBatchSize,
			MaxAnswerTokens: defaults.MaxAnswerTokens,
		},
		Retrieval: RetrievalConfig{
			MaxChunkWords: segment.DefaultMaxChunkWords,
			TopK:          search.DefaultTopK,
		},
		Ingestion: IngestionConfig{
			EmbedRetries: 1,
			RetryDelay:   500 * time.Millisecond,
		},
		Watch: WatchConfig{
			Debounce: watch.DefaultDebounce,
		},
	}
}

func applyDefaults(cfg *AppConfig) {
	defaults := DefaultConfig()
	if cfg.Model.APIType == "" {
		cfg.Model.APIType = defaults.Model.APIType
	}
	if cfg.Model.Host == "" {
		cfg.Model.Host = defaults.Model.Host
	}
	if cfg.Model.BatchSize < 1 {
		cfg.Model.BatchSize = defaults.Model.BatchSize
	}
	if cfg.Model.MaxAnswerTokens < 1 {
		cfg.Model.MaxAnswerTokens = defaults.Model.MaxAnswerTokens
	}
	if cfg.Retrieval.MaxChunkWords < 1 {
		cfg.Retrieval.MaxChunkWords = defaults.Retrieval.MaxChunkWords
	}
	if cfg.Retrieval.TopK < 1 {
		cfg.Retrieval.TopK = defaults.Retrieval.TopK
	}
	if cfg.Ingestion.EmbedRetries < 1 {
		cfg.Ingestion.EmbedRetries = defaults.Ingestion.EmbedRetries
	}
	if cfg.Watch.Debounce <= 0 {
		cfg.Watch.Debounce = defaults.Watch.Debounce
	}
}

// APIKey resolves the API key from the environment.
// An explicit api_key_env wins; otherwise AZURE_OPENAI_KEY is used for the
// azure API type and OPENAI_API_KEY for everything else. Returns "" when
// the variable is unset.
func (m ModelConfig) APIKey() string {
	name := m.APIKeyEnv
	if name == "" {
		name = "OPENAI_API_KEY"
		if m.APIType == ai.APITypeAzure {
			name = "AZURE_OPENAI_KEY"
		}
	}
	return os.Getenv(name)
}

// AIConfig converts the model section into an ai.Config.
func (m ModelConfig) AIConfig() *ai.Config {
	opts := []ai.ConfigOption{
		ai.WithAPIType(m.APIType),
		ai.WithAPIVersion(m.APIVersion),
		ai.WithHost(m.Host),
		ai.WithEmbeddingModel(m.EmbeddingModel),
		ai.WithChatModel(m.ChatModel),
		ai.WithEmbeddingBatchSize(m.BatchSize),
		ai.WithMaxAnswerTokens(m.MaxAnswerTokens),
	}
	if m.EmbeddingHost != "" {
		opts = append(opts, ai.WithEmbeddingHost(m.EmbeddingHost))
	}
	if m.ChatHost != "" {
		opts = append(opts, ai.WithChatHost(m.ChatHost))
	}
	if key := m.APIKey(); key != "" {
		opts = append(opts, ai.WithAPIKey(key))
	}
	return ai.NewConfig(opts...)
}
