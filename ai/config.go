// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package ai

import (
	"errors"
	"strings"
)

// API types understood by the OpenAI-compatible provider.
const (
	APITypeOpenAI = "openai"
	APITypeAzure  = "azure"
)

// Config holds configuration for AI service providers.
type Config struct {
	// APIType selects the wire dialect: "openai" for OpenAI and compatible
	// servers (Ollama, LocalAI, vLLM), "azure" for Azure OpenAI deployments.
	APIType string

	// APIKey authenticates against the service. Local servers accept any value.
	APIKey string

	// APIVersion is required by Azure OpenAI. Ignored for other API types.
	APIVersion string

	// EmbeddingHost is the base URL for the embedding service API.
	// Example: "http://localhost:11434/v1" for local OpenAI-compatible server
	EmbeddingHost string

	// ChatHost is the base URL for the answer generation service API.
	ChatHost string

	// EmbeddingModel is the model identifier to use for text embeddings.
	// Example: "nomic-embed-text", "text-embedding-3-small"
	EmbeddingModel string

	// ChatModel is the model (or Azure deployment) used to answer questions.
	// Example: "qwen2.5:3b", "gpt-4o-mini"
	ChatModel string

	// EmbeddingBatchSize caps the number of texts sent per embedding request.
	// Default: 32
	EmbeddingBatchSize int

	// MaxAnswerTokens limits the length of generated answers.
	// Default: 500
	MaxAnswerTokens int
}

// ConfigOption is a functional option for configuring a Config.
type ConfigOption func(*Config)

// WithAPIType sets the API dialect ("openai" or "azure").
func WithAPIType(apiType string) ConfigOption {
	return func(c *Config) {
		c.APIType = apiType
	}
}

// WithAPIKey sets the API key.
func WithAPIKey(key string) ConfigOption {
	return func(c *Config) {
		c.APIKey = key
	}
}

// WithAPIVersion sets the Azure OpenAI API version.
func WithAPIVersion(version string) ConfigOption {
	return func(c *Config) {
		c.APIVersion = version
	}
}

// WithEmbeddingHost sets the embedding service host URL.
func WithEmbeddingHost(host string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingHost = host
	}
}

// WithChatHost sets the answer generation service host URL.
func WithChatHost(host string) ConfigOption {
	return func(c *Config) {
		c.ChatHost = host
	}
}

// WithHost sets both embedding and chat hosts to the same URL.
func WithHost(host string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingHost = host
		c.ChatHost = host
	}
}

// WithEmbeddingModel sets the embedding model identifier.
func WithEmbeddingModel(model string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingModel = model
	}
}

// WithChatModel sets the chat model identifier.
func WithChatModel(model string) ConfigOption {
	return func(c *Config) {
		c.ChatModel = model
	}
}

// WithEmbeddingBatchSize sets the number of texts per embedding request.
func WithEmbeddingBatchSize(size int) ConfigOption {
	return func(c *Config) {
		c.EmbeddingBatchSize = size
	}
}

// WithMaxAnswerTokens sets the generation length limit.
func WithMaxAnswerTokens(tokens int) ConfigOption {
	return func(c *Config) {
		c.MaxAnswerTokens = tokens
	}
}

// DefaultConfig returns a Config with sensible defaults for local OpenAI-compatible services.
// By default, both embedding and chat use the same host.
func DefaultConfig() *Config {
	defaultHost := "http://localhost:11434/v1"
	return &Config{
		APIType:            APITypeOpenAI,
		APIKey:             "none",
		EmbeddingHost:      defaultHost,
		ChatHost:           defaultHost,
		EmbeddingModel:     "nomic-embed-text",
		ChatModel:          "qwen2.5:3b",
		EmbeddingBatchSize: 32,
		MaxAnswerTokens:    500,
	}
}

// NewConfig creates a Config with the default values and applies the provided options.
//
// Example:
//
//	cfg := NewConfig(
//	    WithHost("http://localhost:11434/v1"),
//	    WithEmbeddingModel("text-embedding-3-small"),
//	)
func NewConfig(opts ...ConfigOption) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Normalize ensures the configuration is in a canonical form.
// For the openai API type it adds the /v1 suffix to hosts if missing, which is
// required by most OpenAI-compatible APIs. Azure endpoints are left untouched.
func (c *Config) Normalize() {
	c.APIType = strings.ToLower(strings.TrimSpace(c.APIType))
	if c.APIType == "" {
		c.APIType = APITypeOpenAI
	}
	if c.APIType != APITypeOpenAI {
		return
	}
	c.EmbeddingHost = withV1Suffix(c.EmbeddingHost)
	c.ChatHost = withV1Suffix(c.ChatHost)
}

func withV1Suffix(host string) string {
	if host == "" || strings.HasSuffix(host, "/v1") {
		return host
	}
	return strings.TrimSuffix(host, "/") + "/v1"
}

// Validate checks that the configuration is valid and complete.
// It automatically normalizes the configuration before validation.
func (c *Config) Validate() error {
	c.Normalize()

	if c.APIType != APITypeOpenAI && c.APIType != APITypeAzure {
		return errors.New("ai config: APIType must be openai or azure")
	}
	if c.EmbeddingHost == "" {
		return errors.New("ai config: EmbeddingHost is required")
	}
	if c.ChatHost == "" {
		return errors.New("ai config: ChatHost is required")
	}
	if c.EmbeddingModel == "" {
		return errors.New("ai config: EmbeddingModel is required")
	}
	if c.ChatModel == "" {
		return errors.New("ai config: ChatModel is required")
	}
	if c.APIType == APITypeAzure {
		if c.APIVersion == "" {
			return errors.New("ai config: APIVersion is required for azure")
		}
		if c.APIKey == "" || c.APIKey == "none" {
			return errors.New("ai config: APIKey is required for azure")
		}
	}
	if c.EmbeddingBatchSize < 1 {
		return errors.New("ai config: EmbeddingBatchSize must be at least 1")
	}
	if c.MaxAnswerTokens < 1 {
		return errors.New("ai config: MaxAnswerTokens must be at least 1")
	}
	return nil
}
