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

package openai

import (
	"log/slog"
	"sync/atomic"

	"github.com/poiesic/docchat/ai"
)

// Provider serves embeddings and chat completions from one OpenAI or Azure
// OpenAI configuration. The embedding and chat endpoints may differ.
type Provider struct {
	apiType   string
	embedder  *Embedder
	generator *Generator
	closed    atomic.Bool
	logger    *slog.Logger
}

// NewProvider validates config and connects both services.
func NewProvider(config *ai.Config) (ai.AIProvider, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	embedder, err := newEmbedder(config)
	if err != nil {
		return nil, err
	}
	generator, err := newGenerator(config)
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("component", "openai-provider")
	logger.Debug("provider ready",
		"api_type", config.APIType,
		"embedding_host", config.EmbeddingHost,
		"embedding_model", config.EmbeddingModel,
		"chat_host", config.ChatHost,
		"chat_model", config.ChatModel)

	return &Provider{
		apiType:   config.APIType,
		embedder:  embedder,
		generator: generator,
		logger:    logger,
	}, nil
}

// APIType reports which dialect the provider speaks (openai or azure).
func (p *Provider) APIType() string {
	return p.apiType
}

func (p *Provider) Embedder() ai.Embedder {
	return p.embedder
}

func (p *Provider) Generator() ai.Generator {
	return p.generator
}

// Close marks the provider closed. The HTTP clients hold no resources
// that need releasing, so a second Close is harmless.
func (p *Provider) Close() error {
	if p.closed.Swap(true) {
		return nil
	}
	p.logger.Debug("closing provider", "api_type", p.apiType)
	return nil
}
