package openai

import (
	"context"
	"errors"
	"log/slog"

	"github.com/poiesic/docchat/ai"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// ErrNoChoices is reported when the model returns an empty response.
var ErrNoChoices = errors.New("model returned no choices")

// Generator implements ai.Generator using OpenAI-compatible chat APIs.
type Generator struct {
	client    llms.Model
	maxTokens int
	logger    *slog.Logger
}

// newGenerator is an internal constructor that returns the concrete type.
func newGenerator(config *ai.Config) (*Generator, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	opts := append(clientOptions(config, config.ChatHost),
		openai.WithModel(config.ChatModel))
	client, err := openai.New(opts...)
	if err != nil {
		return nil, err
	}

	return &Generator{
		client:    client,
		maxTokens: config.MaxAnswerTokens,
		logger:    slog.Default().With("component", "openai-generator"),
	}, nil
}

// NewGenerator creates a new answer generator using the provided configuration.
//
// Returns ai.Generator interface to enforce abstraction.
func NewGenerator(config *ai.Config) (ai.Generator, error) {
	return newGenerator(config)
}

// Generate sends the prompt as a single user message and returns the first choice.
func (g *Generator) Generate(ctx context.Context, prompt string) ai.Result {
	content := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeHuman, prompt),
	}

	response, err := g.client.GenerateContent(ctx, content, llms.WithMaxTokens(g.maxTokens))
	if err != nil {
		g.logger.Error("failed to generate answer", "err", err)
		return ai.Failed(err)
	}

	if len(response.Choices) < 1 {
		g.logger.Warn("no choices returned from model")
		return ai.Failed(ErrNoChoices)
	}

	return ai.Answered(response.Choices[0].Content)
}
