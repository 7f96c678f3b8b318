package openai

import (
	"github.com/poiesic/docchat/ai"
	"github.com/tmc/langchaingo/llms/openai"
)

// clientOptions returns the langchaingo options shared by the embedder and
// generator for the configured API dialect.
func clientOptions(config *ai.Config, host string) []openai.Option {
	// Local OpenAI-compatible services accept any token but langchaingo
	// refuses an empty one.
	token := config.APIKey
	if token == "" {
		token = "none"
	}

	opts := []openai.Option{
		openai.WithBaseURL(host),
		openai.WithToken(token),
	}
	if config.APIType == ai.APITypeAzure {
		opts = append(opts,
			openai.WithAPIType(openai.APITypeAzure),
			openai.WithAPIVersion(config.APIVersion),
		)
	}
	return opts
}
