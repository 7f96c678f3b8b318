package ai

import "context"

// Embedder generates vector embeddings from text for semantic similarity search.
// Implementations must be thread-safe for concurrent use, and must return
// vectors of one fixed dimension for the lifetime of the process.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	// Returns an error if the embedding generation fails.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a batch.
	// The returned slice contains embeddings in the same order as the input texts.
	// An empty input returns an empty slice without contacting the service.
	// Returns an error if any embedding generation fails.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Generator answers a fully constructed prompt with a language model.
// Implementations never return a Go error for model failures; the failure is
// carried in the Result so callers can render it as the answer text.
type Generator interface {
	Generate(ctx context.Context, prompt string) Result
}

// Result is the tagged outcome of a generation call: exactly one of Answer
// or Err is meaningful.
type Result struct {
	Answer string
	Err    error
}

// Answered wraps a successful generation.
func Answered(answer string) Result {
	return Result{Answer: answer}
}

// Failed wraps a generation error.
func Failed(err error) Result {
	return Result{Err: err}
}

// OK reports whether the generation succeeded.
func (r Result) OK() bool {
	return r.Err == nil
}

// AIProvider aggregates AI services for convenient initialization and lifecycle management.
type AIProvider interface {
	// Embedder returns the text embedding service.
	// The returned Embedder is safe for concurrent use.
	Embedder() Embedder

	// Generator returns the answer generation service.
	Generator() Generator

	// Close releases resources held by the provider and its services.
	// After Close is called, the provider and its services should not be used.
	Close() error
}
