package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/poiesic/docchat/ai"
	"github.com/poiesic/docchat/core"
)

// chunkEmbedder fills in the vectors of a document's chunks.
type chunkEmbedder struct {
	embedder       ai.Embedder
	maxAttempts    int
	retryBaseDelay time.Duration
	logger         *slog.Logger
}

// newChunkEmbedder creates a new chunk embedder.
func newChunkEmbedder(embedder ai.Embedder, maxAttempts int, retryBaseDelay time.Duration, logger *slog.Logger) (*chunkEmbedder, error) {
	if embedder == nil {
		return nil, fmt.Errorf("embedder required")
	}
	if maxAttempts < 1 {
		return nil, ErrInvalidMaxAttempts
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &chunkEmbedder{
		embedder:       embedder,
		maxAttempts:    maxAttempts,
		retryBaseDelay: retryBaseDelay,
		logger:         logger.With("processor", "embeddings"),
	}, nil
}

// embed embeds every chunk text in one call and assigns the vectors in order.
// On error the chunks are left untouched.
func (ce *chunkEmbedder) embed(ctx context.Context, name string, chunks []core.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	texts := make([]string, len(chunks))
	for i := range chunks {
		texts[i] = chunks[i].Text
	}

	logger := ce.logger.With("document", name)
	logger.Debug("generating embeddings for chunks", "chunks", len(texts))
	var embeddings [][]float32
	err := RetryWithBackoff(ctx, logger, ce.maxAttempts, ce.retryBaseDelay, func(ctx context.Context) error {
		var err error
		embeddings, err = ce.embedder.EmbedTexts(ctx, texts)
		return err
	})
	if err != nil {
		logger.Error("error generating embeddings", "err", err)
		return fmt.Errorf("%w: %s: %w", ErrEmbeddingFailed, name, err)
	}

	if len(embeddings) != len(chunks) {
		return fmt.Errorf("%w: %s: expected %d vectors, received %d", ErrEmbeddingFailed, name, len(chunks), len(embeddings))
	}

	for i := range chunks {
		chunks[i].Vector = embeddings[i]
	}
	return nil
}
