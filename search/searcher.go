package search

import (
	"context"
	"log/slog"

	"github.com/poiesic/docchat/ai"
	"github.com/poiesic/docchat/storage"
)

// Searcher embeds questions and ranks stored chunks against them.
type Searcher struct {
	embedder ai.Embedder
	cache    *IndexCache
	ranker   Ranker
	topK     int
	logger   *slog.Logger
}

// Option configures a Searcher.
type Option func(*Searcher) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// WithRanker replaces the LinearRanker.
func WithRanker(ranker Ranker) Option {
	return func(s *Searcher) error {
		if ranker != nil {
			s.ranker = ranker
		}
		return nil
	}
}

// WithTopK sets how many hits are returned.
// Values below 1 fall back to DefaultTopK.
func WithTopK(k int) Option {
	return func(s *Searcher) error {
		if k < 1 {
			k = DefaultTopK
		}
		s.topK = k
		return nil
	}
}

// NewSearcher creates a new searcher.
func NewSearcher(
	docs storage.DocumentRepository,
	provider ai.AIProvider,
	opts ...Option,
) (*Searcher, error) {
	if docs == nil {
		return nil, ErrDocumentRepositoryRequired
	}
	if provider == nil {
		return nil, ErrAIProviderRequired
	}

	s := &Searcher{
		embedder: provider.Embedder(),
		cache:    NewIndexCache(docs),
		ranker:   LinearRanker{},
		topK:     DefaultTopK,
		logger:   slog.Default(),
	}

	// Apply options
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// TopK returns the number of hits the searcher returns.
func (s *Searcher) TopK() int {
	return s.topK
}

// FindRelevant returns the chunks most similar to the question, best first.
func (s *Searcher) FindRelevant(ctx context.Context, question string) ([]Hit, error) {
	return s.FindRelevantWithMonitor(ctx, question, nil)
}

// FindRelevantWithMonitor is FindRelevant with a monitor that receives a
// callback at each stage of the search.
func (s *Searcher) FindRelevantWithMonitor(ctx context.Context, question string, monitor SearchMonitor) ([]Hit, error) {
	if monitor == nil {
		monitor = &noopMonitor{}
	}
	monitor.Start(question)

	embedding, err := s.embedder.EmbedText(ctx, question)
	if err != nil {
		s.logger.Error("error generating embedding for question", "err", err)
		return nil, err
	}
	monitor.AfterQueryEmbedding(len(embedding))

	index, rebuilt, err := s.cache.Get(ctx)
	if err != nil {
		s.logger.Error("error loading chunk index", "err", err)
		return nil, err
	}
	if rebuilt {
		s.logger.Debug("rebuilt chunk index", "chunks", index.Len(), "version", index.Version())
	}
	monitor.AfterIndexLoad(index.Len(), rebuilt)

	hits, err := s.ranker.Rank(embedding, index, s.topK)
	if err != nil {
		s.logger.Error("error ranking chunks", "err", err)
		return nil, err
	}
	monitor.Finish(hits)

	return hits, nil
}
