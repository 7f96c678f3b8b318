package ingestion

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/docchat/ai"
	"github.com/poiesic/docchat/core"
	"github.com/poiesic/docchat/extract"
	"github.com/poiesic/docchat/segment"
	"github.com/poiesic/docchat/storage"
)

// Pipeline orchestrates extraction, segmentation and embedding of uploads
// and adds the results to the document store.
type Pipeline struct {
	docs           storage.DocumentRepository
	extractor      *extract.Extractor
	embedder       *chunkEmbedder
	pool           *ants.Pool
	maxChunkWords  int
	maxAttempts    int
	retryBaseDelay time.Duration
	progress       io.Writer
	// addMu serializes store writes so batches land in upload order.
	addMu  sync.Mutex
	logger *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithPoolSize sets the worker pool size for concurrent processing.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}

		// Release old pool
		if p.pool != nil {
			p.pool.Release()
		}

		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		p.pool = pool
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// WithMaxChunkWords sets the maximum number of words per chunk.
// Values below 1 fall back to segment.DefaultMaxChunkWords.
func WithMaxChunkWords(n int) Option {
	return func(p *Pipeline) error {
		if n < 1 {
			n = segment.DefaultMaxChunkWords
		}
		p.maxChunkWords = n
		return nil
	}
}

// WithEmbedRetries makes the pipeline retry a failed embedding call up to
// maxAttempts times in total, doubling baseDelay between attempts.
// Default is a single attempt.
func WithEmbedRetries(maxAttempts int, baseDelay time.Duration) Option {
	return func(p *Pipeline) error {
		if maxAttempts < 1 {
			return ErrInvalidMaxAttempts
		}
		p.maxAttempts = maxAttempts
		p.retryBaseDelay = baseDelay
		return nil
	}
}

// WithProgress writes per-batch progress to w.
func WithProgress(w io.Writer) Option {
	return func(p *Pipeline) error {
		p.progress = w
		return nil
	}
}

// NewPipeline creates a new ingestion pipeline.
func NewPipeline(
	docs storage.DocumentRepository,
	provider ai.AIProvider,
	opts ...Option,
) (*Pipeline, error) {
	if docs == nil {
		return nil, ErrDocumentRepositoryRequired
	}
	if provider == nil {
		return nil, ErrAIProviderRequired
	}

	// Default pool size
	poolSize := max(runtime.NumCPU()/2, 1)
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	// Create pipeline with defaults
	p := &Pipeline{
		docs:           docs,
		pool:           pool,
		maxChunkWords:  segment.DefaultMaxChunkWords,
		maxAttempts:    1,
		retryBaseDelay: 500 * time.Millisecond,
		logger:         slog.Default(),
	}

	// Apply options (may override defaults)
	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}

	// Create collaborators after options are applied (so they get final config)
	p.extractor = extract.New(p.logger)
	p.embedder, err = newChunkEmbedder(provider.Embedder(), p.maxAttempts, p.retryBaseDelay, p.logger)
	if err != nil {
		p.Release()
		return nil, err
	}

	return p, nil
}

// prepared is an upload after extraction, segmentation and embedding.
type prepared struct {
	doc *core.Document
	// outcome is set when the upload finished early (skipped or failed).
	outcome *Outcome
}

// Ingest processes uploads concurrently and stores them in upload order.
// Returns one Outcome per upload, in the same order. The error is non-nil
// only when the batch could not be run at all.
func (p *Pipeline) Ingest(ctx context.Context, uploads ...Upload) ([]Outcome, error) {
	if len(uploads) == 0 {
		return []Outcome{}, nil
	}

	var tracker *ProgressTracker
	if p.progress != nil {
		tracker = NewProgressTracker(p.progress, len(uploads))
		tracker.Start()
	}

	results := make([]prepared, len(uploads))
	var wg sync.WaitGroup
	for i := range uploads {
		wg.Add(1)
		err := p.pool.Submit(func() {
			defer wg.Done()
			results[i] = p.prepare(ctx, uploads[i])
			if tracker != nil {
				tracker.Increment(1)
			}
		})
		if err != nil {
			wg.Done()
			wg.Wait()
			return nil, err
		}
	}
	wg.Wait()

	if tracker != nil {
		tracker.Finish()
	}

	p.addMu.Lock()
	defer p.addMu.Unlock()

	outcomes := make([]Outcome, len(uploads))
	for i, r := range results {
		if r.outcome != nil {
			outcomes[i] = *r.outcome
			continue
		}
		outcomes[i] = p.store(ctx, r.doc)
	}
	return outcomes, nil
}

// IngestOne processes a single upload synchronously.
func (p *Pipeline) IngestOne(ctx context.Context, upload Upload) Outcome {
	r := p.prepare(ctx, upload)
	if r.outcome != nil {
		return *r.outcome
	}

	p.addMu.Lock()
	defer p.addMu.Unlock()
	return p.store(ctx, r.doc)
}

// prepare runs the pure and embedding stages for one upload.
func (p *Pipeline) prepare(ctx context.Context, upload Upload) prepared {
	logger := p.logger.With("document", upload.Name)

	if upload.Name == "" {
		o := failed(upload.Name, core.ErrEmptyName)
		return prepared{outcome: &o}
	}

	// Skip the embedding cost for names that are already stored. The add
	// below repeats the check atomically.
	if _, err := p.docs.GetDocument(ctx, upload.Name); err == nil {
		logger.Info("document already loaded, skipping")
		o := skipped(upload.Name)
		return prepared{outcome: &o}
	} else if !errors.Is(err, storage.ErrNotFound) {
		o := failed(upload.Name, err)
		return prepared{outcome: &o}
	}

	text, err := p.extractor.Extract(ctx, upload.Kind, upload.Data)
	if err != nil {
		o := failed(upload.Name, err)
		return prepared{outcome: &o}
	}

	chunks := segment.Segment(text, p.maxChunkWords)
	logger.Debug("segmented document", "kind", upload.Kind, "chunks", len(chunks))

	if err := p.embedder.embed(ctx, upload.Name, chunks); err != nil {
		o := failed(upload.Name, err)
		return prepared{outcome: &o}
	}

	return prepared{doc: &core.Document{
		Name:   upload.Name,
		Kind:   upload.Kind,
		Chunks: chunks,
	}}
}

// store adds a prepared document. Must be called with addMu held.
func (p *Pipeline) store(ctx context.Context, doc *core.Document) Outcome {
	result, err := p.docs.AddDocument(ctx, doc)
	if err != nil {
		p.logger.Error("error storing document", "document", doc.Name, "err", err)
		return failed(doc.Name, err)
	}
	if result == storage.AlreadyExists {
		p.logger.Info("document already loaded, skipping", "document", doc.Name)
		return skipped(doc.Name)
	}
	p.logger.Info("loaded document", "document", doc.Name, "sections", len(doc.Chunks))
	return loaded(doc.Name, len(doc.Chunks))
}

// Release releases resources including the worker pool.
// The pipeline should not be used after calling Release.
func (p *Pipeline) Release() {
	if p.pool != nil {
		p.pool.Release()
	}
}
