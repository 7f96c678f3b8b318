package ingestion

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/poiesic/docchat/ai/mock"
	"github.com/poiesic/docchat/core"
	"github.com/poiesic/docchat/storage"
	"github.com/poiesic/docchat/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupPipeline(t *testing.T, opts ...Option) (*Pipeline, storage.DocumentRepository, *mock.MockEmbedder) {
	t.Helper()
	docs, conv, backend, err := badger.NewMemoryRepositories()
	require.NoError(t, err)

	embedder := mock.NewMockEmbedder()
	provider := mock.NewMockProviderWithServices(embedder, mock.NewMockGenerator())
	pipeline, err := NewPipeline(docs, provider, opts...)
	require.NoError(t, err)

	t.Cleanup(func() {
		pipeline.Release()
		docs.Close()
		conv.Close()
		backend.Close()
	})
	return pipeline, docs, embedder
}

func textUpload(name, text string) Upload {
	return Upload{Name: name, Kind: core.KindText, Data: []byte(text)}
}

func TestNewPipeline_RequiredArguments(t *testing.T) {
	_, err := NewPipeline(nil, mock.NewMockProvider())
	assert.ErrorIs(t, err, ErrDocumentRepositoryRequired)

	docs, conv, backend, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	defer func() { docs.Close(); conv.Close(); backend.Close() }()

	_, err = NewPipeline(docs, nil)
	assert.ErrorIs(t, err, ErrAIProviderRequired)

	_, err = NewPipeline(docs, mock.NewMockProvider(), WithEmbedRetries(0, time.Millisecond))
	assert.ErrorIs(t, err, ErrInvalidMaxAttempts)
}

func TestIngestOne_Loaded(t *testing.T) {
	pipeline, docs, _ := setupPipeline(t)
	ctx := context.Background()

	outcome := pipeline.IngestOne(ctx, textUpload("guide.txt", "INTRO\nhello world\nOVERVIEW\nfoo bar baz"))
	require.NoError(t, outcome.Err)
	assert.Equal(t, StatusLoaded, outcome.Status)
	assert.Equal(t, 2, outcome.Sections)

	doc, err := docs.GetDocument(ctx, "guide.txt")
	require.NoError(t, err)
	require.Len(t, doc.Chunks, 2)
	assert.Equal(t, "INTRO", doc.Chunks[0].Header)
	assert.Equal(t, "hello world", doc.Chunks[0].Text)
	assert.Equal(t, mock.GenerateDeterministicVector("hello world", mock.DefaultDimension), doc.Chunks[0].Vector)
	assert.Equal(t, "OVERVIEW", doc.Chunks[1].Header)
}

func TestIngestOne_DuplicateSkipsWithoutEmbedding(t *testing.T) {
	pipeline, docs, embedder := setupPipeline(t)
	ctx := context.Background()

	first := pipeline.IngestOne(ctx, textUpload("a.txt", "first version"))
	require.Equal(t, StatusLoaded, first.Status)
	calls := embedder.CallCount()

	second := pipeline.IngestOne(ctx, textUpload("a.txt", "second version with different text"))
	assert.Equal(t, StatusSkipped, second.Status)
	assert.NoError(t, second.Err)
	assert.Equal(t, calls, embedder.CallCount())

	doc, err := docs.GetDocument(ctx, "a.txt")
	require.NoError(t, err)
	assert.Equal(t, "first version", doc.Chunks[0].Text)
	assert.Equal(t, uint64(1), docs.Version())
}

func TestIngestOne_UnsupportedKindLoadsZeroSections(t *testing.T) {
	pipeline, docs, embedder := setupPipeline(t)
	ctx := context.Background()

	outcome := pipeline.IngestOne(ctx, Upload{Name: "image.png", Kind: core.KindUnsupported, Data: []byte{0x89, 'P', 'N', 'G'}})
	require.NoError(t, outcome.Err)
	assert.Equal(t, StatusLoaded, outcome.Status)
	assert.Equal(t, 0, outcome.Sections)
	assert.Equal(t, 0, embedder.CallCount())

	doc, err := docs.GetDocument(ctx, "image.png")
	require.NoError(t, err)
	assert.Empty(t, doc.Chunks)
}

func TestIngestOne_EmbeddingFailureStoresNothing(t *testing.T) {
	pipeline, docs, embedder := setupPipeline(t)
	ctx := context.Background()

	embedErr := errors.New("model unavailable")
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		return nil, embedErr
	}

	outcome := pipeline.IngestOne(ctx, textUpload("a.txt", "some text"))
	assert.Equal(t, StatusFailed, outcome.Status)
	assert.ErrorIs(t, outcome.Err, ErrEmbeddingFailed)
	assert.ErrorIs(t, outcome.Err, embedErr)

	_, err := docs.GetDocument(ctx, "a.txt")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.Equal(t, uint64(0), docs.Version())
}

func TestIngestOne_VectorCountMismatch(t *testing.T) {
	pipeline, docs, embedder := setupPipeline(t)

	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		return [][]float32{{1, 0}}, nil
	}

	outcome := pipeline.IngestOne(context.Background(), textUpload("a.txt", "A:\none\nB:\ntwo"))
	assert.Equal(t, StatusFailed, outcome.Status)
	assert.ErrorIs(t, outcome.Err, ErrEmbeddingFailed)
	assert.Equal(t, uint64(0), docs.Version())
}

func TestIngestOne_EmptyName(t *testing.T) {
	pipeline, _, _ := setupPipeline(t)

	outcome := pipeline.IngestOne(context.Background(), textUpload("", "text"))
	assert.Equal(t, StatusFailed, outcome.Status)
	assert.ErrorIs(t, outcome.Err, core.ErrEmptyName)
}

func TestIngestOne_LongSectionSplit(t *testing.T) {
	pipeline, docs, _ := setupPipeline(t, WithMaxChunkWords(3))
	ctx := context.Background()

	outcome := pipeline.IngestOne(ctx, textUpload("long.txt", "one two three four five six seven"))
	require.Equal(t, StatusLoaded, outcome.Status)
	assert.Equal(t, 3, outcome.Sections)

	doc, err := docs.GetDocument(ctx, "long.txt")
	require.NoError(t, err)
	for _, chunk := range doc.Chunks {
		assert.Equal(t, core.DefaultHeader, chunk.Header)
		assert.LessOrEqual(t, chunk.WordCount(), 3)
	}
}

func TestIngest_OutcomesAndStoreFollowUploadOrder(t *testing.T) {
	pipeline, docs, _ := setupPipeline(t, WithPoolSize(4))
	ctx := context.Background()

	var uploads []Upload
	for i := range 12 {
		uploads = append(uploads, textUpload(fmt.Sprintf("doc-%02d.txt", i), fmt.Sprintf("content number %d", i)))
	}

	outcomes, err := pipeline.Ingest(ctx, uploads...)
	require.NoError(t, err)
	require.Len(t, outcomes, len(uploads))
	for i, outcome := range outcomes {
		assert.Equal(t, uploads[i].Name, outcome.Name)
		assert.Equal(t, StatusLoaded, outcome.Status)
	}

	list, err := docs.ListDocuments(ctx)
	require.NoError(t, err)
	require.Len(t, list, len(uploads))
	for i, doc := range list {
		assert.Equal(t, uploads[i].Name, doc.Name)
	}
}

func TestIngest_DuplicateNamesInOneBatch(t *testing.T) {
	pipeline, docs, _ := setupPipeline(t, WithPoolSize(4))
	ctx := context.Background()

	outcomes, err := pipeline.Ingest(ctx,
		textUpload("same.txt", "first"),
		textUpload("other.txt", "other"),
		textUpload("same.txt", "second"),
	)
	require.NoError(t, err)
	assert.Equal(t, StatusLoaded, outcomes[0].Status)
	assert.Equal(t, StatusLoaded, outcomes[1].Status)
	assert.Equal(t, StatusSkipped, outcomes[2].Status)

	doc, err := docs.GetDocument(ctx, "same.txt")
	require.NoError(t, err)
	assert.Equal(t, "first", doc.Chunks[0].Text)
	assert.Equal(t, uint64(2), docs.Version())
}

func TestIngest_OneFailureDoesNotAffectOthers(t *testing.T) {
	pipeline, docs, embedder := setupPipeline(t)
	ctx := context.Background()

	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		if strings.Contains(texts[0], "poison") {
			return nil, errors.New("rejected")
		}
		vectors := make([][]float32, len(texts))
		for i, text := range texts {
			vectors[i] = mock.GenerateDeterministicVector(text, 8)
		}
		return vectors, nil
	}

	outcomes, err := pipeline.Ingest(ctx, textUpload("good.txt", "fine text"), textUpload("bad.txt", "poison pill"))
	require.NoError(t, err)
	assert.Equal(t, StatusLoaded, outcomes[0].Status)
	assert.Equal(t, StatusFailed, outcomes[1].Status)
	assert.Equal(t, uint64(1), docs.Version())
}

func TestIngest_Empty(t *testing.T) {
	pipeline, _, _ := setupPipeline(t)

	outcomes, err := pipeline.Ingest(context.Background())
	require.NoError(t, err)
	assert.Empty(t, outcomes)
}

func TestIngest_EmbedRetries(t *testing.T) {
	pipeline, docs, embedder := setupPipeline(t, WithEmbedRetries(3, time.Millisecond))

	var attempts atomic.Int32
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		if attempts.Add(1) < 3 {
			return nil, errors.New("temporary error")
		}
		return [][]float32{{1, 0}}, nil
	}

	outcome := pipeline.IngestOne(context.Background(), textUpload("a.txt", "retry me"))
	require.NoError(t, outcome.Err)
	assert.Equal(t, StatusLoaded, outcome.Status)
	assert.Equal(t, int32(3), attempts.Load())
	assert.Equal(t, 2, docs.Dimension())
}

func TestIngest_Progress(t *testing.T) {
	var buf strings.Builder
	pipeline, _, _ := setupPipeline(t, WithProgress(&buf), WithPoolSize(1))

	_, err := pipeline.Ingest(context.Background(), textUpload("a.txt", "a"), textUpload("b.txt", "b"))
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "2/2 files (100.0%)")
}

func TestNewUpload(t *testing.T) {
	upload := NewUpload("/tmp/docs/Report.PDF", []byte("data"))
	assert.Equal(t, "Report.PDF", upload.Name)
	assert.Equal(t, core.KindPDF, upload.Kind)

	upload = NewUpload("notes.md", nil)
	assert.Equal(t, core.KindText, upload.Kind)
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "loaded", StatusLoaded.String())
	assert.Equal(t, "skipped", StatusSkipped.String())
	assert.Equal(t, "failed", StatusFailed.String())
	assert.Equal(t, "unknown", Status(0).String())
}
