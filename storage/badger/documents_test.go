package badger

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/poiesic/docchat/core"
	"github.com/poiesic/docchat/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepositories(t *testing.T) (storage.DocumentRepository, storage.ConversationRepository) {
	t.Helper()
	docRepo, convRepo, backend, err := NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() {
		docRepo.Close()
		convRepo.Close()
		backend.Close()
	})
	return docRepo, convRepo
}

func makeDocument(name string, vectors ...[]float32) *core.Document {
	doc := &core.Document{Name: name, Kind: core.KindText}
	for i, v := range vectors {
		doc.Chunks = append(doc.Chunks, core.Chunk{
			Header: core.DefaultHeader,
			Text:   fmt.Sprintf("chunk %d of %s", i, name),
			Vector: v,
		})
	}
	return doc
}

func TestAddDocument(t *testing.T) {
	docs, _ := newTestRepositories(t)
	ctx := context.Background()

	doc := makeDocument("a.txt", []float32{1, 0}, []float32{0, 1})
	result, err := docs.AddDocument(ctx, doc)
	require.NoError(t, err)
	assert.Equal(t, storage.Added, result)
	assert.False(t, doc.InsertedAt.IsZero())
	assert.Equal(t, uint64(1), docs.Version())
	assert.Equal(t, 2, docs.Dimension())

	got, err := docs.GetDocument(ctx, "a.txt")
	require.NoError(t, err)
	assert.Equal(t, doc.Chunks, got.Chunks)
	assert.Equal(t, doc.InsertedAt, got.InsertedAt)
}

func TestAddDocument_LargerThanValueLimit(t *testing.T) {
	docs, _ := newTestRepositories(t)
	ctx := context.Background()

	const (
		chunks = 200
		dim    = 768
	)
	text := strings.Repeat("requirement ", 250)
	doc := &core.Document{Name: "rfp.pdf", Kind: core.KindPDF}
	for i := range chunks {
		vector := make([]float32, dim)
		for j := range vector {
			vector[j] = float32(i*dim+j) / 1000
		}
		doc.Chunks = append(doc.Chunks, core.Chunk{
			Header: fmt.Sprintf("SECTION %d", i),
			Text:   text,
			Vector: vector,
		})
	}
	require.Greater(t, len(storage.MarshalDocument(doc)), 1<<20)

	result, err := docs.AddDocument(ctx, doc)
	require.NoError(t, err)
	assert.Equal(t, storage.Added, result)

	got, err := docs.GetDocument(ctx, "rfp.pdf")
	require.NoError(t, err)
	require.Len(t, got.Chunks, chunks)
	assert.Equal(t, doc.Chunks, got.Chunks)

	listed, err := docs.ListDocuments(ctx)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Len(t, listed[0].Chunks, chunks)
}

func TestAddDocument_DuplicateNameKeepsFirst(t *testing.T) {
	docs, _ := newTestRepositories(t)
	ctx := context.Background()

	_, err := docs.AddDocument(ctx, makeDocument("a.txt", []float32{1, 0}))
	require.NoError(t, err)

	result, err := docs.AddDocument(ctx, makeDocument("a.txt", []float32{0, 1}, []float32{1, 1}))
	require.NoError(t, err)
	assert.Equal(t, storage.AlreadyExists, result)
	assert.Equal(t, uint64(1), docs.Version())

	got, err := docs.GetDocument(ctx, "a.txt")
	require.NoError(t, err)
	require.Len(t, got.Chunks, 1)
	assert.Equal(t, []float32{1, 0}, got.Chunks[0].Vector)
}

func TestAddDocument_ZeroChunks(t *testing.T) {
	docs, _ := newTestRepositories(t)
	ctx := context.Background()

	result, err := docs.AddDocument(ctx, makeDocument("blank.txt"))
	require.NoError(t, err)
	assert.Equal(t, storage.Added, result)
	assert.Equal(t, 0, docs.Dimension())

	// A later document fixes the dimension.
	_, err = docs.AddDocument(ctx, makeDocument("b.txt", []float32{1, 2, 3}))
	require.NoError(t, err)
	assert.Equal(t, 3, docs.Dimension())
}

func TestAddDocument_DimensionMismatch(t *testing.T) {
	docs, _ := newTestRepositories(t)
	ctx := context.Background()

	_, err := docs.AddDocument(ctx, makeDocument("a.txt", []float32{1, 0}))
	require.NoError(t, err)

	_, err = docs.AddDocument(ctx, makeDocument("b.txt", []float32{1, 0, 0}))
	assert.ErrorIs(t, err, storage.ErrDimensionMismatch)
	assert.Equal(t, uint64(1), docs.Version())

	_, err = docs.GetDocument(ctx, "b.txt")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestAddDocument_Invalid(t *testing.T) {
	docs, _ := newTestRepositories(t)
	ctx := context.Background()

	_, err := docs.AddDocument(ctx, &core.Document{})
	assert.ErrorIs(t, err, core.ErrInvalidDocument)

	_, err = docs.AddDocument(ctx, makeDocument("a.txt", []float32{1}, nil))
	assert.ErrorIs(t, err, core.ErrMissingVector)
}

func TestAddDocument_CancelledContext(t *testing.T) {
	docs, _ := newTestRepositories(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := docs.AddDocument(ctx, makeDocument("a.txt", []float32{1}))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, uint64(0), docs.Version())
}

func TestAddDocument_ConcurrentSameName(t *testing.T) {
	docs, _ := newTestRepositories(t)
	ctx := context.Background()

	const workers = 16
	results := make([]storage.AddResult, workers)
	errs := make([]error, workers)

	var wg sync.WaitGroup
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = docs.AddDocument(ctx, makeDocument("same.txt", []float32{float32(i), 1}))
		}()
	}
	wg.Wait()

	added := 0
	for i := range workers {
		require.NoError(t, errs[i])
		if results[i] == storage.Added {
			added++
		} else {
			assert.Equal(t, storage.AlreadyExists, results[i])
		}
	}
	assert.Equal(t, 1, added)
	assert.Equal(t, uint64(1), docs.Version())
}

func TestListDocuments_InsertionOrder(t *testing.T) {
	docs, _ := newTestRepositories(t)
	ctx := context.Background()

	empty, err := docs.ListDocuments(ctx)
	require.NoError(t, err)
	assert.Empty(t, empty)

	names := []string{"zeta.txt", "alpha.txt", "mid.txt"}
	for _, name := range names {
		_, err := docs.AddDocument(ctx, makeDocument(name, []float32{1, 1}))
		require.NoError(t, err)
	}

	list, err := docs.ListDocuments(ctx)
	require.NoError(t, err)
	require.Len(t, list, len(names))
	for i, doc := range list {
		assert.Equal(t, names[i], doc.Name)
	}
}

func TestGetDocument_NotFound(t *testing.T) {
	docs, _ := newTestRepositories(t)

	_, err := docs.GetDocument(context.Background(), "missing.pdf")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
