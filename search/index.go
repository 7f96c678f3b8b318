package search

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/poiesic/docchat/core"
	"github.com/poiesic/docchat/storage"
)

// Index is a read-only, flattened view of every chunk in the document store.
// Chunk i occupies vectors[i*dim : (i+1)*dim].
type Index struct {
	version uint64
	dim     int
	vectors []float32
	norms   []float64
	texts   []string
	meta    []core.ChunkMeta
}

// NewIndex flattens docs in order, then each document's chunks in order.
// Every chunk must have the same vector length.
func NewIndex(docs []*core.Document, version uint64) (*Index, error) {
	size := 0
	dim := 0
	for _, doc := range docs {
		size += len(doc.Chunks)
		if dim == 0 {
			dim = doc.Dimension()
		}
	}

	idx := &Index{
		version: version,
		dim:     dim,
		vectors: make([]float32, 0, size*dim),
		norms:   make([]float64, 0, size),
		texts:   make([]string, 0, size),
		meta:    make([]core.ChunkMeta, 0, size),
	}
	for _, doc := range docs {
		for i := range doc.Chunks {
			chunk := &doc.Chunks[i]
			if len(chunk.Vector) != dim {
				return nil, fmt.Errorf("%w: %s chunk %d has %d values, want %d",
					ErrDimensionMismatch, doc.Name, i, len(chunk.Vector), dim)
			}
			idx.vectors = append(idx.vectors, chunk.Vector...)
			idx.norms = append(idx.norms, norm(chunk.Vector))
			idx.texts = append(idx.texts, chunk.Text)
			idx.meta = append(idx.meta, core.ChunkMeta{DocumentName: doc.Name, Header: chunk.Header})
		}
	}
	return idx, nil
}

// Len returns the number of chunks in the index.
func (idx *Index) Len() int {
	if idx == nil {
		return 0
	}
	return len(idx.texts)
}

// Dimension returns the vector length shared by all chunks, or 0 when empty.
func (idx *Index) Dimension() int { return idx.dim }

// Version returns the store version the index was built from.
func (idx *Index) Version() uint64 { return idx.version }

// Vector returns the embedding of chunk i. The slice aliases the index.
func (idx *Index) Vector(i int) []float32 {
	return idx.vectors[i*idx.dim : (i+1)*idx.dim : (i+1)*idx.dim]
}

// Text returns the text of chunk i.
func (idx *Index) Text(i int) string { return idx.texts[i] }

// Meta returns where chunk i came from.
func (idx *Index) Meta(i int) core.ChunkMeta { return idx.meta[i] }

// IndexCache keeps the most recent Index and rebuilds it when the store's
// version moves on.
type IndexCache struct {
	docs    storage.DocumentRepository
	mu      sync.Mutex
	current *Index
}

// NewIndexCache creates a cache over docs.
func NewIndexCache(docs storage.DocumentRepository) *IndexCache {
	return &IndexCache{docs: docs}
}

// Get returns an index no older than the store version at the time of the call.
// The boolean reports whether the index was rebuilt.
func (c *IndexCache) Get(ctx context.Context) (*Index, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	version := c.docs.Version()
	if c.current != nil && c.current.version == version {
		return c.current, false, nil
	}

	docs, err := c.docs.ListDocuments(ctx)
	if err != nil {
		return nil, false, err
	}
	idx, err := NewIndex(docs, version)
	if err != nil {
		return nil, false, err
	}
	c.current = idx
	return idx, true, nil
}

func norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}
