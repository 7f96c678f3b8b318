package search

import (
	"math"
	"testing"

	"github.com/poiesic/docchat/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// unitAt returns a 2-d unit vector whose cosine with [1, 0] is c.
func unitAt(c float64) []float32 {
	return []float32{float32(c), float32(math.Sqrt(1 - c*c))}
}

func buildIndex(t *testing.T, docs ...*core.Document) *Index {
	t.Helper()
	idx, err := NewIndex(docs, 1)
	require.NoError(t, err)
	return idx
}

func TestRetrieve_TiesKeepCorpusOrder(t *testing.T) {
	doc := &core.Document{Name: "a.txt", Chunks: []core.Chunk{
		{Header: "H", Text: "c0", Vector: unitAt(0.9)},
		{Header: "H", Text: "c1", Vector: unitAt(0.5)},
		{Header: "H", Text: "c2", Vector: unitAt(0.9)},
	}}

	hits, err := Retrieve([]float32{1, 0}, buildIndex(t, doc), 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "c0", hits[0].Text)
	assert.Equal(t, "c2", hits[1].Text)
	assert.InDelta(t, 0.9, hits[0].Score, 1e-6)
	assert.InDelta(t, 0.9, hits[1].Score, 1e-6)
}

func TestRetrieve_EmptyIndex(t *testing.T) {
	hits, err := Retrieve([]float32{1, 0}, buildIndex(t), 5)
	require.NoError(t, err)
	assert.NotNil(t, hits)
	assert.Empty(t, hits)

	hits, err = Retrieve([]float32{1, 0}, nil, 5)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestRetrieve_DefaultK(t *testing.T) {
	doc := &core.Document{Name: "many.txt"}
	for i := range 15 {
		doc.Chunks = append(doc.Chunks, core.Chunk{Header: "H", Text: "t", Vector: unitAt(float64(i) / 15)})
	}
	idx := buildIndex(t, doc)

	for _, k := range []int{0, -3} {
		hits, err := Retrieve([]float32{1, 0}, idx, k)
		require.NoError(t, err)
		assert.Len(t, hits, DefaultTopK)
	}

	hits, err := Retrieve([]float32{1, 0}, idx, 100)
	require.NoError(t, err)
	assert.Len(t, hits, 15)
}

func TestRetrieve_DescendingAcrossDocuments(t *testing.T) {
	first := &core.Document{Name: "first.txt", Chunks: []core.Chunk{
		{Header: "ONE", Text: "low", Vector: unitAt(0.1)},
		{Header: "TWO", Text: "high", Vector: unitAt(0.99)},
	}}
	second := &core.Document{Name: "second.txt", Chunks: []core.Chunk{
		{Header: "THREE", Text: "mid", Vector: unitAt(0.6)},
	}}

	hits, err := Retrieve([]float32{1, 0}, buildIndex(t, first, second), 3)
	require.NoError(t, err)
	require.Len(t, hits, 3)
	assert.Equal(t, []string{"high", "mid", "low"}, []string{hits[0].Text, hits[1].Text, hits[2].Text})
	assert.Equal(t, core.ChunkMeta{DocumentName: "second.txt", Header: "THREE"}, hits[1].Meta)
	for i := 1; i < len(hits); i++ {
		assert.GreaterOrEqual(t, hits[i-1].Score, hits[i].Score)
	}
}

func TestRetrieve_ZeroNormScoresZero(t *testing.T) {
	doc := &core.Document{Name: "z.txt", Chunks: []core.Chunk{
		{Header: "H", Text: "zero", Vector: []float32{0, 0}},
		{Header: "H", Text: "neg", Vector: []float32{-1, 0}},
	}}
	idx := buildIndex(t, doc)

	hits, err := Retrieve([]float32{1, 0}, idx, 2)
	require.NoError(t, err)
	assert.Equal(t, "zero", hits[0].Text)
	assert.Equal(t, float32(0), hits[0].Score)
	assert.InDelta(t, -1, hits[1].Score, 1e-6)

	hits, err = Retrieve([]float32{0, 0}, idx, 2)
	require.NoError(t, err)
	for _, hit := range hits {
		assert.Equal(t, float32(0), hit.Score)
	}
}

func TestRetrieve_QueryDimensionMismatch(t *testing.T) {
	doc := &core.Document{Name: "a.txt", Chunks: []core.Chunk{{Header: "H", Text: "t", Vector: []float32{1, 0}}}}

	_, err := Retrieve([]float32{1, 0, 0}, buildIndex(t, doc), 1)
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestNewIndex_Flattening(t *testing.T) {
	a := &core.Document{Name: "a.txt", Chunks: []core.Chunk{
		{Header: "A1", Text: "a1", Vector: []float32{1, 2}},
		{Header: "A2", Text: "a2", Vector: []float32{3, 4}},
	}}
	empty := &core.Document{Name: "empty.txt"}
	b := &core.Document{Name: "b.txt", Chunks: []core.Chunk{
		{Header: "B1", Text: "b1", Vector: []float32{5, 6}},
	}}

	idx, err := NewIndex([]*core.Document{a, empty, b}, 7)
	require.NoError(t, err)
	assert.Equal(t, 3, idx.Len())
	assert.Equal(t, 2, idx.Dimension())
	assert.Equal(t, uint64(7), idx.Version())
	assert.Equal(t, []float32{3, 4}, idx.Vector(1))
	assert.Equal(t, []float32{5, 6}, idx.Vector(2))
	assert.Equal(t, "b1", idx.Text(2))
	assert.Equal(t, core.ChunkMeta{DocumentName: "a.txt", Header: "A2"}, idx.Meta(1))
}

func TestNewIndex_MixedDimensions(t *testing.T) {
	a := &core.Document{Name: "a.txt", Chunks: []core.Chunk{{Header: "H", Text: "t", Vector: []float32{1, 2}}}}
	b := &core.Document{Name: "b.txt", Chunks: []core.Chunk{{Header: "H", Text: "t", Vector: []float32{1, 2, 3}}}}

	_, err := NewIndex([]*core.Document{a, b}, 1)
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float32
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1},
		{"scaled", []float32{1, 1}, []float32{5, 5}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite", []float32{1, 0}, []float32{-2, 0}, -1},
		{"zero vector", []float32{0, 0}, []float32{1, 0}, 0},
		{"length mismatch", []float32{1}, []float32{1, 0}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, CosineSimilarity(tt.a, tt.b), 1e-6)
		})
	}
}
