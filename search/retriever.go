package search

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/poiesic/docchat/core"
)

// DefaultTopK is the number of hits returned when k is not positive.
const DefaultTopK = 10

// Hit is one retrieved chunk and its similarity to the query.
type Hit struct {
	Text  string
	Meta  core.ChunkMeta
	Score float32
}

// Ranker orders index chunks by relevance to a query embedding.
type Ranker interface {
	// Rank returns at most k hits, best first. Equal scores keep corpus order.
	Rank(query []float32, index *Index, k int) ([]Hit, error)
}

// LinearRanker scores every chunk in the index.
type LinearRanker struct{}

var _ Ranker = LinearRanker{}

// Rank implements Ranker.
func (LinearRanker) Rank(query []float32, index *Index, k int) ([]Hit, error) {
	if k <= 0 {
		k = DefaultTopK
	}
	n := index.Len()
	if n == 0 {
		return []Hit{}, nil
	}
	if len(query) != index.Dimension() {
		return nil, fmt.Errorf("%w: query has %d values, index has %d",
			ErrDimensionMismatch, len(query), index.Dimension())
	}

	queryNorm := norm(query)
	type scored struct {
		pos   int
		score float32
	}
	scores := make([]scored, n)
	for i := range n {
		scores[i] = scored{pos: i, score: cosine(query, queryNorm, index.Vector(i), index.norms[i])}
	}

	slices.SortStableFunc(scores, func(a, b scored) int {
		return cmp.Compare(b.score, a.score)
	})

	hits := make([]Hit, 0, min(k, n))
	for _, s := range scores[:min(k, n)] {
		hits = append(hits, Hit{
			Text:  index.Text(s.pos),
			Meta:  index.Meta(s.pos),
			Score: s.score,
		})
	}
	return hits, nil
}

// Retrieve ranks the index against query with the LinearRanker.
func Retrieve(query []float32, index *Index, k int) ([]Hit, error) {
	return LinearRanker{}.Rank(query, index, k)
}

// CosineSimilarity returns the cosine of the angle between a and b.
// Returns 0 if either vector has zero norm or the lengths differ.
func CosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) {
		return 0
	}
	return cosine(a, norm(a), b, norm(b))
}

func cosine(a []float32, normA float64, b []float32, normB float64) float32 {
	if normA == 0 || normB == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return float32(dot / (normA * normB))
}
