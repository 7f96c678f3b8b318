package mock

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockEmbedder_Deterministic(t *testing.T) {
	m := NewMockEmbedder()
	ctx := context.Background()

	a, err := m.EmbedText(ctx, "same text")
	require.NoError(t, err)
	b, err := m.EmbedTexts(ctx, []string{"same text", "other text"})
	require.NoError(t, err)

	assert.Equal(t, a, b[0], "same text must embed identically")
	assert.NotEqual(t, a, b[1])
	assert.Len(t, a, DefaultDimension)
	assert.Equal(t, 2, m.CallCount())
}

func TestMockEmbedder_UnitLength(t *testing.T) {
	v := GenerateDeterministicVector("hello", 16)
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	assert.InDelta(t, 1.0, math.Sqrt(sum), 1e-5)
}

func TestMockEmbedder_EmptyInput(t *testing.T) {
	vectors, err := NewMockEmbedder().EmbedTexts(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, vectors)
}

func TestMockEmbedder_Reset(t *testing.T) {
	m := NewMockEmbedder()
	m.EmbedTextFunc = func(context.Context, string) ([]float32, error) { return nil, assert.AnError }

	_, err := m.EmbedText(context.Background(), "x")
	require.ErrorIs(t, err, assert.AnError)

	m.Reset()
	assert.Equal(t, 0, m.CallCount())
	_, err = m.EmbedText(context.Background(), "x")
	assert.NoError(t, err)
}

func TestMockGenerator_EchoesLastLine(t *testing.T) {
	g := NewMockGenerator()
	res := g.Generate(context.Background(), "Context:\nstuff\n\nQuestion: why?\n")
	require.True(t, res.OK())
	assert.Equal(t, "Question: why?", res.Answer)
	assert.Equal(t, 1, g.CallCount())
	assert.Len(t, g.Prompts(), 1)
}
