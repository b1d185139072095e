package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCosine(t *testing.T) {
	t.Run("Identical", func(t *testing.T) {
		assert.InDelta(t, 1.0, Cosine([]float32{1, 2, 3}, []float32{1, 2, 3}), 1e-9)
	})

	t.Run("Orthogonal", func(t *testing.T) {
		assert.InDelta(t, 0.0, Cosine([]float32{1, 0}, []float32{0, 1}), 1e-9)
	})

	t.Run("Opposite", func(t *testing.T) {
		assert.InDelta(t, -1.0, Cosine([]float32{1, 0}, []float32{-1, 0}), 1e-9)
	})

	t.Run("DimensionMismatch", func(t *testing.T) {
		assert.Equal(t, 0.0, Cosine([]float32{1, 2}, []float32{1, 2, 3}))
	})

	t.Run("ZeroVector", func(t *testing.T) {
		assert.Equal(t, 0.0, Cosine([]float32{0, 0}, []float32{1, 2}))
	})
}

func TestRankVector(t *testing.T) {
	query := []float32{1, 0}
	chunks := []Chunk{
		{ID: "close", Type: "child", Embedding: []float32{0.9, 0.1}},
		{ID: "far", Type: "child", Embedding: []float32{0.1, 0.9}},
		{ID: "parent", Type: "parent", Embedding: []float32{1, 0}},
		{ID: "bare", Type: "child"},
	}

	hits := RankVector(query, chunks, 0.5)

	require.Len(t, hits, 1)
	assert.Equal(t, "close", hits[0].Chunk.ID)
	assert.Greater(t, hits[0].Score, 0.9)
}

func TestRankVector_EmptyQuery(t *testing.T) {
	assert.Nil(t, RankVector(nil, []Chunk{{ID: "a", Type: "child", Embedding: []float32{1}}}, 0))
}

func TestRankVector_SortedDescending(t *testing.T) {
	query := []float32{1, 0}
	chunks := []Chunk{
		{ID: "b", Type: "child", Embedding: []float32{0.5, 0.5}},
		{ID: "a", Type: "child", Embedding: []float32{0.9, 0.1}},
	}

	hits := RankVector(query, chunks, 0)

	require.Len(t, hits, 2)
	assert.Equal(t, "a", hits[0].Chunk.ID)
	assert.Equal(t, "b", hits[1].Chunk.ID)
	assert.Greater(t, hits[0].Score, hits[1].Score)
}
