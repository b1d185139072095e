package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenize(t *testing.T) {
	t.Run("ASCII", func(t *testing.T) {
		assert.Equal(t, []string{"hello", "world", "123"}, Tokenize("Hello, World-123"))
	})

	t.Run("PunctuationOnly", func(t *testing.T) {
		assert.Empty(t, Tokenize("--- !!! ..."))
	})

	t.Run("CJKRuns", func(t *testing.T) {
		// Han runs stay together, switching scripts splits.
		assert.Equal(t, []string{"bgp", "路由配置", "guide"}, Tokenize("BGP路由配置 guide"))
	})

	t.Run("Lowercased", func(t *testing.T) {
		assert.Equal(t, []string{"ospf"}, Tokenize("OSPF"))
	})
}

func TestRankKeyword(t *testing.T) {
	chunks := []Chunk{
		{ID: "a", DocumentID: "d1", Content: "To configure BGP, run the wizard."},
		{ID: "b", DocumentID: "d1", Content: "BGP overview and history."},
		{ID: "c", DocumentID: "d2", Content: "Totally unrelated cooking recipe."},
	}

	hits := RankKeyword("configure BGP", chunks, 10)

	require.Len(t, hits, 2)
	// Exact substring match earns the bonus plus both token points.
	assert.Equal(t, "a", hits[0].Chunk.ID)
	assert.Equal(t, 12.0, hits[0].Score)
	// Single token match.
	assert.Equal(t, "b", hits[1].Chunk.ID)
	assert.Equal(t, 1.0, hits[1].Score)
}

func TestRankKeyword_EmptyQuery(t *testing.T) {
	chunks := []Chunk{{ID: "a", Content: "something"}}
	assert.Nil(t, RankKeyword("  ", chunks, 10))
}

func TestRankKeyword_TieBreakByID(t *testing.T) {
	chunks := []Chunk{
		{ID: "b", Content: "bgp peering"},
		{ID: "a", Content: "bgp sessions"},
	}

	hits := RankKeyword("bgp", chunks, 10)

	require.Len(t, hits, 2)
	assert.Equal(t, "a", hits[0].Chunk.ID)
	assert.Equal(t, "b", hits[1].Chunk.ID)
}

func TestRankKeyword_CJKContainment(t *testing.T) {
	chunks := []Chunk{
		{ID: "a", Content: "本节介绍BGP路由配置方法与示例。"},
		{ID: "b", Content: "unrelated english text"},
	}

	hits := RankKeyword("路由配置", chunks, 10)

	require.Len(t, hits, 1)
	assert.Equal(t, "a", hits[0].Chunk.ID)
	assert.GreaterOrEqual(t, hits[0].Score, 10.0, "exact substring should earn the bonus")
}
