package search

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubReranker struct {
	scores  []float64
	err     error
	gotDocs []string
	calls   int
}

func (s *stubReranker) Rerank(_ context.Context, _ string, docs []string) ([]float64, error) {
	s.calls++
	s.gotDocs = docs
	return s.scores, s.err
}

func fusedFixture() []RankedChunk {
	return []RankedChunk{
		{Chunk: Chunk{ID: "a1", DocumentID: "d1", Content: "first"}, Score: 0.9},
		{Chunk: Chunk{ID: "b1", DocumentID: "d2", Content: "second"}, Score: 0.8},
		{Chunk: Chunk{ID: "a2", DocumentID: "d1", Content: "third"}, Score: 0.7},
	}
}

func TestApplyRerank_NilReranker(t *testing.T) {
	fused := fusedFixture()
	out := ApplyRerank(context.Background(), nil, "q", fused, IntentParams{RerankCandidates: 20}, DefaultTuning())
	assert.Equal(t, fused, out)
}

func TestApplyRerank_SingleCallReordersAmongSlots(t *testing.T) {
	rr := &stubReranker{scores: []float64{0.1, 0.9, 0.5}}
	fused := fusedFixture()

	out := ApplyRerank(context.Background(), rr, "q", fused, IntentParams{RerankCandidates: 20}, DefaultTuning())

	assert.Equal(t, 1, rr.calls, "all candidates go out in one call")
	assert.Equal(t, []string{"first", "second", "third"}, rr.gotDocs)

	require.Len(t, out, 3)
	// Rerank scores 0.9 > 0.5 > 0.1 reorder the three scored slots.
	assert.Equal(t, "b1", out[0].Chunk.ID)
	assert.Equal(t, "a2", out[1].Chunk.ID)
	assert.Equal(t, "a1", out[2].Chunk.ID)
	assert.Equal(t, 0.9, out[0].RerankScore)
}

func TestApplyRerank_ErrorKeepsFusedOrder(t *testing.T) {
	rr := &stubReranker{err: errors.New("provider down")}
	fused := fusedFixture()

	out := ApplyRerank(context.Background(), rr, "q", fused, IntentParams{RerankCandidates: 20}, DefaultTuning())

	assert.Equal(t, fused, out)
}

func TestApplyRerank_MissingScoresKeepPosition(t *testing.T) {
	// Middle candidate gets no score: it keeps its slot and fused score
	// while the other two reorder around it.
	rr := &stubReranker{scores: []float64{0.1, math.NaN(), 0.9}}
	fused := fusedFixture()

	out := ApplyRerank(context.Background(), rr, "q", fused, IntentParams{RerankCandidates: 20}, DefaultTuning())

	require.Len(t, out, 3)
	assert.Equal(t, "a2", out[0].Chunk.ID) // score 0.9 takes the best scored slot
	assert.Equal(t, "b1", out[1].Chunk.ID) // unscored, keeps slot 1
	assert.Equal(t, 0.8, out[1].Score)
	assert.Zero(t, out[1].RerankScore)
	assert.Equal(t, "a1", out[2].Chunk.ID)
}

func TestApplyRerank_DocAndPerDocCaps(t *testing.T) {
	tuning := DefaultTuning()
	tuning.MaxRerankDocs = 1
	tuning.MaxRerankPerDoc = 1

	rr := &stubReranker{scores: []float64{0.5}}
	fused := fusedFixture()

	out := ApplyRerank(context.Background(), rr, "q", fused, IntentParams{RerankCandidates: 20}, tuning)

	// Only d1's first chunk is sent; everything else keeps fused order.
	assert.Equal(t, []string{"first"}, rr.gotDocs)
	require.Len(t, out, 3)
	assert.Equal(t, "a1", out[0].Chunk.ID)
	assert.Equal(t, "b1", out[1].Chunk.ID)
}

func TestApplyRerank_CandidateBudget(t *testing.T) {
	rr := &stubReranker{scores: []float64{0.5, 0.4}}
	fused := fusedFixture()

	ApplyRerank(context.Background(), rr, "q", fused, IntentParams{RerankCandidates: 2}, DefaultTuning())

	assert.Len(t, rr.gotDocs, 2)
}

func TestApplyRerank_EmptyInput(t *testing.T) {
	rr := &stubReranker{}
	out := ApplyRerank(context.Background(), rr, "q", nil, IntentParams{}, DefaultTuning())
	assert.Empty(t, out)
	assert.Zero(t, rr.calls)
}
