package search

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- Mocks ---

type MockChunkSource struct {
	mock.Mock
}

func (m *MockChunkSource) Candidates(ctx context.Context) ([]Chunk, error) {
	args := m.Called(ctx)
	return args.Get(0).([]Chunk), args.Error(1)
}

type MockEmbedder struct {
	mock.Mock
}

func (m *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

type MockReranker struct {
	mock.Mock
}

func (m *MockReranker) Rerank(ctx context.Context, query string, docs []string) ([]float64, error) {
	args := m.Called(ctx, query, docs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float64), args.Error(1)
}

func testCandidates() []Chunk {
	return []Chunk{
		{ID: "c1", DocumentID: "d1", Type: "child",
			Content:   "To configure BGP peering, set the remote AS first.",
			Embedding: []float32{0.9, 0.1}},
		{ID: "c2", DocumentID: "d1", Type: "child",
			Content:   "BGP session states move from Idle to Established.",
			Embedding: []float32{0.8, 0.2}},
		{ID: "c3", DocumentID: "d2", Type: "child",
			Content:   "Cooking pasta requires salted boiling water.",
			Embedding: []float32{0.05, 0.95}},
	}
}

func newTestService(src ChunkSource, e Embedder, r Reranker) *Service {
	return NewService(src, e, r, DefaultTuning(), nil)
}

func TestSearch_KeywordAndVectorSourcesAnnotated(t *testing.T) {
	src := new(MockChunkSource)
	emb := new(MockEmbedder)

	src.On("Candidates", mock.Anything).Return(testCandidates(), nil)
	emb.On("Embed", mock.Anything, "configure BGP peering").Return([]float32{1, 0}, nil)

	svc := newTestService(src, emb, nil)

	res, err := svc.Search(context.Background(), "configure BGP peering", nil)

	require.NoError(t, err)
	require.NotEmpty(t, res.Results)
	assert.False(t, res.CacheHit)
	assert.False(t, res.NoRelevantDocuments)

	top := res.Results[0]
	assert.Equal(t, "c1", top.Chunk.ID)
	assert.True(t, top.HasSource(SourceKeyword))
	assert.True(t, top.HasSource(SourceVector))
}

func TestSearch_SecondCallHitsCache(t *testing.T) {
	src := new(MockChunkSource)
	emb := new(MockEmbedder)

	src.On("Candidates", mock.Anything).Return(testCandidates(), nil).Once()
	emb.On("Embed", mock.Anything, mock.Anything).Return([]float32{1, 0}, nil).Once()

	svc := newTestService(src, emb, nil)

	first, err := svc.Search(context.Background(), "configure BGP peering", nil)
	require.NoError(t, err)
	assert.False(t, first.CacheHit)

	second, err := svc.Search(context.Background(), "Configure BGP Peering  ", nil)
	require.NoError(t, err)
	assert.True(t, second.CacheHit, "normalized query should hit the cache")
	assert.Equal(t, first.Results, second.Results)

	src.AssertExpectations(t)
	emb.AssertExpectations(t)
}

func TestSearch_EmbedFailureDegradesToKeywordOnly(t *testing.T) {
	src := new(MockChunkSource)
	emb := new(MockEmbedder)

	src.On("Candidates", mock.Anything).Return(testCandidates(), nil)
	emb.On("Embed", mock.Anything, mock.Anything).Return(nil, errors.New("quota exceeded"))

	svc := newTestService(src, emb, nil)

	res, err := svc.Search(context.Background(), "configure BGP peering", nil)

	require.NoError(t, err, "embedding failure must not fail the query")
	require.NotEmpty(t, res.Results)
	for _, r := range res.Results {
		assert.False(t, r.HasSource(SourceVector))
	}
}

func TestSearch_CandidateLoadFailure(t *testing.T) {
	src := new(MockChunkSource)
	emb := new(MockEmbedder)

	src.On("Candidates", mock.Anything).Return([]Chunk(nil), errors.New("db down"))

	svc := newTestService(src, emb, nil)

	_, err := svc.Search(context.Background(), "configure BGP", nil)
	assert.Error(t, err)
}

func TestSearch_NoRelevantDocuments(t *testing.T) {
	src := new(MockChunkSource)
	emb := new(MockEmbedder)

	src.On("Candidates", mock.Anything).Return([]Chunk{}, nil)
	emb.On("Embed", mock.Anything, mock.Anything).Return([]float32{1, 0}, nil)

	svc := newTestService(src, emb, nil)

	res, err := svc.Search(context.Background(), "anything at all", nil)

	require.NoError(t, err)
	assert.Empty(t, res.Results)
	assert.True(t, res.NoRelevantDocuments)
}

func TestSearch_LimitOverride(t *testing.T) {
	src := new(MockChunkSource)
	emb := new(MockEmbedder)

	src.On("Candidates", mock.Anything).Return(testCandidates(), nil)
	emb.On("Embed", mock.Anything, mock.Anything).Return([]float32{1, 0}, nil)

	svc := newTestService(src, emb, nil)

	limit := 1
	res, err := svc.Search(context.Background(), "configure BGP peering", &Options{Limit: &limit})

	require.NoError(t, err)
	assert.Len(t, res.Results, 1)
}

func TestSearch_RerankFailureKeepsResults(t *testing.T) {
	src := new(MockChunkSource)
	emb := new(MockEmbedder)
	rr := new(MockReranker)

	src.On("Candidates", mock.Anything).Return(testCandidates(), nil)
	emb.On("Embed", mock.Anything, mock.Anything).Return([]float32{1, 0}, nil)
	rr.On("Rerank", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("rerank down"))

	svc := newTestService(src, emb, rr)

	res, err := svc.Search(context.Background(), "configure BGP peering", nil)

	require.NoError(t, err)
	require.NotEmpty(t, res.Results)
	rr.AssertExpectations(t)
}

func TestSearch_IntentDrivesParams(t *testing.T) {
	src := new(MockChunkSource)
	emb := new(MockEmbedder)

	src.On("Candidates", mock.Anything).Return(testCandidates(), nil)
	emb.On("Embed", mock.Anything, mock.Anything).Return([]float32{1, 0}, nil)

	svc := newTestService(src, emb, nil)

	res, err := svc.Search(context.Background(), "how do I configure BGP", nil)

	require.NoError(t, err)
	assert.Equal(t, IntentConfig, res.Intent.Intent)
	assert.Equal(t, DefaultTuning().Intents[IntentConfig], res.Intent.Params)
}
