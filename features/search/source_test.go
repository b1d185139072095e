package search

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"inquiro/backend/features/document"
)

type mockChunkRepo struct {
	document.Repository
	mock.Mock
}

func (m *mockChunkRepo) SearchableChunks(ctx context.Context) ([]document.Chunk, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]document.Chunk), args.Error(1)
}

func TestChunkAdapter_FiltersParents(t *testing.T) {
	repo := new(mockChunkRepo)
	repo.On("SearchableChunks", mock.Anything).Return([]document.Chunk{
		{ID: "p1", DocumentID: "d1", Type: "parent", Content: "parent"},
		{ID: "c1", DocumentID: "d1", Type: "child", Content: "child", ParentID: "p1", Embedding: []float32{0.1}},
	}, nil)

	out, err := NewChunkAdapter(repo).Candidates(context.Background())

	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "c1", out[0].ID)
	assert.Equal(t, "p1", out[0].ParentID)
	assert.Equal(t, []float32{0.1}, out[0].Embedding)
}

func TestChunkAdapter_PropagatesError(t *testing.T) {
	repo := new(mockChunkRepo)
	repo.On("SearchableChunks", mock.Anything).Return(nil, errors.New("db down"))

	_, err := NewChunkAdapter(repo).Candidates(context.Background())
	assert.Error(t, err)
}
