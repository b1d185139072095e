package search

import (
	"context"

	"inquiro/backend/features/document"
	"inquiro/backend/internal/search"
)

// ChunkAdapter exposes stored chunks as ranking candidates. Parent chunks
// carry surrounding context for answers but never compete in ranking, so
// they are filtered out here.
type ChunkAdapter struct {
	repo document.Repository
}

func NewChunkAdapter(repo document.Repository) *ChunkAdapter {
	return &ChunkAdapter{repo: repo}
}

func (a *ChunkAdapter) Candidates(ctx context.Context) ([]search.Chunk, error) {
	stored, err := a.repo.SearchableChunks(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]search.Chunk, 0, len(stored))
	for _, c := range stored {
		if c.Type == "parent" {
			continue
		}
		out = append(out, search.Chunk{
			ID:         c.ID,
			DocumentID: c.DocumentID,
			Index:      c.Index,
			Type:       c.Type,
			Content:    c.Content,
			TokenCount: c.TokenCount,
			ParentID:   c.ParentID,
			Embedding:  c.Embedding,
		})
	}
	return out, nil
}
