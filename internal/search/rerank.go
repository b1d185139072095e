package search

import (
	"context"
	"log/slog"
	"math"
	"sort"
)

// Reranker is the external second-pass scoring capability. Scores are
// returned per candidate, order-preserving; a missing score is NaN.
type Reranker interface {
	Rerank(ctx context.Context, query string, docs []string) ([]float64, error)
}

// ApplyRerank batches the top candidates across documents into a single
// rerank call and folds the returned scores back in. Candidates are capped
// to MaxRerankDocs documents and MaxRerankPerDoc chunks each (bounded
// overall by the intent's rerankCandidates) so one external call stays a
// reasonable size; one call instead of one per document amortizes the
// network round trip.
//
// Scored candidates are reordered among the positions they already occupy;
// chunks from capped-out documents keep their fused score and position. Any
// rerank failure or missing score degrades to the fused order.
func ApplyRerank(ctx context.Context, rr Reranker, query string, fused []RankedChunk, params IntentParams, t Tuning) []RankedChunk {
	if rr == nil || len(fused) == 0 {
		return fused
	}

	// Select the top documents in fused order.
	docOrder := make([]string, 0, t.MaxRerankDocs)
	seen := make(map[string]bool)
	for _, rc := range fused {
		if seen[rc.Chunk.DocumentID] {
			continue
		}
		if len(docOrder) >= t.MaxRerankDocs {
			continue
		}
		seen[rc.Chunk.DocumentID] = true
		docOrder = append(docOrder, rc.Chunk.DocumentID)
	}

	selected := make(map[string]bool, len(docOrder))
	for _, id := range docOrder {
		selected[id] = true
	}

	// Flatten capped candidates across the selected documents, preserving
	// fused order. positions[i] is the index into fused of candidate i.
	perDoc := make(map[string]int)
	var positions []int
	var contents []string
	for i, rc := range fused {
		if !selected[rc.Chunk.DocumentID] {
			continue
		}
		if perDoc[rc.Chunk.DocumentID] >= t.MaxRerankPerDoc {
			continue
		}
		if params.RerankCandidates > 0 && len(positions) >= params.RerankCandidates {
			break
		}
		perDoc[rc.Chunk.DocumentID]++
		positions = append(positions, i)
		contents = append(contents, rc.Chunk.Content)
	}

	if len(contents) == 0 {
		return fused
	}

	scores, err := rr.Rerank(ctx, query, contents)
	if err != nil {
		slog.WarnContext(ctx, "rerank failed, keeping fused order", "error", err, "candidates", len(contents))
		return fused
	}

	out := make([]RankedChunk, len(fused))
	copy(out, fused)

	// Candidates with a returned score get reordered among their own slots;
	// candidates the provider skipped stay put with their fused score.
	var scoredSlots []int
	var scored []RankedChunk
	for i, pos := range positions {
		if i >= len(scores) || math.IsNaN(scores[i]) {
			continue
		}
		rc := out[pos]
		rc.RerankScore = scores[i]
		scoredSlots = append(scoredSlots, pos)
		scored = append(scored, rc)
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].RerankScore != scored[j].RerankScore {
			return scored[i].RerankScore > scored[j].RerankScore
		}
		return scored[i].Chunk.ID < scored[j].Chunk.ID
	})

	for i, pos := range scoredSlots {
		out[pos] = scored[i]
	}

	return out
}
