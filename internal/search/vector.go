package search

import (
	"math"
	"sort"
)

// RankVector scores chunks by cosine similarity to the query embedding.
// Parent chunks and chunks without an embedding are skipped; similarities
// below minScore are dropped. Output is sorted descending with chunk ID as
// the tie-break.
//
// This is a brute-force O(chunks) scan with no index structure. Fine at the
// corpus sizes this service targets; revisit before pointing it at millions
// of chunks.
func RankVector(queryVec []float32, chunks []Chunk, minScore float64) []Hit {
	if len(queryVec) == 0 {
		return nil
	}

	var hits []Hit
	for _, c := range chunks {
		if c.Type == "parent" || len(c.Embedding) == 0 {
			continue
		}
		score := Cosine(queryVec, c.Embedding)
		if score < minScore {
			continue
		}
		hits = append(hits, Hit{Chunk: c, Score: score})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Chunk.ID < hits[j].Chunk.ID
	})

	return hits
}

// Cosine returns the cosine similarity of two vectors, or 0 when the
// dimensions differ or either vector has zero magnitude.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
