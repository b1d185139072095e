package search

import "sort"

// Fuse merges the keyword and vector result lists with weighted Reciprocal
// Rank Fusion. Each list is truncated to prefix entries to bound fusion
// cost; the chunk at 0-indexed rank r contributes weight / (K + r + 1), and
// a chunk present in both lists accumulates both contributions. K and the
// list weights come from the intent-selected profile.
//
// Ordering is deterministic: fused score descending, then presence in both
// lists, then chunk ID.
func Fuse(keyword, vector []Hit, profile FusionProfile, prefix int) []RankedChunk {
	if prefix > 0 {
		if len(keyword) > prefix {
			keyword = keyword[:prefix]
		}
		if len(vector) > prefix {
			vector = vector[:prefix]
		}
	}
	if len(keyword) == 0 && len(vector) == 0 {
		return []RankedChunk{}
	}

	fused := make(map[string]*RankedChunk, len(keyword)+len(vector))

	for r, h := range keyword {
		rc := getOrCreate(fused, h.Chunk)
		rc.KeywordScore = h.Score
		rc.Sources = append(rc.Sources, SourceKeyword)
		rc.Score += profile.KeywordWeight / float64(profile.K+r+1)
	}
	for r, h := range vector {
		rc := getOrCreate(fused, h.Chunk)
		rc.VectorScore = h.Score
		rc.Sources = append(rc.Sources, SourceVector)
		rc.Score += profile.VectorWeight / float64(profile.K+r+1)
	}

	results := make([]RankedChunk, 0, len(fused))
	for _, rc := range fused {
		results = append(results, *rc)
	}

	sort.Slice(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		aBoth, bBoth := len(a.Sources) == 2, len(b.Sources) == 2
		if aBoth != bBoth {
			return aBoth
		}
		return a.Chunk.ID < b.Chunk.ID
	})

	return results
}

func getOrCreate(m map[string]*RankedChunk, c Chunk) *RankedChunk {
	if rc, ok := m[c.ID]; ok {
		return rc
	}
	rc := &RankedChunk{Chunk: c}
	m[c.ID] = rc
	return rc
}
