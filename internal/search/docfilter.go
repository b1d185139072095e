package search

// FilterDocuments drops documents whose chunks are collectively irrelevant
// to the query, keeping the surviving chunks in fused-score order.
//
// A document passes when any of these holds:
//  1. its mean fused score is at least maxAvg * DocRatio,
//  2. it has a strong direct keyword match (chunk keyword score at or above
//     KeywordFloor), or
//  3. it has some keyword presence and a mean at least half the ratio-based
//     threshold.
//
// The keyword escapes exist because a single ratio over-penalizes documents
// whose content is correct but lexically sparse next to a dominant document.
// When nothing passes, the empty result stands for "no relevant documents";
// there is no fallback to an unrelated document.
func FilterDocuments(fused []RankedChunk, t Tuning) []RankedChunk {
	if len(fused) == 0 {
		return fused
	}

	type docStats struct {
		sum           float64
		count         int
		maxKeyword    float64
		hasKeywordHit bool
	}

	stats := make(map[string]*docStats)
	for i := range fused {
		rc := &fused[i]
		st, ok := stats[rc.Chunk.DocumentID]
		if !ok {
			st = &docStats{}
			stats[rc.Chunk.DocumentID] = st
		}
		st.sum += rc.Score
		st.count++
		if rc.KeywordScore > st.maxKeyword {
			st.maxKeyword = rc.KeywordScore
		}
		if rc.HasSource(SourceKeyword) {
			st.hasKeywordHit = true
		}
	}

	maxAvg := 0.0
	for _, st := range stats {
		if avg := st.sum / float64(st.count); avg > maxAvg {
			maxAvg = avg
		}
	}

	threshold := maxAvg * t.DocRatio
	passes := func(st *docStats) bool {
		avg := st.sum / float64(st.count)
		if avg >= threshold {
			return true
		}
		if st.maxKeyword >= t.KeywordFloor {
			return true
		}
		return st.hasKeywordHit && avg >= threshold/2
	}

	out := fused[:0:0]
	for _, rc := range fused {
		if passes(stats[rc.Chunk.DocumentID]) {
			out = append(out, rc)
		}
	}
	return out
}
