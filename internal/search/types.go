// Package search implements the retrieval pipeline: intent classification,
// keyword and vector scoring, reciprocal rank fusion, document-level
// relevance filtering, external reranking, and result caching.
package search

// Chunk is the search-side view of a stored passage.
type Chunk struct {
	ID         string    `json:"id"`
	DocumentID string    `json:"document_id"`
	Index      int       `json:"chunk_index"`
	Type       string    `json:"chunk_type"`
	Content    string    `json:"content"`
	TokenCount int       `json:"token_count"`
	ParentID   string    `json:"parent_id,omitempty"`
	Embedding  []float32 `json:"-"`
}

// Result list source annotations.
const (
	SourceKeyword = "keyword"
	SourceVector  = "vector"
)

// Hit is a chunk ranked by a single index (keyword or vector).
type Hit struct {
	Chunk Chunk
	Score float64
}

// RankedChunk is a chunk after fusion, carrying per-source scores and the
// list(s) that contributed.
type RankedChunk struct {
	Chunk        Chunk    `json:"chunk"`
	Score        float64  `json:"score"`
	KeywordScore float64  `json:"keyword_score,omitempty"`
	VectorScore  float64  `json:"vector_score,omitempty"`
	RerankScore  float64  `json:"rerank_score,omitempty"`
	Sources      []string `json:"sources"`
}

// HasSource reports whether list src contributed to this result.
func (r *RankedChunk) HasSource(src string) bool {
	for _, s := range r.Sources {
		if s == src {
			return true
		}
	}
	return false
}

// Turn is one prior conversation message passed alongside a query.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
