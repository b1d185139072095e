package search

import "time"

// IntentParams are the retrieval parameters selected by the classifier.
type IntentParams struct {
	Limit            int     `json:"limit"`
	RerankCandidates int     `json:"rerank_candidates"`
	MinScore         float64 `json:"min_score"`
}

// FusionProfile selects the RRF constant and per-list weights for an intent.
type FusionProfile struct {
	K             int
	KeywordWeight float64
	VectorWeight  float64
}

// Tuning gathers every empirically tuned constant of the pipeline in one
// place so they can be tested and adjusted without touching algorithm code.
type Tuning struct {
	// Fusion
	RRFBaseK    int     // smoothing constant for balanced intents
	RRFKeywordK int     // lower K for lexical-oriented intents
	RRFVectorK  int     // higher K for semantic-oriented intents
	WeightBoost float64 // multiplier applied to the favored list
	ListPrefix  int     // per-list prefix fed into fusion

	// Keyword scoring
	ExactMatchBonus float64 // full-query substring match bonus

	// Document relevance filter
	DocRatio     float64 // pass if mean >= maxAvg * DocRatio
	KeywordFloor float64 // keyword score that bypasses the ratio test

	// Rerank call shaping
	MaxRerankDocs   int
	MaxRerankPerDoc int

	// Cache
	CacheSize int
	CacheTTL  time.Duration

	// Embedding tasks
	EmbedBatchSize int
	EmbedMaxChars  int

	// Chunking
	ParentSize   int
	ChildSize    int
	ChildOverlap int

	// Classifier
	HistoryWindow int

	Intents map[Intent]IntentParams
}

func DefaultTuning() Tuning {
	return Tuning{
		RRFBaseK:    60,
		RRFKeywordK: 40,
		RRFVectorK:  75,
		WeightBoost: 1.2,
		ListPrefix:  60,

		ExactMatchBonus: 10,

		DocRatio:     0.25,
		KeywordFloor: 8,

		MaxRerankDocs:   3,
		MaxRerankPerDoc: 15,

		CacheSize: 512,
		CacheTTL:  15 * time.Minute,

		EmbedBatchSize: 16,
		EmbedMaxChars:  2000,

		ParentSize:   4000,
		ChildSize:    500,
		ChildOverlap: 150,

		HistoryWindow: 6,

		Intents: map[Intent]IntentParams{
			IntentTroubleshoot: {Limit: 12, RerankCandidates: 30, MinScore: 0.25},
			IntentPerformance:  {Limit: 10, RerankCandidates: 25, MinScore: 0.30},
			IntentBestPractice: {Limit: 10, RerankCandidates: 20, MinScore: 0.35},
			IntentVerification: {Limit: 8, RerankCandidates: 20, MinScore: 0.40},
			IntentConfig:       {Limit: 10, RerankCandidates: 25, MinScore: 0.35},
			IntentExplanation:  {Limit: 6, RerankCandidates: 20, MinScore: 0.45},
			IntentComparison:   {Limit: 8, RerankCandidates: 20, MinScore: 0.40},
			IntentCommand:      {Limit: 8, RerankCandidates: 20, MinScore: 0.35},
			IntentQuestion:     {Limit: 8, RerankCandidates: 20, MinScore: 0.35},
			IntentGeneral:      {Limit: 8, RerankCandidates: 20, MinScore: 0.30},
		},
	}
}

// ParamsFor returns the retrieval parameters for an intent, falling back to
// the general tuple for unknown intents.
func (t Tuning) ParamsFor(intent Intent) IntentParams {
	if p, ok := t.Intents[intent]; ok {
		return p
	}
	return t.Intents[IntentGeneral]
}

// ProfileFor selects the fusion profile for an intent. Lexical-oriented
// intents lean on the keyword list, semantic intents on the vector list.
func (t Tuning) ProfileFor(intent Intent) FusionProfile {
	switch intent {
	case IntentCommand, IntentConfig, IntentVerification:
		return FusionProfile{K: t.RRFKeywordK, KeywordWeight: t.WeightBoost, VectorWeight: 1.0}
	case IntentExplanation, IntentComparison, IntentBestPractice, IntentQuestion:
		return FusionProfile{K: t.RRFVectorK, KeywordWeight: 1.0, VectorWeight: t.WeightBoost}
	default:
		return FusionProfile{K: t.RRFBaseK, KeywordWeight: 1.0, VectorWeight: 1.0}
	}
}
