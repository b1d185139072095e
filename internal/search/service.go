package search

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"inquiro/backend/internal/middleware"
)

// Embedder turns query text into a fixed-dimension vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// ChunkSource supplies the candidate chunk set: child and window chunks of
// all non-deleted documents, with embeddings where available.
type ChunkSource interface {
	Candidates(ctx context.Context) ([]Chunk, error)
}

type Options struct {
	Limit   *int
	History []Turn
}

type Result struct {
	Intent              IntentResult  `json:"intent"`
	Results             []RankedChunk `json:"results"`
	CacheHit            bool          `json:"cache_hit"`
	NoRelevantDocuments bool          `json:"no_relevant_documents"`
}

// Service orchestrates the query pipeline: cache lookup, intent
// classification, concurrent keyword and vector ranking, RRF fusion,
// document filtering, external rerank, and cache write.
type Service struct {
	chunks     ChunkSource
	embedder   Embedder
	reranker   Reranker
	classifier *Classifier
	cache      *Cache
	tuning     Tuning
	logger     *QueryLogger
}

func NewService(chunks ChunkSource, e Embedder, r Reranker, t Tuning, l *QueryLogger) *Service {
	return &Service{
		chunks:     chunks,
		embedder:   e,
		reranker:   r,
		classifier: NewClassifier(t),
		cache:      NewCache(t.CacheSize, t.CacheTTL),
		tuning:     t,
		logger:     l,
	}
}

func (s *Service) Search(ctx context.Context, query string, opts *Options) (*Result, error) {
	start := time.Now()

	normalized := strings.ToLower(strings.TrimSpace(query))

	var history []Turn
	if opts != nil {
		history = opts.History
	}

	intent := s.classifier.Classify(query, history)
	params := intent.Params
	if opts != nil && opts.Limit != nil && *opts.Limit > 0 {
		params.Limit = *opts.Limit
	}

	key := CacheKey(normalized, intent.Intent, params)
	if cached, ok := s.cache.Get(key); ok {
		res := &Result{Intent: intent, Results: cached, CacheHit: true, NoRelevantDocuments: len(cached) == 0}
		s.log(ctx, query, intent, res, start)
		return res, nil
	}

	candidates, err := s.chunks.Candidates(ctx)
	if err != nil {
		return nil, err
	}

	// Keyword and vector ranking are independent; run them concurrently and
	// join before fusion.
	var keywordHits, vectorHits []Hit
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		keywordHits = RankKeyword(query, candidates, s.tuning.ExactMatchBonus)
		return nil
	})
	g.Go(func() error {
		vec, embedErr := s.embedder.Embed(gctx, query)
		if embedErr != nil {
			// Vector leg degrades to empty; keyword results still serve.
			slog.WarnContext(gctx, "query embedding failed, keyword-only search", "error", embedErr)
			return nil
		}
		vectorHits = RankVector(vec, candidates, params.MinScore)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	fused := Fuse(keywordHits, vectorHits, s.tuning.ProfileFor(intent.Intent), s.tuning.ListPrefix)
	filtered := FilterDocuments(fused, s.tuning)
	reranked := ApplyRerank(ctx, s.reranker, query, filtered, params, s.tuning)

	if params.Limit > 0 && len(reranked) > params.Limit {
		reranked = reranked[:params.Limit]
	}

	// A caller that abandoned this query must not seed the cache for a
	// superseded key.
	if ctx.Err() == nil {
		s.cache.Set(key, reranked)
	}

	res := &Result{Intent: intent, Results: reranked, NoRelevantDocuments: len(reranked) == 0}
	s.log(ctx, query, intent, res, start)
	return res, nil
}

func (s *Service) log(ctx context.Context, query string, intent IntentResult, res *Result, start time.Time) {
	if s.logger == nil {
		return
	}
	s.logger.Log(QueryLogEntry{
		Query:         query,
		Intent:        intent.Intent,
		Confidence:    intent.Confidence,
		NumResults:    len(res.Results),
		CacheHit:      res.CacheHit,
		Duration:      time.Since(start),
		CorrelationID: middleware.GetCorrelationID(ctx),
	})
}
