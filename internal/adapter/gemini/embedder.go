package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"inquiro/backend/internal/faults"
)

type Embedder struct {
	client   *genai.Client
	model    string
	maxChars int
}

func NewEmbedder(ctx context.Context, apiKey string, maxChars int, opts ...option.ClientOption) (*Embedder, error) {
	if apiKey == "" {
		return nil, faults.Configuration(errors.New("gemini api key not configured"))
	}
	opts = append(opts, option.WithAPIKey(apiKey))
	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return &Embedder{client: client, model: "gemini-embedding-001", maxChars: maxChars}, nil
}

func (e *Embedder) Close() error {
	return e.client.Close()
}

func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	slog.DebugContext(ctx, "embedding content", "model", e.model, "length", len(text))
	em := e.client.EmbeddingModel(e.model)
	res, err := em.EmbedContent(ctx, genai.Text(e.truncate(text)))
	if err != nil {
		return nil, faults.Transient(err)
	}
	if res.Embedding == nil || len(res.Embedding.Values) == 0 {
		return nil, faults.Transient(errors.New("empty embedding received"))
	}
	return res.Embedding.Values, nil
}

// EmbedBatch embeds texts in a single provider call. The response is
// order-preserving: result i is the vector for texts[i].
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	em := e.client.EmbeddingModel(e.model)
	batch := em.NewBatch()
	for _, t := range texts {
		batch.AddContent(genai.Text(e.truncate(t)))
	}

	res, err := em.BatchEmbedContents(ctx, batch)
	if err != nil {
		return nil, faults.Transient(err)
	}
	if len(res.Embeddings) != len(texts) {
		return nil, faults.Transient(fmt.Errorf("embedding count mismatch: sent %d, got %d", len(texts), len(res.Embeddings)))
	}

	vectors := make([][]float32, len(texts))
	for i, emb := range res.Embeddings {
		if emb == nil || len(emb.Values) == 0 {
			return nil, faults.Transient(fmt.Errorf("empty embedding at index %d", i))
		}
		vectors[i] = emb.Values
	}
	return vectors, nil
}

// truncate bounds a text to the provider-safe length.
func (e *Embedder) truncate(text string) string {
	if e.maxChars > 0 && len(text) > e.maxChars {
		return text[:e.maxChars]
	}
	return text
}
