package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/nsqio/go-nsq"

	"inquiro/backend/features/document"
	"inquiro/backend/features/task"
	"inquiro/backend/internal/faults"
	"inquiro/backend/internal/middleware"
)

// EmbedConsumer processes embedding tasks from NSQ. It embeds a document's
// unembedded chunks in batches, persisting each batch's vectors in one
// statement and advancing task progress as it goes. A batch that exhausts
// its retries is counted failed and skipped; the task completes as long as
// at least one batch succeeded and fails when none did.
type EmbedConsumer struct {
	embedder  BatchEmbedder
	chunks    ChunkStore
	tasks     TaskStore
	batchSize int
}

func NewEmbedConsumer(e BatchEmbedder, c ChunkStore, t TaskStore, batchSize int) *EmbedConsumer {
	return &EmbedConsumer{
		embedder:  e,
		chunks:    c,
		tasks:     t,
		batchSize: batchSize,
	}
}

func (h *EmbedConsumer) HandleMessage(m *nsq.Message) error {
	if len(m.Body) == 0 {
		return nil
	}

	var payload task.TaskPayload
	if err := json.Unmarshal(m.Body, &payload); err != nil {
		// Poison Pill: Invalid JSON, don't retry
		slog.Error("poison pill: invalid json", "error", err)
		return nil
	}

	ctx := context.Background()
	if payload.CorrelationID != "" {
		ctx = middleware.WithCorrelationID(ctx, payload.CorrelationID)
	}

	t, err := h.tasks.Get(ctx, payload.TaskID)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load embedding task", "error", err, "task_id", payload.TaskID)
		return err // Retry
	}
	if !t.Active() {
		slog.InfoContext(ctx, "embedding task no longer active, skipping", "task_id", t.ID, "status", t.Status)
		return nil
	}

	pending, err := h.chunks.ChunksMissingEmbedding(ctx, payload.DocumentID)
	if err != nil {
		h.failTask(ctx, t.ID, "failed to enumerate chunks: "+err.Error())
		return nil
	}
	if len(pending) == 0 {
		slog.InfoContext(ctx, "no chunks need embedding", "task_id", t.ID, "document_id", payload.DocumentID)
		if err := h.tasks.Complete(ctx, t.ID, 0, 0); err != nil {
			slog.ErrorContext(ctx, "failed to complete task", "error", err, "task_id", t.ID)
		}
		return nil
	}

	if err := h.tasks.MarkProcessing(ctx, t.ID, len(pending)); err != nil {
		slog.ErrorContext(ctx, "failed to mark task processing", "error", err, "task_id", t.ID)
		return err // Retry
	}

	success, fail := 0, 0
	for start := 0; start < len(pending); start += h.batchSize {
		end := min(start+h.batchSize, len(pending))
		batch := pending[start:end]

		vectors, err := h.embedBatch(ctx, batch)
		if err != nil {
			slog.ErrorContext(ctx, "batch embedding failed, skipping batch",
				"error", err, "task_id", t.ID, "batch_start", start, "batch_size", len(batch))
			fail += len(batch)
		} else {
			updates := make([]document.ChunkEmbedding, len(batch))
			for i, c := range batch {
				updates[i] = document.ChunkEmbedding{ChunkID: c.ID, Embedding: vectors[i]}
			}
			if err := h.chunks.UpdateChunkEmbeddings(ctx, updates); err != nil {
				h.failTask(ctx, t.ID, "failed to persist embeddings: "+err.Error())
				return nil
			}
			success += len(batch)
		}

		done := start + len(batch)
		progress := done * 100 / len(pending)
		if err := h.tasks.UpdateProgress(ctx, t.ID, done, progress); err != nil {
			slog.WarnContext(ctx, "failed to update task progress", "error", err, "task_id", t.ID)
		}
	}

	// A run that embedded nothing is a failure, not a completion. Partial
	// runs still complete so the embedded chunks become searchable.
	if success == 0 && fail > 0 {
		h.failTask(ctx, t.ID, fmt.Sprintf("all %d batches failed", (fail+h.batchSize-1)/h.batchSize))
		return nil
	}

	if err := h.tasks.Complete(ctx, t.ID, success, fail); err != nil {
		slog.ErrorContext(ctx, "failed to complete task", "error", err, "task_id", t.ID)
		return err // Retry
	}

	slog.InfoContext(ctx, "embedding task finished",
		"task_id", t.ID, "document_id", payload.DocumentID, "success", success, "fail", fail)
	return nil
}

// embedBatch calls the embedder with exponential backoff. Permanent faults
// such as a rejected API key stop retrying immediately.
func (h *EmbedConsumer) embedBatch(ctx context.Context, batch []document.Chunk) ([][]float32, error) {
	texts := make([]string, len(batch))
	for i, c := range batch {
		texts[i] = c.Content
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(newExpBackoff(), 3), ctx)

	var vectors [][]float32
	err := backoff.Retry(func() error {
		embedCtx, cancel := context.WithTimeout(ctx, 60*time.Second)
		defer cancel()

		var embedErr error
		vectors, embedErr = h.embedder.EmbedBatch(embedCtx, texts)
		if embedErr != nil {
			if faults.IsPermanent(embedErr) {
				return backoff.Permanent(embedErr)
			}
			return embedErr
		}
		return nil
	}, policy)
	if err != nil {
		return nil, err
	}
	return vectors, nil
}

func newExpBackoff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Second
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxInterval = 30 * time.Second
	return b
}

func (h *EmbedConsumer) failTask(ctx context.Context, id, msg string) {
	slog.ErrorContext(ctx, "embedding task failed", "task_id", id, "reason", msg)
	if err := h.tasks.Fail(ctx, id, msg); err != nil {
		slog.ErrorContext(ctx, "failed to mark task failed", "error", err, "task_id", id)
	}
}
