package worker

import (
	"context"
	"log/slog"
)

// RecoverPendingEmbeddings scans for documents whose chunks still lack
// vectors and enqueues an embedding task for each. Documents with an active
// task are skipped by the task creator's conflict handling, so running the
// scan on every startup is safe.
func RecoverPendingEmbeddings(ctx context.Context, chunks ChunkStore, tasks TaskCreator) error {
	ids, err := chunks.DocumentIDsMissingEmbeddings(ctx)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "recovering documents with missing embeddings", "count", len(ids))
	for _, id := range ids {
		created, err := tasks.Create(ctx, id)
		if err != nil {
			slog.ErrorContext(ctx, "failed to recover embedding task", "error", err, "document_id", id)
			continue
		}
		if created {
			slog.InfoContext(ctx, "recovery task enqueued", "document_id", id)
		}
	}
	return nil
}
