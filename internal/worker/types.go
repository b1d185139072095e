package worker

import (
	"context"

	"inquiro/backend/features/document"
	"inquiro/backend/features/task"
)

type BatchEmbedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// ChunkStore is the slice of the document repository the worker needs.
type ChunkStore interface {
	ChunksMissingEmbedding(ctx context.Context, documentID string) ([]document.Chunk, error)
	UpdateChunkEmbeddings(ctx context.Context, updates []document.ChunkEmbedding) error
	DocumentIDsMissingEmbeddings(ctx context.Context) ([]string, error)
}

type TaskStore interface {
	Get(ctx context.Context, id string) (*task.Task, error)
	MarkProcessing(ctx context.Context, id string, total int) error
	UpdateProgress(ctx context.Context, id string, current, progress int) error
	Complete(ctx context.Context, id string, successCount, failCount int) error
	Fail(ctx context.Context, id string, errMsg string) error
}

// TaskCreator re-enqueues embedding work during the startup recovery scan.
type TaskCreator interface {
	Create(ctx context.Context, documentID string) (bool, error)
}
