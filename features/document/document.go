package document

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"inquiro/backend/internal/text"
)

// Document statuses. A document is ready as soon as its chunks are
// persisted; embedding completeness is tracked separately on the task.
const (
	StatusProcessing = "processing"
	StatusReady      = "ready"
	StatusError      = "error"
)

var ErrDuplicate = errors.New("duplicate document")

type Document struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Category    string    `json:"category"`
	ByteSize    int64     `json:"byte_size"`
	ContentHash string    `json:"-"`
	Preview     string    `json:"preview"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Chunk is a stored passage of document text. Parent chunks give the answer
// step surrounding context; child chunks are what search actually scores.
// Immutable after creation except for embedding assignment.
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

// ChunkEmbedding pairs a chunk with its freshly computed vector for the
// batched embedding write.
type ChunkEmbedding struct {
	ChunkID   string
	Embedding []float32
}

type Repository interface {
	Save(ctx context.Context, doc *Document) error
	ExistsByHash(ctx context.Context, hash string) (bool, error)
	Get(ctx context.Context, id string) (*Document, error)
	List(ctx context.Context) ([]Document, error)
	UpdateStatus(ctx context.Context, id, status string) error
	UpdateCategory(ctx context.Context, id, category string) error
	SoftDelete(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)

	// Chunks
	BulkCreateChunks(ctx context.Context, chunks []Chunk) error
	GetChunks(ctx context.Context, documentID string) ([]Chunk, error)
	CountChunks(ctx context.Context, documentID string) (int, error)
	DeleteChunks(ctx context.Context, documentID string) error
	SearchableChunks(ctx context.Context) ([]Chunk, error)
	ChunksMissingEmbedding(ctx context.Context, documentID string) ([]Chunk, error)
	UpdateChunkEmbeddings(ctx context.Context, updates []ChunkEmbedding) error
	DocumentIDsMissingEmbeddings(ctx context.Context) ([]string, error)
}

// TaskCreator enqueues embedding work for a document.
type TaskCreator interface {
	Create(ctx context.Context, documentID string) (bool, error)
}

// EmbeddingStatusReader reports the latest embedding task status for a
// document.
type EmbeddingStatusReader interface {
	EmbeddingStatus(ctx context.Context, documentID string) (string, error)
}

type Service struct {
	repo  Repository
	tasks TaskCreator
	split text.SplitOptions
}

func NewService(repo Repository, tasks TaskCreator, split text.SplitOptions) *Service {
	return &Service{repo: repo, tasks: tasks, split: split}
}

// Create ingests an already-extracted plain-text document: it chunks the
// content synchronously, persists the chunks in one bulk write, and
// enqueues the embedding task asynchronously. Upload succeeds once chunking
// completes; embedding failures later never roll this back.
func (s *Service) Create(ctx context.Context, doc *Document, content string) error {
	if strings.TrimSpace(content) == "" {
		return errors.New("content is empty")
	}

	hash := sha256.Sum256([]byte(content))
	doc.ContentHash = fmt.Sprintf("%x", hash)

	exists, err := s.repo.ExistsByHash(ctx, doc.ContentHash)
	if err != nil {
		return err
	}
	if exists {
		return ErrDuplicate
	}

	doc.ByteSize = int64(len(content))
	doc.Preview = preview(content, 200)
	doc.Status = StatusProcessing
	if err := s.repo.Save(ctx, doc); err != nil {
		return err
	}

	chunks := s.buildChunks(doc.ID, content)
	if err := s.repo.BulkCreateChunks(ctx, chunks); err != nil {
		if stErr := s.repo.UpdateStatus(ctx, doc.ID, StatusError); stErr != nil {
			slog.ErrorContext(ctx, "failed to mark document error", "error", stErr, "document_id", doc.ID)
		}
		return fmt.Errorf("failed to persist chunks: %w", err)
	}

	if err := s.repo.UpdateStatus(ctx, doc.ID, StatusReady); err != nil {
		return err
	}
	doc.Status = StatusReady

	if _, err := s.tasks.Create(ctx, doc.ID); err != nil {
		// Embedding is recoverable; the startup scan will pick this up.
		slog.ErrorContext(ctx, "failed to enqueue embedding task", "error", err, "document_id", doc.ID)
	}

	slog.InfoContext(ctx, "document ingested", "document_id", doc.ID, "chunks", len(chunks))
	return nil
}

// buildChunks runs the splitter and materializes its output as persistable
// chunk records with IDs and parent references resolved.
func (s *Service) buildChunks(documentID, content string) []Chunk {
	pieces := text.Split(content, s.split)

	chunks := make([]Chunk, len(pieces))
	for i, p := range pieces {
		chunks[i] = Chunk{
			ID:         uuid.NewString(),
			DocumentID: documentID,
			Index:      p.Index,
			Type:       string(p.Type),
			Content:    p.Content,
			TokenCount: p.TokenCount,
		}
	}
	for i, p := range pieces {
		if p.ParentIndex >= 0 {
			chunks[i].ParentID = chunks[p.ParentIndex].ID
		}
	}
	return chunks
}

type DocumentDetail struct {
	Document
	ChunkCount      int    `json:"chunk_count"`
	EmbeddingStatus string `json:"embedding_status"`
}

func (s *Service) Get(ctx context.Context, id string, statuses EmbeddingStatusReader) (*DocumentDetail, error) {
	doc, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	count, err := s.repo.CountChunks(ctx, id)
	if err != nil {
		slog.WarnContext(ctx, "failed to count chunks", "error", err, "document_id", id)
	}

	embStatus := "none"
	if statuses != nil {
		if st, err := statuses.EmbeddingStatus(ctx, id); err == nil {
			embStatus = st
		}
	}

	return &DocumentDetail{
		Document:        *doc,
		ChunkCount:      count,
		EmbeddingStatus: embStatus,
	}, nil
}

func (s *Service) List(ctx context.Context) ([]Document, error) {
	return s.repo.List(ctx)
}

func (s *Service) UpdateCategory(ctx context.Context, id, category string) error {
	return s.repo.UpdateCategory(ctx, id, category)
}

// Delete removes a document's chunks and soft-deletes the record. Chunks
// are only ever deleted through here.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.DeleteChunks(ctx, id); err != nil {
		return err
	}
	return s.repo.SoftDelete(ctx, id)
}

func (s *Service) GetChunks(ctx context.Context, id string) ([]Chunk, error) {
	return s.repo.GetChunks(ctx, id)
}

func preview(content string, n int) string {
	trimmed := strings.TrimSpace(content)
	runes := []rune(trimmed)
	if len(runes) <= n {
		return trimmed
	}
	return string(runes[:n])
}

// NotFound reports whether err is the repository's no-rows error.
func NotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
