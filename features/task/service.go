package task

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"

	"inquiro/backend/internal/config"
	"inquiro/backend/internal/middleware"
)

type EventPublisher interface {
	Publish(topic string, body []byte) error
}

// TaskPayload is the NSQ message that hands a task to the embedding worker.
type TaskPayload struct {
	TaskID        string `json:"task_id"`
	DocumentID    string `json:"document_id"`
	CorrelationID string `json:"correlation_id"`
}

type Service struct {
	repo Repository
	pub  EventPublisher
}

func NewService(repo Repository, pub EventPublisher) *Service {
	return &Service{repo: repo, pub: pub}
}

// Create registers a pending embedding task for the document and hands it to
// the worker. It reports false without error when the document already has
// an active task.
func (s *Service) Create(ctx context.Context, documentID string) (bool, error) {
	t := &Task{DocumentID: documentID}
	created, err := s.repo.Create(ctx, t)
	if err != nil {
		return false, err
	}
	if !created {
		slog.InfoContext(ctx, "embedding task already active, skipping", "document_id", documentID)
		return false, nil
	}

	payload, _ := json.Marshal(TaskPayload{
		TaskID:        t.ID,
		DocumentID:    documentID,
		CorrelationID: middleware.GetCorrelationID(ctx),
	})
	if err := s.pub.Publish(config.TopicEmbedTask, payload); err != nil {
		// The recovery scan re-creates unpublished work after restart, so a
		// publish failure fails the task rather than leaving it stuck.
		slog.ErrorContext(ctx, "failed to publish embed task", "error", err, "task_id", t.ID)
		if failErr := s.repo.Fail(ctx, t.ID, "publish failed: "+err.Error()); failErr != nil {
			slog.ErrorContext(ctx, "failed to mark task failed", "error", failErr, "task_id", t.ID)
		}
		return false, err
	}

	slog.InfoContext(ctx, "embedding task created", "task_id", t.ID, "document_id", documentID)
	return true, nil
}

// LatestForDocument returns the most recent task for progress display, or
// nil when the document never had one.
func (s *Service) LatestForDocument(ctx context.Context, documentID string) (*Task, error) {
	t, err := s.repo.GetLatestByDocument(ctx, documentID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

// EmbeddingStatus summarizes the latest task for a document:
// none | pending | processing | completed | failed.
func (s *Service) EmbeddingStatus(ctx context.Context, documentID string) (string, error) {
	t, err := s.LatestForDocument(ctx, documentID)
	if err != nil {
		return "", err
	}
	if t == nil {
		return "none", nil
	}
	return t.Status, nil
}
