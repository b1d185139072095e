package task

import (
	"context"
	"database/sql"
)

type Repository interface {
	// Create inserts a pending task for the document. It reports false when
	// an active task already exists: the insert races through the partial
	// unique index on (document_id) for active statuses, so concurrent
	// creators cannot both win.
	Create(ctx context.Context, t *Task) (bool, error)

	Get(ctx context.Context, id string) (*Task, error)
	GetLatestByDocument(ctx context.Context, documentID string) (*Task, error)

	MarkProcessing(ctx context.Context, id string, total int) error
	UpdateProgress(ctx context.Context, id string, current, progress int) error
	Complete(ctx context.Context, id string, successCount, failCount int) error
	Fail(ctx context.Context, id string, errMsg string) error
}

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) Create(ctx context.Context, t *Task) (bool, error) {
	query := `INSERT INTO embedding_tasks (document_id, status, total)
		VALUES ($1, 'pending', $2)
		ON CONFLICT (document_id) WHERE status IN ('pending', 'processing') DO NOTHING
		RETURNING id, status, created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query, t.DocumentID, t.Total).
		Scan(&t.ID, &t.Status, &t.CreatedAt, &t.UpdatedAt)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *PostgresRepo) Get(ctx context.Context, id string) (*Task, error) {
	query := `SELECT id, document_id, status, current, total, progress, success_count, fail_count, error, created_at, updated_at
		FROM embedding_tasks WHERE id = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepo) GetLatestByDocument(ctx context.Context, documentID string) (*Task, error) {
	query := `SELECT id, document_id, status, current, total, progress, success_count, fail_count, error, created_at, updated_at
		FROM embedding_tasks WHERE document_id = $1 ORDER BY created_at DESC LIMIT 1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, documentID))
}

func (r *PostgresRepo) scanOne(row *sql.Row) (*Task, error) {
	t := &Task{}
	err := row.Scan(&t.ID, &t.DocumentID, &t.Status, &t.Current, &t.Total, &t.Progress,
		&t.SuccessCount, &t.FailCount, &t.Error, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (r *PostgresRepo) MarkProcessing(ctx context.Context, id string, total int) error {
	query := `UPDATE embedding_tasks SET status = 'processing', total = $1, updated_at = NOW() WHERE id = $2`
	_, err := r.db.ExecContext(ctx, query, total, id)
	return err
}

func (r *PostgresRepo) UpdateProgress(ctx context.Context, id string, current, progress int) error {
	query := `UPDATE embedding_tasks SET current = $1, progress = $2, updated_at = NOW() WHERE id = $3`
	_, err := r.db.ExecContext(ctx, query, current, progress, id)
	return err
}

func (r *PostgresRepo) Complete(ctx context.Context, id string, successCount, failCount int) error {
	query := `UPDATE embedding_tasks SET status = 'completed', progress = 100, success_count = $1, fail_count = $2, updated_at = NOW() WHERE id = $3`
	_, err := r.db.ExecContext(ctx, query, successCount, failCount, id)
	return err
}

func (r *PostgresRepo) Fail(ctx context.Context, id string, errMsg string) error {
	query := `UPDATE embedding_tasks SET status = 'failed', error = $1, updated_at = NOW() WHERE id = $2`
	_, err := r.db.ExecContext(ctx, query, errMsg, id)
	return err
}
