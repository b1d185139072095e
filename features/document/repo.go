package document

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) Save(ctx context.Context, doc *Document) error {
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	doc.CreatedAt = now
	doc.UpdatedAt = now

	query := `
		INSERT INTO documents (id, title, category, byte_size, content_hash, preview, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.db.ExecContext(ctx, query,
		doc.ID, doc.Title, doc.Category, doc.ByteSize, doc.ContentHash,
		doc.Preview, doc.Status, doc.CreatedAt, doc.UpdatedAt)
	if err != nil {
		// Concurrent identical uploads race past ExistsByHash; the content
		// hash index catches the loser here.
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to save document: %w", err)
	}
	return nil
}

func (r *PostgresRepo) ExistsByHash(ctx context.Context, hash string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM documents WHERE content_hash = $1 AND deleted_at IS NULL)`
	if err := r.db.QueryRowContext(ctx, query, hash).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check content hash: %w", err)
	}
	return exists, nil
}

func (r *PostgresRepo) Get(ctx context.Context, id string) (*Document, error) {
	query := `
		SELECT id, title, category, byte_size, content_hash, preview, status, created_at, updated_at
		FROM documents
		WHERE id = $1 AND deleted_at IS NULL`
	var doc Document
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&doc.ID, &doc.Title, &doc.Category, &doc.ByteSize, &doc.ContentHash,
		&doc.Preview, &doc.Status, &doc.CreatedAt, &doc.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (r *PostgresRepo) List(ctx context.Context) ([]Document, error) {
	query := `
		SELECT id, title, category, byte_size, content_hash, preview, status, created_at, updated_at
		FROM documents
		WHERE deleted_at IS NULL
		ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	docs := []Document{}
	for rows.Next() {
		var doc Document
		if err := rows.Scan(
			&doc.ID, &doc.Title, &doc.Category, &doc.ByteSize, &doc.ContentHash,
			&doc.Preview, &doc.Status, &doc.CreatedAt, &doc.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func (r *PostgresRepo) UpdateStatus(ctx context.Context, id, status string) error {
	query := `UPDATE documents SET status = $1, updated_at = $2 WHERE id = $3 AND deleted_at IS NULL`
	res, err := r.db.ExecContext(ctx, query, status, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update document status: %w", err)
	}
	return requireRow(res)
}

func (r *PostgresRepo) UpdateCategory(ctx context.Context, id, category string) error {
	query := `UPDATE documents SET category = $1, updated_at = $2 WHERE id = $3 AND deleted_at IS NULL`
	res, err := r.db.ExecContext(ctx, query, category, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update document category: %w", err)
	}
	return requireRow(res)
}

func (r *PostgresRepo) SoftDelete(ctx context.Context, id string) error {
	query := `UPDATE documents SET deleted_at = $1, updated_at = $1 WHERE id = $2 AND deleted_at IS NULL`
	res, err := r.db.ExecContext(ctx, query, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	return requireRow(res)
}

func (r *PostgresRepo) Count(ctx context.Context) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM documents WHERE deleted_at IS NULL`
	if err := r.db.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count documents: %w", err)
	}
	return count, nil
}

// BulkCreateChunks inserts all chunks of a document in one COPY inside a
// transaction, so a document is never visible with half its chunks.
func (r *PostgresRepo) BulkCreateChunks(ctx context.Context, chunks []Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, pq.CopyIn("chunks",
		"id", "document_id", "chunk_index", "chunk_type", "content", "token_count", "parent_id", "created_at"))
	if err != nil {
		return fmt.Errorf("failed to prepare bulk insert: %w", err)
	}

	now := time.Now().UTC()
	for _, c := range chunks {
		var parentID any
		if c.ParentID != "" {
			parentID = c.ParentID
		}
		if _, err := stmt.ExecContext(ctx, c.ID, c.DocumentID, c.Index, c.Type, c.Content, c.TokenCount, parentID, now); err != nil {
			stmt.Close()
			return fmt.Errorf("failed to buffer chunk: %w", err)
		}
	}

	if _, err := stmt.ExecContext(ctx); err != nil {
		stmt.Close()
		return fmt.Errorf("failed to flush bulk insert: %w", err)
	}
	if err := stmt.Close(); err != nil {
		return fmt.Errorf("failed to close bulk insert: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit chunks: %w", err)
	}
	return nil
}

func (r *PostgresRepo) GetChunks(ctx context.Context, documentID string) ([]Chunk, error) {
	query := `
		SELECT id, document_id, chunk_index, chunk_type, content, token_count, COALESCE(parent_id::text, ''), COALESCE(embedding, '{}')
		FROM chunks
		WHERE document_id = $1
		ORDER BY chunk_index`
	rows, err := r.db.QueryContext(ctx, query, documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get chunks: %w", err)
	}
	defer rows.Close()
	return scanChunks(rows)
}

func (r *PostgresRepo) CountChunks(ctx context.Context, documentID string) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM chunks WHERE document_id = $1`
	if err := r.db.QueryRowContext(ctx, query, documentID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count chunks: %w", err)
	}
	return count, nil
}

func (r *PostgresRepo) DeleteChunks(ctx context.Context, documentID string) error {
	query := `DELETE FROM chunks WHERE document_id = $1`
	if _, err := r.db.ExecContext(ctx, query, documentID); err != nil {
		return fmt.Errorf("failed to delete chunks: %w", err)
	}
	return nil
}

// SearchableChunks loads every chunk belonging to a live document. The
// search service ranks these in process.
func (r *PostgresRepo) SearchableChunks(ctx context.Context) ([]Chunk, error) {
	query := `
		SELECT c.id, c.document_id, c.chunk_index, c.chunk_type, c.content, c.token_count, COALESCE(c.parent_id::text, ''), COALESCE(c.embedding, '{}')
		FROM chunks c
		JOIN documents d ON d.id = c.document_id
		WHERE d.deleted_at IS NULL
		ORDER BY c.document_id, c.chunk_index`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to load searchable chunks: %w", err)
	}
	defer rows.Close()
	return scanChunks(rows)
}

func (r *PostgresRepo) ChunksMissingEmbedding(ctx context.Context, documentID string) ([]Chunk, error) {
	query := `
		SELECT id, document_id, chunk_index, chunk_type, content, token_count, COALESCE(parent_id::text, ''), '{}'::real[]
		FROM chunks
		WHERE document_id = $1 AND chunk_type != 'parent' AND (embedding IS NULL OR cardinality(embedding) = 0)
		ORDER BY chunk_index`
	rows, err := r.db.QueryContext(ctx, query, documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load chunks missing embeddings: %w", err)
	}
	defer rows.Close()
	return scanChunks(rows)
}

// UpdateChunkEmbeddings writes a batch of vectors in a single statement
// rather than one UPDATE per chunk.
func (r *PostgresRepo) UpdateChunkEmbeddings(ctx context.Context, updates []ChunkEmbedding) error {
	if len(updates) == 0 {
		return nil
	}

	var sb strings.Builder
	sb.WriteString(`UPDATE chunks AS c SET embedding = v.embedding FROM (VALUES `)
	args := make([]any, 0, len(updates)*2)
	for i, u := range updates {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "($%d::uuid, $%d::real[])", i*2+1, i*2+2)
		args = append(args, u.ChunkID, pq.Array(u.Embedding))
	}
	sb.WriteString(`) AS v(id, embedding) WHERE c.id = v.id`)

	if _, err := r.db.ExecContext(ctx, sb.String(), args...); err != nil {
		return fmt.Errorf("failed to update chunk embeddings: %w", err)
	}
	return nil
}

// DocumentIDsMissingEmbeddings lists live documents with at least one
// searchable chunk lacking a vector. Used by the startup recovery scan.
func (r *PostgresRepo) DocumentIDsMissingEmbeddings(ctx context.Context) ([]string, error) {
	query := `
		SELECT DISTINCT c.document_id
		FROM chunks c
		JOIN documents d ON d.id = c.document_id
		WHERE d.deleted_at IS NULL
		  AND c.chunk_type != 'parent'
		  AND (c.embedding IS NULL OR cardinality(c.embedding) = 0)`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to scan for missing embeddings: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan document id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func scanChunks(rows *sql.Rows) ([]Chunk, error) {
	chunks := []Chunk{}
	for rows.Next() {
		var c Chunk
		var embedding pq.Float32Array
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.Index, &c.Type, &c.Content, &c.TokenCount, &c.ParentID, &embedding); err != nil {
			return nil, fmt.Errorf("failed to scan chunk: %w", err)
		}
		c.Embedding = embedding
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
