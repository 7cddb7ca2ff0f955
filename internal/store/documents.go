package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dgallion1/docchunk/internal/chunker"
	"github.com/dgallion1/docchunk/internal/doctree"
)

// Document is a stored source document.
type Document struct {
	ID          string    `json:"id"`
	Filename    string    `json:"filename"`
	Title       string    `json:"title"`
	ContentHash string    `json:"content_hash"`
	PageCount   int       `json:"page_count"`
	ChunkCount  int       `json:"chunk_count"`
	CreatedAt   time.Time `json:"created_at"`
}

// StoredChunk is a chunk together with the document it belongs to.
type StoredChunk struct {
	DocID string `json:"doc_id"`
	doctree.Chunk
}

// Totals summarizes the whole store.
type Totals struct {
	Documents int `json:"documents"`
	Chunks    int `json:"chunks"`
	Tokens    int `json:"tokens"`
}

// querier is implemented by both *sql.DB and *sql.Tx.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SaveDocument stores doc and its chunks in one transaction. An empty ID is
// filled with a new UUID. Chunks must be valid and sequenced from 0.
func (s *Store) SaveDocument(ctx context.Context, doc *Document, chunks []doctree.Chunk) error {
	if doc.ContentHash == "" {
		return errors.New("document content hash is required")
	}
	if err := chunker.ValidateChunks(chunks); err != nil {
		return fmt.Errorf("invalid chunks: %w", err)
	}
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}
	doc.ChunkCount = len(chunks)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return classify(fmt.Errorf("begin: %w", err))
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO documents (id, filename, title, content_hash, page_count, chunk_count, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		doc.ID, doc.Filename, doc.Title, doc.ContentHash, doc.PageCount, doc.ChunkCount, doc.CreatedAt,
	); err != nil {
		return classify(fmt.Errorf("insert document: %w", err))
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (doc_id, sequence, hash, text, token_count, metadata)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return classify(fmt.Errorf("prepare chunk insert: %w", err))
	}
	defer stmt.Close()

	for _, c := range chunks {
		meta, err := json.Marshal(c.Metadata)
		if err != nil {
			return fmt.Errorf("marshal metadata for chunk %d: %w", c.Sequence, err)
		}
		if _, err := stmt.ExecContext(ctx, doc.ID, c.Sequence, c.Hash, c.Text, c.TokenCount, string(meta)); err != nil {
			return classify(fmt.Errorf("insert chunk %d: %w", c.Sequence, err))
		}
	}

	if err := tx.Commit(); err != nil {
		return classify(fmt.Errorf("commit: %w", err))
	}
	return nil
}

const documentColumns = `id, filename, title, content_hash, page_count, chunk_count, created_at`

func scanDocument(row interface{ Scan(...any) error }) (*Document, error) {
	var d Document
	if err := row.Scan(&d.ID, &d.Filename, &d.Title, &d.ContentHash, &d.PageCount, &d.ChunkCount, &d.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, classify(err)
	}
	return &d, nil
}

// GetDocument returns the document with id.
func (s *Store) GetDocument(ctx context.Context, id string) (*Document, error) {
	return scanDocument(s.db.QueryRowContext(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE id = ?`, id))
}

// FindByContentHash returns the document whose source bytes hash to hash.
func (s *Store) FindByContentHash(ctx context.Context, hash string) (*Document, error) {
	return scanDocument(s.db.QueryRowContext(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE content_hash = ?`, hash))
}

// ListDocuments returns documents newest first. A non-positive limit means 100.
func (s *Store) ListDocuments(ctx context.Context, limit, offset int) ([]Document, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+documentColumns+` FROM documents ORDER BY created_at DESC, id LIMIT ? OFFSET ?`,
		limit, max(offset, 0))
	if err != nil {
		return nil, classify(fmt.Errorf("list documents: %w", err))
	}
	defer rows.Close()

	docs := []Document{}
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *d)
	}
	return docs, classify(rows.Err())
}

// ListChunks returns the chunks of a document in sequence order.
func (s *Store) ListChunks(ctx context.Context, docID string) ([]StoredChunk, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, classify(err)
	}
	defer tx.Rollback() //nolint:errcheck

	var exists int
	if err := tx.QueryRowContext(ctx, `SELECT 1 FROM documents WHERE id = ?`, docID).Scan(&exists); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, classify(err)
	}
	return queryChunks(ctx, tx, `WHERE doc_id = ? ORDER BY sequence`, docID)
}

// ChunksByHash returns every stored chunk with the given text hash, across documents.
func (s *Store) ChunksByHash(ctx context.Context, hash string) ([]StoredChunk, error) {
	return queryChunks(ctx, s.db, `WHERE hash = ? ORDER BY doc_id, sequence`, hash)
}

func queryChunks(ctx context.Context, q querier, where string, args ...any) ([]StoredChunk, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT doc_id, sequence, hash, text, token_count, metadata FROM chunks `+where, args...)
	if err != nil {
		return nil, classify(fmt.Errorf("query chunks: %w", err))
	}
	defer rows.Close()

	chunks := []StoredChunk{}
	for rows.Next() {
		var (
			c    StoredChunk
			meta string
		)
		if err := rows.Scan(&c.DocID, &c.Sequence, &c.Hash, &c.Text, &c.TokenCount, &meta); err != nil {
			return nil, classify(err)
		}
		if err := json.Unmarshal([]byte(meta), &c.Metadata); err != nil {
			return nil, fmt.Errorf("decode metadata for %s/%d: %w", c.DocID, c.Sequence, err)
		}
		chunks = append(chunks, c)
	}
	return chunks, classify(rows.Err())
}

// DeleteDocument removes a document and its chunks.
func (s *Store) DeleteDocument(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id)
	if err != nil {
		return classify(fmt.Errorf("delete document: %w", err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Totals counts stored documents, chunks and tokens.
func (s *Store) Totals(ctx context.Context) (Totals, error) {
	var t Totals
	err := s.db.QueryRowContext(ctx, `
		SELECT
		    (SELECT COUNT(*) FROM documents),
		    (SELECT COUNT(*) FROM chunks),
		    (SELECT COALESCE(SUM(token_count), 0) FROM chunks)`,
	).Scan(&t.Documents, &t.Chunks, &t.Tokens)
	return t, classify(err)
}
