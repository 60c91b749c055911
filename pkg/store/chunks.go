package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Chunk is an ordered slice of a document's text, the unit of retrieval.
// The chunk set for a document is only ever replaced as a whole.
type Chunk struct {
	ID         string
	DocumentID string
	Index      int
	Content    string
	StartLine  int // 1-based, 0 when untracked
	EndLine    int
	CreatedAt  time.Time
}

// InsertChunkTx inserts a chunk inside tx.
func (s *Store) InsertChunkTx(ctx context.Context, tx *sql.Tx, c *Chunk) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO chunks (id, document_id, chunk_index, content, start_line, end_line, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.DocumentID, c.Index, c.Content,
		nullLine(c.StartLine), nullLine(c.EndLine), c.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert chunk: %w", err)
	}
	return nil
}

// ChunkIDsTx returns the ids of all chunks owned by documentID, read inside
// tx so the set is consistent with the deletes that follow.
func (s *Store) ChunkIDsTx(ctx context.Context, tx *sql.Tx, documentID string) ([]string, error) {
	rows, err := tx.QueryContext(ctx, "SELECT id FROM chunks WHERE document_id = ?", documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunk ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// DeleteDocumentChunksTx removes every chunk owned by documentID inside tx.
func (s *Store) DeleteDocumentChunksTx(ctx context.Context, tx *sql.Tx, documentID string) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM chunks WHERE document_id = ?", documentID); err != nil {
		return fmt.Errorf("failed to delete chunks: %w", err)
	}
	return nil
}

// GetChunks returns the chunks of a document in index order.
func (s *Store) GetChunks(ctx context.Context, documentID string) ([]Chunk, error) {
	rows, err := s.db.QueryContext(ctx,
		chunkSelect+" WHERE document_id = ? ORDER BY chunk_index ASC", documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks: %w", err)
	}
	defer rows.Close()

	var out []Chunk
	for rows.Next() {
		c, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

// GetChunkWithDocument fetches a chunk and its owning document in one query.
func (s *Store) GetChunkWithDocument(ctx context.Context, chunkID string) (*Chunk, *Document, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT c.id, c.document_id, c.chunk_index, c.content, c.start_line, c.end_line, c.created_at,
			d.id, d.path, d.title, d.content_hash, d.source_modified_at, d.created_at, d.updated_at
		FROM chunks c
		JOIN documents d ON c.document_id = d.id
		WHERE c.id = ?`, chunkID)

	var c Chunk
	var doc Document
	var startLine, endLine sql.NullInt64
	var chunkCreated int64
	var docSourceModified sql.NullInt64
	var docCreated, docUpdated int64

	err := row.Scan(
		&c.ID, &c.DocumentID, &c.Index, &c.Content, &startLine, &endLine, &chunkCreated,
		&doc.ID, &doc.Path, &doc.Title, &doc.ContentHash, &docSourceModified, &docCreated, &docUpdated,
	)
	if err == sql.ErrNoRows {
		return nil, nil, ErrNotFound
	}
	if err != nil {
		return nil, nil, err
	}

	c.StartLine = int(startLine.Int64)
	c.EndLine = int(endLine.Int64)
	c.CreatedAt = time.Unix(chunkCreated, 0)
	doc.SourceModifiedAt = unixPtr(docSourceModified)
	doc.CreatedAt = time.Unix(docCreated, 0)
	doc.UpdatedAt = time.Unix(docUpdated, 0)
	return &c, &doc, nil
}

// CountChunks returns the total number of stored chunks.
func (s *Store) CountChunks(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM chunks").Scan(&n)
	return n, err
}

const chunkSelect = `
	SELECT id, document_id, chunk_index, content, start_line, end_line, created_at
	FROM chunks`

func scanChunk(sc rowScanner) (*Chunk, error) {
	var c Chunk
	var startLine, endLine sql.NullInt64
	var createdAt int64

	if err := sc.Scan(&c.ID, &c.DocumentID, &c.Index, &c.Content, &startLine, &endLine, &createdAt); err != nil {
		return nil, err
	}

	c.StartLine = int(startLine.Int64)
	c.EndLine = int(endLine.Int64)
	c.CreatedAt = time.Unix(createdAt, 0)
	return &c, nil
}

func nullLine(n int) any {
	if n <= 0 {
		return nil
	}
	return n
}
