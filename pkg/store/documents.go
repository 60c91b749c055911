package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Document is a chunkable long-form source tracked by content hash. The
// hash always reflects the most recently indexed version of the file, not
// merely the most recently seen one: it is only written inside the same
// transaction that replaces the document's chunks.
type Document struct {
	ID               string
	Path             string
	Title            string
	ContentHash      string
	SourceModifiedAt *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// GetDocumentByPath looks a document up by its unique path.
func (s *Store) GetDocumentByPath(ctx context.Context, path string) (*Document, error) {
	return s.getDocument(ctx, s.db.QueryRowContext(ctx, documentSelect+" WHERE path = ?", path))
}

// GetDocument looks a document up by id.
func (s *Store) GetDocument(ctx context.Context, id string) (*Document, error) {
	return s.getDocument(ctx, s.db.QueryRowContext(ctx, documentSelect+" WHERE id = ?", id))
}

// UpsertDocumentTx inserts or rewrites the document row inside tx.
// created_at is preserved on conflict; everything else is replaced.
func (s *Store) UpsertDocumentTx(ctx context.Context, tx *sql.Tx, doc *Document) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO documents
			(id, path, title, content_hash, source_modified_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			title = excluded.title,
			content_hash = excluded.content_hash,
			source_modified_at = excluded.source_modified_at,
			updated_at = excluded.updated_at`,
		doc.ID, doc.Path, doc.Title, doc.ContentHash,
		nullUnix(doc.SourceModifiedAt), doc.CreatedAt.Unix(), doc.UpdatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert document: %w", err)
	}
	return nil
}

// ListDocuments returns all documents ordered by path.
func (s *Store) ListDocuments(ctx context.Context) ([]Document, error) {
	rows, err := s.db.QueryContext(ctx, documentSelect+" ORDER BY path ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer rows.Close()

	var out []Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *doc)
	}
	return out, rows.Err()
}

// DeleteDocument removes a document and, through the foreign key cascade,
// all of its chunks. Vector entries must be removed by the caller first.
func (s *Store) DeleteDocument(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM documents WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// CountDocuments returns the total number of tracked documents.
func (s *Store) CountDocuments(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM documents").Scan(&n)
	return n, err
}

const documentSelect = `
	SELECT id, path, title, content_hash, source_modified_at, created_at, updated_at
	FROM documents`

func (s *Store) getDocument(ctx context.Context, row *sql.Row) (*Document, error) {
	doc, err := scanDocument(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return doc, err
}

func scanDocument(sc rowScanner) (*Document, error) {
	var doc Document
	var sourceModifiedAt sql.NullInt64
	var createdAt, updatedAt int64

	err := sc.Scan(
		&doc.ID, &doc.Path, &doc.Title, &doc.ContentHash,
		&sourceModifiedAt, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	doc.SourceModifiedAt = unixPtr(sourceModifiedAt)
	doc.CreatedAt = time.Unix(createdAt, 0)
	doc.UpdatedAt = time.Unix(updatedAt, 0)
	return &doc, nil
}
