package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Record is a stored unit of personal context: a calendar event, an ad-hoc
// note, a journal day. Identity is (SourceKind, ExternalKey) when an
// external key is present; records without one are never deduplicated.
type Record struct {
	ID               string
	SourceKind       string
	ExternalKey      *string
	Title            string
	Body             string
	Category         string
	RelevanceAt      *time.Time // nil means timeless
	SourceModifiedAt *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// SameContent reports whether the observable fields (title, body,
// relevance, category) match. Identity and audit timestamps are excluded.
func (r *Record) SameContent(other *Record) bool {
	return r.Title == other.Title &&
		r.Body == other.Body &&
		r.Category == other.Category &&
		equalTime(r.RelevanceAt, other.RelevanceAt)
}

func equalTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

// InsertRecord inserts a new record. A missing ID is generated; zero audit
// timestamps default to now.
func (s *Store) InsertRecord(ctx context.Context, rec *Record) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	now := time.Now()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = rec.CreatedAt
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO records
			(id, source_kind, external_key, title, body, category,
			 relevance_at, source_modified_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.SourceKind, nullString(rec.ExternalKey),
		rec.Title, rec.Body, rec.Category,
		nullUnix(rec.RelevanceAt), nullUnix(rec.SourceModifiedAt),
		rec.CreatedAt.Unix(), rec.UpdatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert record: %w", err)
	}
	return nil
}

// UpdateRecord rewrites the mutable fields of the record identified by
// rec.ID. Identity and created_at are never touched; updated_at is written
// from rec.UpdatedAt so callers control whether an audit bump happens.
func (s *Store) UpdateRecord(ctx context.Context, rec *Record) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE records
		SET title = ?, body = ?, category = ?,
			relevance_at = ?, source_modified_at = ?, updated_at = ?
		WHERE id = ?`,
		rec.Title, rec.Body, rec.Category,
		nullUnix(rec.RelevanceAt), nullUnix(rec.SourceModifiedAt),
		rec.UpdatedAt.Unix(), rec.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update record: %w", err)
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

// GetRecord looks a record up by internal id.
func (s *Store) GetRecord(ctx context.Context, id string) (*Record, error) {
	row := s.db.QueryRowContext(ctx, recordSelect+" WHERE id = ?", id)
	return scanRecord(row)
}

// GetRecordByIdentity looks a record up by (sourceKind, externalKey).
func (s *Store) GetRecordByIdentity(ctx context.Context, sourceKind, externalKey string) (*Record, error) {
	row := s.db.QueryRowContext(ctx,
		recordSelect+" WHERE source_kind = ? AND external_key = ?",
		sourceKind, externalKey)
	return scanRecord(row)
}

// ListRecordsByRelevance returns records whose relevance timestamp falls in
// [from, to), ordered by relevance ascending. Timeless records are excluded.
func (s *Store) ListRecordsByRelevance(ctx context.Context, from, to time.Time, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		recordSelect+`
		WHERE relevance_at IS NOT NULL AND relevance_at >= ? AND relevance_at < ?
		ORDER BY relevance_at ASC
		LIMIT ?`,
		from.Unix(), to.Unix(), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		rec, err := scanRecordRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

// CountRecords returns the total number of stored records.
func (s *Store) CountRecords(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM records").Scan(&n)
	return n, err
}

const recordSelect = `
	SELECT id, source_kind, external_key, title, body, category,
		relevance_at, source_modified_at, created_at, updated_at
	FROM records`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row *sql.Row) (*Record, error) {
	rec, err := scanRecordFrom(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return rec, err
}

func scanRecordRows(rows *sql.Rows) (*Record, error) {
	return scanRecordFrom(rows)
}

func scanRecordFrom(sc rowScanner) (*Record, error) {
	var rec Record
	var externalKey sql.NullString
	var relevanceAt, sourceModifiedAt sql.NullInt64
	var createdAt, updatedAt int64

	err := sc.Scan(
		&rec.ID, &rec.SourceKind, &externalKey,
		&rec.Title, &rec.Body, &rec.Category,
		&relevanceAt, &sourceModifiedAt, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if externalKey.Valid {
		rec.ExternalKey = &externalKey.String
	}
	rec.RelevanceAt = unixPtr(relevanceAt)
	rec.SourceModifiedAt = unixPtr(sourceModifiedAt)
	rec.CreatedAt = time.Unix(createdAt, 0)
	rec.UpdatedAt = time.Unix(updatedAt, 0)
	return &rec, nil
}

func nullString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func nullUnix(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Unix()
}

func unixPtr(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := time.Unix(v.Int64, 0)
	return &t
}
