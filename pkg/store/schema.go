package store

import (
	"database/sql"
	"fmt"
	"time"
)

// migrations are additive-only. Existing rows get column defaults; a
// version is never rewritten in place.
var migrations = []string{
	// v1: base schema
	`
	CREATE TABLE IF NOT EXISTS records (
		id TEXT PRIMARY KEY,
		source_kind TEXT NOT NULL,
		external_key TEXT,
		title TEXT NOT NULL DEFAULT '',
		body TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL DEFAULT '',
		relevance_at INTEGER,
		source_modified_at INTEGER,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_records_identity
		ON records(source_kind, external_key)
		WHERE external_key IS NOT NULL;
	CREATE INDEX IF NOT EXISTS idx_records_relevance ON records(relevance_at);

	CREATE TABLE IF NOT EXISTS documents (
		id TEXT PRIMARY KEY,
		path TEXT NOT NULL UNIQUE,
		title TEXT NOT NULL DEFAULT '',
		content_hash TEXT NOT NULL,
		source_modified_at INTEGER,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS chunks (
		id TEXT PRIMARY KEY,
		document_id TEXT NOT NULL,
		chunk_index INTEGER NOT NULL,
		content TEXT NOT NULL,
		start_line INTEGER,
		end_line INTEGER,
		created_at INTEGER NOT NULL,
		FOREIGN KEY (document_id) REFERENCES documents(id) ON DELETE CASCADE,
		UNIQUE (document_id, chunk_index)
	);
	CREATE INDEX IF NOT EXISTS idx_chunks_document ON chunks(document_id);
	`,
}

// migrate applies any schema versions newer than the stored one.
func (s *Store) migrate() error {
	if _, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at INTEGER NOT NULL
		)`); err != nil {
		return err
	}

	var current sql.NullInt64
	if err := s.db.QueryRow("SELECT MAX(version) FROM schema_migrations").Scan(&current); err != nil {
		return err
	}

	for i, stmt := range migrations {
		version := i + 1
		if current.Valid && int64(version) <= current.Int64 {
			continue
		}

		tx, err := s.db.Begin()
		if err != nil {
			return err
		}
		if _, err := tx.Exec(stmt); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration v%d: %w", version, err)
		}
		if _, err := tx.Exec(
			"INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)",
			version, time.Now().Unix(),
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration v%d: %w", version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("migration v%d: %w", version, err)
		}

		s.logger.Debug().Int("version", version).Msg("Applied schema migration")
	}

	return nil
}
