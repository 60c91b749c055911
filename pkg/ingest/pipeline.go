// Package ingest replaces a document's chunk set and vector entries as one
// atomic unit whenever its content hash changes.
package ingest

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dartungar/digital-butler-sub001/pkg/chunker"
	"github.com/dartungar/digital-butler-sub001/pkg/embedding"
	"github.com/dartungar/digital-butler-sub001/pkg/store"
	"github.com/dartungar/digital-butler-sub001/pkg/vectorindex"
)

// ErrTransactionFailed wraps any failure inside the atomic replace. The
// document is left exactly as it was before the call.
var ErrTransactionFailed = errors.New("document sync rolled back")

// Outcome describes what SyncDocument did.
type Outcome string

const (
	OutcomeCreated   Outcome = "created"
	OutcomeUpdated   Outcome = "updated"
	OutcomeUnchanged Outcome = "unchanged"
)

// Pipeline orchestrates chunking and vector index replacement for changed
// documents. The embedder is optional: without one (or when it is down)
// chunks are stored unsearchable, which is a valid state.
type Pipeline struct {
	store    *store.Store
	index    *vectorindex.Index
	chunker  *chunker.Chunker
	embedder embedding.Provider
	logger   zerolog.Logger
}

// Config holds pipeline collaborators.
type Config struct {
	Store    *store.Store
	Index    *vectorindex.Index
	Chunker  *chunker.Chunker
	Embedder embedding.Provider // optional
	Logger   zerolog.Logger
}

// New creates an ingestion pipeline.
func New(cfg Config) (*Pipeline, error) {
	if cfg.Store == nil {
		return nil, errors.New("store is required")
	}
	if cfg.Index == nil {
		return nil, errors.New("vector index is required")
	}
	if cfg.Chunker == nil {
		cfg.Chunker = chunker.New(0, 0)
	}
	return &Pipeline{
		store:    cfg.Store,
		index:    cfg.Index,
		chunker:  cfg.Chunker,
		embedder: cfg.Embedder,
		logger:   cfg.Logger.With().Str("component", "ingest").Logger(),
	}, nil
}

// SyncDocument reconciles one document against the store.
//
// When the content hash matches the stored one it returns unchanged and
// does no further work: no re-chunking, no embedding request, no index
// write. Otherwise the document row, its chunk set and its vector entries
// are replaced inside a single transaction; any failure rolls the whole
// thing back.
func (p *Pipeline) SyncDocument(ctx context.Context, path, text string, sourceModifiedAt time.Time) (Outcome, error) {
	sum := sha256.Sum256([]byte(text))
	hash := hex.EncodeToString(sum[:])

	existing, err := p.store.GetDocumentByPath(ctx, path)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return "", fmt.Errorf("failed to load document %s: %w", path, err)
	}
	if existing != nil && existing.ContentHash == hash {
		return OutcomeUnchanged, nil
	}

	chunks := p.chunker.Chunk(text)

	// Embeddings are fetched before the transaction opens so a slow or
	// failing provider never holds database locks. Provider outage
	// degrades to unsearchable chunks rather than failing the document.
	var vectors [][]float32
	if p.embedder != nil && p.index.Available() && len(chunks) > 0 {
		texts := make([]string, len(chunks))
		for i, c := range chunks {
			texts[i] = c.Text
		}
		vectors, err = p.embedder.Embed(ctx, texts)
		if err != nil {
			p.logger.Warn().Err(err).Str("path", path).
				Msg("Embedding failed, storing chunks without vectors")
			vectors = nil
		} else if len(vectors) != len(chunks) {
			p.logger.Warn().Int("chunks", len(chunks)).Int("vectors", len(vectors)).
				Str("path", path).Msg("Embedding count mismatch, storing chunks without vectors")
			vectors = nil
		}
	}

	now := time.Now()
	doc := store.Document{
		Path:        path,
		Title:       deriveTitle(path, text),
		ContentHash: hash,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if !sourceModifiedAt.IsZero() {
		t := sourceModifiedAt
		doc.SourceModifiedAt = &t
	}
	if existing != nil {
		doc.ID = existing.ID
		doc.CreatedAt = existing.CreatedAt
	} else {
		doc.ID = uuid.NewString()
	}

	err = p.store.WithTx(ctx, func(tx *sql.Tx) error {
		if err := p.store.UpsertDocumentTx(ctx, tx, &doc); err != nil {
			return err
		}

		// Vector entries go first so the index never references a chunk
		// row that is already gone.
		oldIDs, err := p.store.ChunkIDsTx(ctx, tx, doc.ID)
		if err != nil {
			return err
		}
		if p.index.Available() {
			for _, id := range oldIDs {
				if err := p.index.DeleteTx(ctx, tx, id); err != nil {
					return err
				}
			}
		}
		if err := p.store.DeleteDocumentChunksTx(ctx, tx, doc.ID); err != nil {
			return err
		}

		for i, c := range chunks {
			rec := store.Chunk{
				ID:         uuid.NewString(),
				DocumentID: doc.ID,
				Index:      c.Index,
				Content:    c.Text,
				StartLine:  c.StartLine,
				EndLine:    c.EndLine,
				CreatedAt:  now,
			}
			if err := p.store.InsertChunkTx(ctx, tx, &rec); err != nil {
				return err
			}
			if vectors != nil {
				if err := p.index.InsertTx(ctx, tx, rec.ID, vectors[i]); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrTransactionFailed, path, err)
	}

	if existing != nil {
		return OutcomeUpdated, nil
	}
	return OutcomeCreated, nil
}

// RemoveDocument deletes a document, its chunks and its vector entries in
// one transaction.
func (p *Pipeline) RemoveDocument(ctx context.Context, path string) error {
	doc, err := p.store.GetDocumentByPath(ctx, path)
	if err != nil {
		return err
	}

	err = p.store.WithTx(ctx, func(tx *sql.Tx) error {
		ids, err := p.store.ChunkIDsTx(ctx, tx, doc.ID)
		if err != nil {
			return err
		}
		if p.index.Available() {
			for _, id := range ids {
				if err := p.index.DeleteTx(ctx, tx, id); err != nil {
					return err
				}
			}
		}
		if err := p.store.DeleteDocumentChunksTx(ctx, tx, doc.ID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM documents WHERE id = ?", doc.ID); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrTransactionFailed, path, err)
	}
	return nil
}

// deriveTitle prefers the first markdown heading, falling back to the
// file name without extension.
func deriveTitle(path, text string) string {
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if strings.HasPrefix(trimmed, "#") {
			return strings.TrimSpace(strings.TrimLeft(trimmed, "# "))
		}
		break
	}
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
