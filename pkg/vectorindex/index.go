// Package vectorindex stores one embedding per chunk in a sqlite-vec
// virtual table and answers nearest-neighbor queries by cosine distance.
//
// Availability is a capability decided once at construction time by
// probing the loaded extension; it is never rediscovered by catching
// failures per call. Chunk ids are normalized to lowercase at every write
// and read boundary so no comparison ever needs to be case-insensitive.
package vectorindex

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	"github.com/rs/zerolog"
)

func init() {
	// Auto-register sqlite-vec for every subsequent sqlite3 connection.
	sqlite_vec.Auto()
}

var (
	// ErrIndexUnavailable is returned when vector search cannot run at
	// all, as opposed to running and matching nothing.
	ErrIndexUnavailable = errors.New("vector index unavailable")

	// ErrDimensionMismatch is returned when an embedding's shape does not
	// match the index's configured dimensionality.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)

// Match is one search hit: a chunk id and its similarity score in [0, 1],
// where 1 means an identical direction.
type Match struct {
	ChunkID string
	Score   float64
}

// Index wraps the chunk_vectors virtual table. It shares the content
// store's database handle so ingestion can cover both in one transaction.
type Index struct {
	db        *sql.DB
	dim       int
	available bool
	logger    zerolog.Logger
}

// New probes the sqlite-vec extension and, when present, ensures the
// vector table exists for the configured dimensionality. A missing
// extension is not a construction error: the index is returned with
// Available() == false and every search fails with ErrIndexUnavailable.
func New(db *sql.DB, dim int, logger zerolog.Logger) (*Index, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("dimensionality must be positive, got %d", dim)
	}

	ix := &Index{
		db:     db,
		dim:    dim,
		logger: logger.With().Str("component", "vectorindex").Logger(),
	}

	var version string
	if err := db.QueryRow("SELECT vec_version()").Scan(&version); err != nil {
		ix.logger.Warn().Err(err).Msg("sqlite-vec extension not loaded, search disabled")
		return ix, nil
	}

	schema := fmt.Sprintf(`
		CREATE VIRTUAL TABLE IF NOT EXISTS chunk_vectors USING vec0(
			chunk_id TEXT PRIMARY KEY,
			embedding float[%d] distance_metric=cosine
		)`, dim)
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to create vector table: %w", err)
	}

	ix.available = true
	ix.logger.Debug().Str("vec_version", version).Int("dim", dim).Msg("Vector index ready")
	return ix, nil
}

// Available reports whether vector search is usable in this deployment.
func (ix *Index) Available() bool {
	return ix.available
}

// Dimension returns the configured embedding dimensionality.
func (ix *Index) Dimension() int {
	return ix.dim
}

// InsertTx stores a chunk's embedding inside tx. The vector must match the
// configured dimensionality exactly; anything else fails the insert.
func (ix *Index) InsertTx(ctx context.Context, tx *sql.Tx, chunkID string, vec []float32) error {
	if !ix.available {
		return ErrIndexUnavailable
	}
	if len(vec) != ix.dim {
		return fmt.Errorf("%w: got %d elements, index configured for %d", ErrDimensionMismatch, len(vec), ix.dim)
	}

	_, err := tx.ExecContext(ctx,
		"INSERT OR REPLACE INTO chunk_vectors (chunk_id, embedding) VALUES (?, ?)",
		normalizeID(chunkID), encodeVector(vec))
	if err != nil {
		return fmt.Errorf("failed to insert embedding: %w", err)
	}
	return nil
}

// DeleteTx removes a chunk's embedding inside tx. Deleting an id with no
// entry is a no-op.
func (ix *Index) DeleteTx(ctx context.Context, tx *sql.Tx, chunkID string) error {
	if !ix.available {
		return ErrIndexUnavailable
	}
	if _, err := tx.ExecContext(ctx,
		"DELETE FROM chunk_vectors WHERE chunk_id = ?", normalizeID(chunkID)); err != nil {
		return fmt.Errorf("failed to delete embedding: %w", err)
	}
	return nil
}

// Vector reads a stored embedding back, validating the persisted blob.
func (ix *Index) Vector(ctx context.Context, chunkID string) ([]float32, error) {
	if !ix.available {
		return nil, ErrIndexUnavailable
	}

	var blob []byte
	err := ix.db.QueryRowContext(ctx,
		"SELECT embedding FROM chunk_vectors WHERE chunk_id = ?", normalizeID(chunkID)).Scan(&blob)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("no embedding for chunk %s", chunkID)
	}
	if err != nil {
		return nil, err
	}
	return decodeVector(blob, ix.dim)
}

// Search returns up to topK chunks ranked by ascending cosine distance,
// reported as similarity scores (score = 1 - distance/2). minScore is
// translated to a maximum distance before querying; to compensate for
// hits lost to that filter the index is asked for at least 2*topK
// candidates first. An impossible minScore yields an empty result, not an
// error.
func (ix *Index) Search(ctx context.Context, query []float32, topK int, minScore float64) ([]Match, error) {
	if !ix.available {
		return nil, ErrIndexUnavailable
	}
	if len(query) != ix.dim {
		return nil, fmt.Errorf("%w: query has %d elements, index configured for %d", ErrDimensionMismatch, len(query), ix.dim)
	}
	if topK <= 0 {
		topK = 10
	}

	maxDistance := 2 * (1 - minScore)
	fetch := 2 * topK

	rows, err := ix.db.QueryContext(ctx, `
		SELECT chunk_id, vec_distance_cosine(embedding, ?) AS distance
		FROM chunk_vectors
		ORDER BY distance ASC
		LIMIT ?`,
		encodeVector(query), fetch)
	if err != nil {
		return nil, fmt.Errorf("vector query failed: %w", err)
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var chunkID string
		var distance float64
		if err := rows.Scan(&chunkID, &distance); err != nil {
			return nil, err
		}
		if distance > maxDistance {
			continue
		}
		matches = append(matches, Match{
			ChunkID: normalizeID(chunkID),
			Score:   1 - distance/2,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Rows arrive distance-ascending already; the sort keeps that order
	// stable after filtering.
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

// Count returns the number of stored embeddings.
func (ix *Index) Count(ctx context.Context) (int, error) {
	if !ix.available {
		return 0, ErrIndexUnavailable
	}
	var n int
	err := ix.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM chunk_vectors").Scan(&n)
	return n, err
}

// normalizeID maps a chunk identifier to its canonical lowercase textual
// form. Applied at every boundary so the store join never has to be
// case-insensitive.
func normalizeID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}
