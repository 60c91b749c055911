package butler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dartungar/digital-butler-sub001/internal/observability"
	"github.com/dartungar/digital-butler-sub001/pkg/store"
	"github.com/dartungar/digital-butler-sub001/pkg/vectorindex"
)

// SearchResult is one retrieval hit joined back to its chunk and document.
type SearchResult struct {
	ChunkID       string
	DocumentPath  string
	DocumentTitle string
	Content       string
	StartLine     int
	EndLine       int
	Score         float64
}

// Search embeds the query, runs the nearest-neighbor search and joins the
// hits back to chunk and document metadata. An unusable index surfaces as
// vectorindex.ErrIndexUnavailable, never as an empty result, so callers
// can tell "no match" from "cannot search".
func (b *Butler) Search(ctx context.Context, query string, topK int, minScore float64) ([]SearchResult, error) {
	start := time.Now()

	if !b.index.Available() || b.embedder == nil {
		observability.RecordSearch("unavailable", time.Since(start))
		return nil, vectorindex.ErrIndexUnavailable
	}
	if query == "" {
		return nil, nil
	}
	if topK <= 0 {
		topK = b.cfg.Search.TopK
	}

	vecs, err := b.embedder.Embed(ctx, []string{query})
	if err != nil {
		observability.RecordSearch("failed", time.Since(start))
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	matches, err := b.index.Search(ctx, vecs[0], topK, minScore)
	if err != nil {
		observability.RecordSearch("failed", time.Since(start))
		return nil, err
	}

	results := make([]SearchResult, 0, len(matches))
	for _, m := range matches {
		chunk, doc, err := b.store.GetChunkWithDocument(ctx, m.ChunkID)
		if errors.Is(err, store.ErrNotFound) {
			// An index entry without a chunk row means a replace cycle
			// raced this read; the hit is simply dropped.
			b.logger.Warn().Str("chunk", m.ChunkID).Msg("Index hit without a chunk row")
			continue
		}
		if err != nil {
			observability.RecordSearch("failed", time.Since(start))
			return nil, err
		}

		results = append(results, SearchResult{
			ChunkID:       chunk.ID,
			DocumentPath:  doc.Path,
			DocumentTitle: doc.Title,
			Content:       chunk.Content,
			StartLine:     chunk.StartLine,
			EndLine:       chunk.EndLine,
			Score:         m.Score,
		})
	}

	observability.RecordSearch("ok", time.Since(start))
	return results, nil
}
