// Package butler wires the content store, reconciler, ingestion pipeline
// and vector index into one service behind the CLI and the daemon.
package butler

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"

	"github.com/dartungar/digital-butler-sub001/internal/config"
	"github.com/dartungar/digital-butler-sub001/internal/observability"
	"github.com/dartungar/digital-butler-sub001/pkg/chunker"
	"github.com/dartungar/digital-butler-sub001/pkg/digest"
	"github.com/dartungar/digital-butler-sub001/pkg/embedding"
	"github.com/dartungar/digital-butler-sub001/pkg/ingest"
	"github.com/dartungar/digital-butler-sub001/pkg/reconcile"
	"github.com/dartungar/digital-butler-sub001/pkg/sources"
	"github.com/dartungar/digital-butler-sub001/pkg/store"
	"github.com/dartungar/digital-butler-sub001/pkg/vectorindex"
)

// Butler is the top-level service. Its methods are safe to call
// concurrently for different identities and documents; callers wanting a
// single sync in flight at a time gate that themselves (the daemon does).
type Butler struct {
	cfg        *config.Config
	store      *store.Store
	index      *vectorindex.Index
	pipeline   *ingest.Pipeline
	reconciler *reconcile.Reconciler
	sources    []sources.Source
	embedder   embedding.Provider
	summarizer *digest.Summarizer
	logger     zerolog.Logger
}

// New builds the full service from configuration.
func New(cfg *config.Config, logger zerolog.Logger) (*Butler, error) {
	observability.EnsureRegistered()

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	st, err := store.Open(cfg.DBPath(), logger)
	if err != nil {
		return nil, err
	}

	var embedder embedding.Provider
	if cfg.Embedding.Provider == "openai" && cfg.Embedding.APIKey != "" {
		embedder = embedding.NewOpenAIProvider(cfg.Embedding.APIKey, cfg.Embedding.Model)
	}

	dim := cfg.Embedding.Dimension
	if embedder != nil {
		dim = embedder.Dimension()
	}
	if dim <= 0 {
		dim = 1536
	}

	index, err := vectorindex.New(st.DB(), dim, logger)
	if err != nil {
		st.Close()
		return nil, err
	}

	pipeline, err := ingest.New(ingest.Config{
		Store:    st,
		Index:    index,
		Chunker:  chunker.New(0, 0),
		Embedder: embedder,
		Logger:   logger,
	})
	if err != nil {
		st.Close()
		return nil, err
	}

	b := &Butler{
		cfg:        cfg,
		store:      st,
		index:      index,
		pipeline:   pipeline,
		reconciler: reconcile.New(st, cfg.Granularity(), logger),
		embedder:   embedder,
		logger:     logger.With().Str("component", "butler").Logger(),
	}

	if cfg.JournalDir != "" {
		b.sources = append(b.sources,
			sources.NewJournalSource(cfg.JournalDir, cfg.Granularity(), logger))
	}
	for _, feed := range cfg.Feeds {
		b.sources = append(b.sources, sources.NewFeedSource(feed.Path, feed.Kind, logger))
	}

	if cfg.Digest.Enabled {
		b.summarizer = digest.NewSummarizer(cfg.Digest.APIKey, cfg.Digest.Model, logger)
	}

	return b, nil
}

// Store exposes the content store's read API.
func (b *Butler) Store() *store.Store {
	return b.store
}

// Index exposes the vector index, mainly for status reporting.
func (b *Butler) Index() *vectorindex.Index {
	return b.index
}

// Close releases the underlying database.
func (b *Butler) Close() error {
	return b.store.Close()
}

// SyncSummary aggregates one full sync run.
type SyncSummary struct {
	RunID            string
	RecordsAdded     int
	RecordsUpdated   int
	RecordsUnchanged int
	RecordErrors     int
	DocsCreated      int
	DocsUpdated      int
	DocsUnchanged    int
	DocsFailed       int
	Duration         time.Duration
}

// SyncAll runs every source through the reconciler and every note file
// through the ingestion pipeline. Failures are isolated per record and
// per document; the summary reports everything.
func (b *Butler) SyncAll(ctx context.Context) (*SyncSummary, error) {
	runID, err := gonanoid.New(8)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	summary := &SyncSummary{RunID: runID}
	logger := b.logger.With().Str("run", runID).Logger()
	logger.Info().Msg("Starting sync")

	for _, src := range b.sources {
		candidates, err := src.Fetch(ctx)
		if err != nil {
			logger.Warn().Err(err).Str("source", src.Name()).Msg("Source fetch failed")
			summary.RecordErrors++
			continue
		}

		res, err := b.reconciler.Reconcile(ctx, candidates)
		if err != nil {
			observability.RecordSyncRun("failed", time.Since(start))
			return summary, fmt.Errorf("reconcile %s: %w", src.Name(), err)
		}

		summary.RecordsAdded += res.Added
		summary.RecordsUpdated += res.Updated
		summary.RecordsUnchanged += res.Unchanged
		summary.RecordErrors += len(res.Errors)
	}

	if b.cfg.NotesDir != "" {
		if err := b.syncNotes(ctx, summary, logger); err != nil {
			observability.RecordSyncRun("failed", time.Since(start))
			return summary, err
		}
	}

	summary.Duration = time.Since(start)

	observability.RecordSyncRun("ok", summary.Duration)
	observability.RecordReconciled("added", summary.RecordsAdded)
	observability.RecordReconciled("updated", summary.RecordsUpdated)
	observability.RecordReconciled("unchanged", summary.RecordsUnchanged)
	if n, err := b.store.CountChunks(ctx); err == nil {
		observability.SetIndexedChunks(n)
	}

	logger.Info().
		Int("records_added", summary.RecordsAdded).
		Int("records_updated", summary.RecordsUpdated).
		Int("records_unchanged", summary.RecordsUnchanged).
		Int("record_errors", summary.RecordErrors).
		Int("docs_created", summary.DocsCreated).
		Int("docs_updated", summary.DocsUpdated).
		Int("docs_unchanged", summary.DocsUnchanged).
		Int("docs_failed", summary.DocsFailed).
		Dur("duration", summary.Duration).
		Msg("Sync completed")

	return summary, nil
}

// syncNotes walks the notes directory and syncs every markdown file,
// then prunes documents whose files are gone.
func (b *Butler) syncNotes(ctx context.Context, summary *SyncSummary, logger zerolog.Logger) error {
	seen := make(map[string]bool)

	err := filepath.WalkDir(b.cfg.NotesDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() || !strings.HasSuffix(strings.ToLower(d.Name()), ".md") {
			return nil
		}

		relPath, err := filepath.Rel(b.cfg.NotesDir, path)
		if err != nil {
			return err
		}
		seen[relPath] = true

		content, err := os.ReadFile(path)
		if err != nil {
			logger.Warn().Err(err).Str("file", relPath).Msg("Failed to read note")
			summary.DocsFailed++
			return nil
		}
		info, err := d.Info()
		if err != nil {
			logger.Warn().Err(err).Str("file", relPath).Msg("Failed to stat note")
			summary.DocsFailed++
			return nil
		}

		outcome, err := b.pipeline.SyncDocument(ctx, relPath, string(content), info.ModTime())
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			logger.Warn().Err(err).Str("file", relPath).Msg("Failed to sync note")
			summary.DocsFailed++
			observability.RecordDocumentSync("failed")
			return nil
		}

		switch outcome {
		case ingest.OutcomeCreated:
			summary.DocsCreated++
		case ingest.OutcomeUpdated:
			summary.DocsUpdated++
		case ingest.OutcomeUnchanged:
			summary.DocsUnchanged++
		}
		observability.RecordDocumentSync(string(outcome))
		return nil
	})
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to walk notes: %w", err)
	}

	// Prune documents for deleted files.
	docs, err := b.store.ListDocuments(ctx)
	if err != nil {
		return err
	}
	for _, doc := range docs {
		if seen[doc.Path] {
			continue
		}
		if err := b.pipeline.RemoveDocument(ctx, doc.Path); err != nil {
			logger.Warn().Err(err).Str("path", doc.Path).Msg("Failed to prune document")
		}
	}

	return nil
}

// Recent returns records whose relevance falls inside [from, to).
func (b *Butler) Recent(ctx context.Context, from, to time.Time, limit int) ([]store.Record, error) {
	return b.store.ListRecordsByRelevance(ctx, from, to, limit)
}

// Digest summarizes the records of one day.
func (b *Butler) Digest(ctx context.Context, day time.Time) (string, error) {
	if b.summarizer == nil {
		return "", errors.New("digest is not configured")
	}

	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	records, err := b.store.ListRecordsByRelevance(ctx, dayStart, dayStart.Add(24*time.Hour), 200)
	if err != nil {
		return "", err
	}
	return b.summarizer.Summarize(ctx, dayStart, records)
}

// Status is a snapshot of the stored corpus.
type Status struct {
	Records        int
	Documents      int
	Chunks         int
	IndexedChunks  int
	IndexAvailable bool
}

// Status reports store counts and index availability.
func (b *Butler) Status(ctx context.Context) (*Status, error) {
	st := &Status{IndexAvailable: b.index.Available()}

	var err error
	if st.Records, err = b.store.CountRecords(ctx); err != nil {
		return nil, err
	}
	if st.Documents, err = b.store.CountDocuments(ctx); err != nil {
		return nil, err
	}
	if st.Chunks, err = b.store.CountChunks(ctx); err != nil {
		return nil, err
	}
	if b.index.Available() {
		if st.IndexedChunks, err = b.index.Count(ctx); err != nil {
			return nil, err
		}
	}
	return st, nil
}
