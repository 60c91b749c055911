package sources

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/dartungar/digital-butler-sub001/pkg/reconcile"
	"github.com/dartungar/digital-butler-sub001/pkg/store"
)

// SourceKindJournal is the source kind for daily journal entries.
const SourceKindJournal = "journal"

const journalDateLayout = "2006-01-02"

// JournalSource reads a directory of daily journal files named
// YYYY-MM-DD.md. Each file becomes one freshness-gated candidate whose
// natural key is the date, so a stale re-read never overwrites an entry
// edited since.
type JournalSource struct {
	dir         string
	granularity time.Duration
	logger      zerolog.Logger
}

// NewJournalSource creates a journal source over dir.
func NewJournalSource(dir string, granularity time.Duration, logger zerolog.Logger) *JournalSource {
	if granularity <= 0 {
		granularity = time.Second
	}
	return &JournalSource{
		dir:         dir,
		granularity: granularity,
		logger:      logger.With().Str("component", "journal-source").Logger(),
	}
}

func (s *JournalSource) Name() string {
	return SourceKindJournal
}

func (s *JournalSource) Fetch(ctx context.Context) ([]reconcile.Candidate, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var candidates []reconcile.Candidate
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if entry.IsDir() || !strings.HasSuffix(strings.ToLower(entry.Name()), ".md") {
			continue
		}

		dateStr := strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name()))
		day, err := time.ParseInLocation(journalDateLayout, dateStr, time.Local)
		if err != nil {
			s.logger.Debug().Str("file", entry.Name()).Msg("Skipping non-journal file")
			continue
		}

		info, err := entry.Info()
		if err != nil {
			s.logger.Warn().Err(err).Str("file", entry.Name()).Msg("Failed to stat journal file")
			continue
		}

		body, err := os.ReadFile(filepath.Join(s.dir, entry.Name()))
		if err != nil {
			s.logger.Warn().Err(err).Str("file", entry.Name()).Msg("Failed to read journal file")
			continue
		}

		key := dateStr
		relevance := day
		modified := info.ModTime().Truncate(s.granularity)

		candidates = append(candidates, reconcile.Candidate{
			Record: store.Record{
				SourceKind:       SourceKindJournal,
				ExternalKey:      &key,
				Title:            dateStr,
				Body:             string(body),
				Category:         "journal",
				RelevanceAt:      &relevance,
				SourceModifiedAt: &modified,
			},
			Policy: reconcile.PolicyFreshness,
		})
	}

	return candidates, nil
}
