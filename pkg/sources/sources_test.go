package sources

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dartungar/digital-butler-sub001/pkg/reconcile"
)

var testLogger = zerolog.New(os.Stdout).Level(zerolog.Disabled)

func TestJournalSource_Fetch(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "2026-09-01.md"), []byte("slept well"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "2026-08-31.md"), []byte("long day"), 0o644))
	// Non-journal files are ignored, not errors.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "scratch.md"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "2026-09-01.txt"), []byte("x"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "archive"), 0o755))

	src := NewJournalSource(dir, time.Second, testLogger)
	cands, err := src.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, cands, 2)

	byKey := make(map[string]reconcile.Candidate)
	for _, c := range cands {
		require.NotNil(t, c.Record.ExternalKey)
		byKey[*c.Record.ExternalKey] = c
	}

	c, ok := byKey["2026-09-01"]
	require.True(t, ok)
	assert.Equal(t, SourceKindJournal, c.Record.SourceKind)
	assert.Equal(t, "slept well", c.Record.Body)
	assert.Equal(t, reconcile.PolicyFreshness, c.Policy)
	require.NotNil(t, c.Record.RelevanceAt)
	assert.Equal(t, 2026, c.Record.RelevanceAt.Year())
	require.NotNil(t, c.Record.SourceModifiedAt)
	assert.Equal(t, *c.Record.SourceModifiedAt, c.Record.SourceModifiedAt.Truncate(time.Second))
}

func TestJournalSource_MissingDir(t *testing.T) {
	src := NewJournalSource(filepath.Join(t.TempDir(), "nope"), time.Second, testLogger)
	cands, err := src.Fetch(context.Background())
	require.NoError(t, err)
	assert.Empty(t, cands)
}

func TestJournalSource_CancelledContext(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "2026-09-01.md"), []byte("x"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	src := NewJournalSource(dir, time.Second, testLogger)
	_, err := src.Fetch(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFeedSource_Fetch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "calendar.json")
	feed := `[
		{"external_key": "evt-1", "title": "Dentist", "body": "Checkup", "category": "health", "relevance_at": "2026-09-03T14:00:00Z"},
		{"title": "Untracked reminder"}
	]`
	require.NoError(t, os.WriteFile(path, []byte(feed), 0o644))

	src := NewFeedSource(path, "calendar", testLogger)
	assert.Equal(t, "calendar", src.Name())

	cands, err := src.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, cands, 2)

	first := cands[0]
	assert.Equal(t, reconcile.PolicyUpsert, first.Policy)
	assert.Equal(t, "calendar", first.Record.SourceKind)
	require.NotNil(t, first.Record.ExternalKey)
	assert.Equal(t, "evt-1", *first.Record.ExternalKey)
	require.NotNil(t, first.Record.RelevanceAt)
	assert.Equal(t, time.Date(2026, 9, 3, 14, 0, 0, 0, time.UTC), first.Record.RelevanceAt.UTC())

	// A keyless item is valid: it just cannot be updated later.
	assert.Nil(t, cands[1].Record.ExternalKey)
}

func TestFeedSource_SchemaViolation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	// Item missing the required title.
	require.NoError(t, os.WriteFile(path, []byte(`[{"body": "no title"}]`), 0o644))

	src := NewFeedSource(path, "notes", testLogger)
	_, err := src.Fetch(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "schema validation")
}

func TestFeedSource_BadTimestampSkipsItem(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feed.json")
	// A date without a time component passes the schema's date-time
	// format check but is not a full RFC 3339 timestamp.
	feed := `[
		{"title": "Good", "relevance_at": "2026-09-03T14:00:00Z"},
		{"title": "Bad", "relevance_at": "2026-09-03"}
	]`
	require.NoError(t, os.WriteFile(path, []byte(feed), 0o644))

	src := NewFeedSource(path, "notes", testLogger)
	cands, err := src.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, cands, 1)
	assert.Equal(t, "Good", cands[0].Record.Title)
}

func TestFeedSource_MissingFile(t *testing.T) {
	src := NewFeedSource(filepath.Join(t.TempDir(), "nope.json"), "notes", testLogger)
	cands, err := src.Fetch(context.Background())
	require.NoError(t, err)
	assert.Empty(t, cands)
}
