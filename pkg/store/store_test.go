package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	logger := zerolog.New(os.Stdout).Level(zerolog.Disabled)

	s, err := Open(dbPath, logger)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpen_InvalidPath(t *testing.T) {
	logger := zerolog.New(os.Stdout).Level(zerolog.Disabled)

	s, err := Open("", logger)
	assert.Error(t, err)
	assert.Nil(t, s)
}

func TestOpen_MigrationsIdempotent(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	logger := zerolog.New(os.Stdout).Level(zerolog.Disabled)

	s, err := Open(dbPath, logger)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	// Reopening must not re-apply or fail.
	s, err = Open(dbPath, logger)
	require.NoError(t, err)
	defer s.Close()

	var n int
	require.NoError(t, s.db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&n))
	assert.Equal(t, len(migrations), n)
}

func TestRecord_InsertAndGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	key := "evt-1"
	when := time.Date(2026, 8, 30, 14, 0, 0, 0, time.UTC)
	rec := &Record{
		SourceKind:  "calendar",
		ExternalKey: &key,
		Title:       "Dentist",
		Body:        "Annual checkup",
		Category:    "health",
		RelevanceAt: &when,
	}
	require.NoError(t, s.InsertRecord(ctx, rec))
	require.NotEmpty(t, rec.ID)

	got, err := s.GetRecord(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "Dentist", got.Title)
	assert.Equal(t, "calendar", got.SourceKind)
	require.NotNil(t, got.ExternalKey)
	assert.Equal(t, "evt-1", *got.ExternalKey)
	require.NotNil(t, got.RelevanceAt)
	assert.True(t, got.RelevanceAt.Equal(when))
	assert.False(t, got.CreatedAt.IsZero())

	byIdentity, err := s.GetRecordByIdentity(ctx, "calendar", "evt-1")
	require.NoError(t, err)
	assert.Equal(t, rec.ID, byIdentity.ID)
}

func TestRecord_GetMissing(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.GetRecord(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.GetRecordByIdentity(ctx, "calendar", "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRecord_IdentityUnique(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	key := "evt-1"
	require.NoError(t, s.InsertRecord(ctx, &Record{SourceKind: "calendar", ExternalKey: &key, Title: "a"}))

	err := s.InsertRecord(ctx, &Record{SourceKind: "calendar", ExternalKey: &key, Title: "b"})
	assert.Error(t, err)

	// Records without an external key are never deduplicated.
	require.NoError(t, s.InsertRecord(ctx, &Record{SourceKind: "note", Body: "one"}))
	require.NoError(t, s.InsertRecord(ctx, &Record{SourceKind: "note", Body: "two"}))

	n, err := s.CountRecords(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestRecord_Update(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	key := "evt-1"
	rec := &Record{SourceKind: "calendar", ExternalKey: &key, Title: "before"}
	require.NoError(t, s.InsertRecord(ctx, rec))

	rec.Title = "after"
	rec.UpdatedAt = rec.UpdatedAt.Add(time.Hour)
	require.NoError(t, s.UpdateRecord(ctx, rec))

	got, err := s.GetRecord(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "after", got.Title)
	assert.True(t, got.UpdatedAt.After(got.CreatedAt))

	missing := &Record{ID: "nope", UpdatedAt: time.Now()}
	assert.ErrorIs(t, s.UpdateRecord(ctx, missing), ErrNotFound)
}

func TestRecord_ListByRelevance(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		when := base.Add(time.Duration(i) * time.Hour)
		require.NoError(t, s.InsertRecord(ctx, &Record{
			SourceKind:  "calendar",
			Body:        "x",
			RelevanceAt: &when,
		}))
	}
	// A timeless record must never show up in a window query.
	require.NoError(t, s.InsertRecord(ctx, &Record{SourceKind: "note", Body: "timeless"}))

	got, err := s.ListRecordsByRelevance(ctx, base.Add(time.Hour), base.Add(4*time.Hour), 0)
	require.NoError(t, err)
	require.Len(t, got, 3)
	for i := 1; i < len(got); i++ {
		assert.False(t, got[i].RelevanceAt.Before(*got[i-1].RelevanceAt))
	}
}

func TestRecord_SameContent(t *testing.T) {
	when := time.Now()
	a := &Record{Title: "t", Body: "b", Category: "c", RelevanceAt: &when}

	same := *a
	assert.True(t, a.SameContent(&same))

	differentBody := *a
	differentBody.Body = "other"
	assert.False(t, a.SameContent(&differentBody))

	noRelevance := *a
	noRelevance.RelevanceAt = nil
	assert.False(t, a.SameContent(&noRelevance))
}
