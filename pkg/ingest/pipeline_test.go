package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dartungar/digital-butler-sub001/pkg/chunker"
	"github.com/dartungar/digital-butler-sub001/pkg/embedding"
	"github.com/dartungar/digital-butler-sub001/pkg/store"
	"github.com/dartungar/digital-butler-sub001/pkg/vectorindex"
)

const testDim = 8

func newTestPipeline(t *testing.T, embedder embedding.Provider) (*Pipeline, *store.Store, *vectorindex.Index) {
	t.Helper()

	logger := zerolog.New(os.Stdout).Level(zerolog.Disabled)
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	ix, err := vectorindex.New(st.DB(), testDim, logger)
	require.NoError(t, err)
	require.True(t, ix.Available())

	p, err := New(Config{
		Store:    st,
		Index:    ix,
		Chunker:  chunker.New(100, 200),
		Embedder: embedder,
		Logger:   logger,
	})
	require.NoError(t, err)
	return p, st, ix
}

// wrongDimProvider returns vectors that do not fit the index, which must
// roll the whole document sync back.
type wrongDimProvider struct{}

func (wrongDimProvider) Dimension() int { return 2 }

func (wrongDimProvider) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = []float32{1, 0}
	}
	return out, nil
}

// failingProvider simulates an embedding service outage.
type failingProvider struct{}

func (failingProvider) Dimension() int { return testDim }

func (failingProvider) Embed(context.Context, []string) ([][]float32, error) {
	return nil, fmt.Errorf("embedding service down")
}

func longText(paragraphs int, tag string) string {
	var b strings.Builder
	for i := 0; i < paragraphs; i++ {
		fmt.Fprintf(&b, "Paragraph %d (%s) with enough words to fill a chunk boundary comfortably.\n\n", i, tag)
	}
	return b.String()
}

func TestSyncDocument_CreateThenUnchanged(t *testing.T) {
	p, st, ix := newTestPipeline(t, embedding.NewMockProvider(testDim))
	ctx := context.Background()
	text := longText(10, "v1")

	outcome, err := p.SyncDocument(ctx, "notes/a.md", text, time.Now())
	require.NoError(t, err)
	assert.Equal(t, OutcomeCreated, outcome)

	doc, err := st.GetDocumentByPath(ctx, "notes/a.md")
	require.NoError(t, err)
	chunks, err := st.GetChunks(ctx, doc.ID)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	indexed, err := ix.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(chunks), indexed)

	// Byte-identical text performs zero chunk or embedding writes.
	outcome, err = p.SyncDocument(ctx, "notes/a.md", text, time.Now())
	require.NoError(t, err)
	assert.Equal(t, OutcomeUnchanged, outcome)

	after, err := st.GetChunks(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, chunks, after, "unchanged sync must not touch chunks")
}

func TestSyncDocument_ReplaceCascades(t *testing.T) {
	p, st, ix := newTestPipeline(t, embedding.NewMockProvider(testDim))
	ctx := context.Background()

	_, err := p.SyncDocument(ctx, "notes/a.md", longText(10, "v1"), time.Now())
	require.NoError(t, err)

	doc, err := st.GetDocumentByPath(ctx, "notes/a.md")
	require.NoError(t, err)
	oldChunks, err := st.GetChunks(ctx, doc.ID)
	require.NoError(t, err)

	outcome, err := p.SyncDocument(ctx, "notes/a.md", longText(6, "v2"), time.Now())
	require.NoError(t, err)
	assert.Equal(t, OutcomeUpdated, outcome)

	newChunks, err := st.GetChunks(ctx, doc.ID)
	require.NoError(t, err)
	require.NotEmpty(t, newChunks)

	oldIDs := make(map[string]bool)
	for _, c := range oldChunks {
		oldIDs[c.ID] = true
	}
	for i, c := range newChunks {
		assert.Equal(t, i, c.Index)
		assert.False(t, oldIDs[c.ID], "old chunk ids must be gone")
		assert.Contains(t, c.Content, "v2")
	}

	// No vector entry may reference a deleted chunk id.
	indexed, err := ix.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(newChunks), indexed)
	for _, c := range oldChunks {
		_, err := ix.Vector(ctx, c.ID)
		assert.Error(t, err)
	}
}

func TestSyncDocument_EmbedderOutageDegrades(t *testing.T) {
	p, st, ix := newTestPipeline(t, failingProvider{})
	ctx := context.Background()

	outcome, err := p.SyncDocument(ctx, "notes/a.md", longText(8, "v1"), time.Now())
	require.NoError(t, err)
	assert.Equal(t, OutcomeCreated, outcome)

	doc, err := st.GetDocumentByPath(ctx, "notes/a.md")
	require.NoError(t, err)
	chunks, err := st.GetChunks(ctx, doc.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, chunks, "chunks exist without being searchable")

	indexed, err := ix.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, indexed)
}

func TestSyncDocument_DimensionMismatchRollsBack(t *testing.T) {
	p, st, _ := newTestPipeline(t, wrongDimProvider{})
	ctx := context.Background()

	_, err := p.SyncDocument(ctx, "notes/a.md", longText(8, "v1"), time.Now())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTransactionFailed)
	assert.ErrorIs(t, err, vectorindex.ErrDimensionMismatch)

	// The document was left exactly as before the call: absent.
	_, err = st.GetDocumentByPath(ctx, "notes/a.md")
	assert.ErrorIs(t, err, store.ErrNotFound)

	n, err := st.CountChunks(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestSyncDocument_RollbackKeepsPriorVersion(t *testing.T) {
	p, st, _ := newTestPipeline(t, embedding.NewMockProvider(testDim))
	ctx := context.Background()
	v1 := longText(8, "v1")

	_, err := p.SyncDocument(ctx, "notes/a.md", v1, time.Now())
	require.NoError(t, err)

	doc, err := st.GetDocumentByPath(ctx, "notes/a.md")
	require.NoError(t, err)
	before, err := st.GetChunks(ctx, doc.ID)
	require.NoError(t, err)

	// Swap in a provider whose vectors cannot be inserted.
	p.embedder = wrongDimProvider{}
	_, err = p.SyncDocument(ctx, "notes/a.md", longText(5, "v2"), time.Now())
	require.ErrorIs(t, err, ErrTransactionFailed)

	// Prior hash and chunk set survive untouched.
	got, err := st.GetDocumentByPath(ctx, "notes/a.md")
	require.NoError(t, err)
	assert.Equal(t, doc.ContentHash, got.ContentHash)

	after, err := st.GetChunks(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestSyncDocument_EmptyBody(t *testing.T) {
	p, st, _ := newTestPipeline(t, embedding.NewMockProvider(testDim))
	ctx := context.Background()

	outcome, err := p.SyncDocument(ctx, "notes/empty.md", "", time.Now())
	require.NoError(t, err)
	assert.Equal(t, OutcomeCreated, outcome)

	doc, err := st.GetDocumentByPath(ctx, "notes/empty.md")
	require.NoError(t, err)
	chunks, err := st.GetChunks(ctx, doc.ID)
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestRemoveDocument(t *testing.T) {
	p, st, ix := newTestPipeline(t, embedding.NewMockProvider(testDim))
	ctx := context.Background()

	_, err := p.SyncDocument(ctx, "notes/a.md", longText(6, "v1"), time.Now())
	require.NoError(t, err)

	require.NoError(t, p.RemoveDocument(ctx, "notes/a.md"))

	_, err = st.GetDocumentByPath(ctx, "notes/a.md")
	assert.ErrorIs(t, err, store.ErrNotFound)

	n, err := st.CountChunks(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	indexed, err := ix.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, indexed)
}

func TestDeriveTitle(t *testing.T) {
	assert.Equal(t, "My Note", deriveTitle("notes/a.md", "# My Note\n\nbody"))
	assert.Equal(t, "a", deriveTitle("notes/a.md", "no heading here"))
	assert.Equal(t, "a", deriveTitle("notes/a.md", ""))
}
