package observability

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsHandler_ServesRecordedSeries(t *testing.T) {
	RecordSyncRun("ok", 250*time.Millisecond)
	RecordReconciled("added", 3)
	RecordDocumentSync("created")
	RecordSearch("ok", 10*time.Millisecond)
	SetIndexedChunks(42)

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	MetricsHandler().ServeHTTP(rec, req)

	require.Equal(t, 200, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `butler_sync_runs_total{status="ok"}`)
	assert.Contains(t, body, `butler_records_reconciled_total{outcome="added"}`)
	assert.Contains(t, body, `butler_documents_synced_total{outcome="created"}`)
	assert.Contains(t, body, `butler_searches_total{status="ok"}`)
	assert.Contains(t, body, "butler_search_duration_seconds")
	assert.Contains(t, body, "butler_indexed_chunks 42")
}

func TestEnsureRegistered_Idempotent(t *testing.T) {
	// A second registration pass must not panic on duplicate collectors.
	EnsureRegistered()
	EnsureRegistered()
}
