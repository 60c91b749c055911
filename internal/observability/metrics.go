// Package observability owns the process-wide prometheus metrics.
// Registration happens once; recording helpers are safe from any
// goroutine.
package observability

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type butlerMetrics struct {
	syncRunsTotal     *prometheus.CounterVec
	recordsTotal      *prometheus.CounterVec
	documentsTotal    *prometheus.CounterVec
	searchTotal       *prometheus.CounterVec
	searchDuration    prometheus.Histogram
	syncDuration      prometheus.Histogram
	indexedChunkCount prometheus.Gauge
}

var (
	metricsOnce sync.Once
	metricsInst *butlerMetrics
)

func getMetrics() *butlerMetrics {
	metricsOnce.Do(func() {
		m := &butlerMetrics{
			syncRunsTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "butler_sync_runs_total",
					Help: "Total sync runs by status.",
				},
				[]string{"status"},
			),
			recordsTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "butler_records_reconciled_total",
					Help: "Total reconciled records by outcome.",
				},
				[]string{"outcome"},
			),
			documentsTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "butler_documents_synced_total",
					Help: "Total document sync results by outcome.",
				},
				[]string{"outcome"},
			),
			searchTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "butler_searches_total",
					Help: "Total similarity searches by status.",
				},
				[]string{"status"},
			),
			searchDuration: prometheus.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "butler_search_duration_seconds",
					Help:    "Similarity search duration in seconds.",
					Buckets: prometheus.DefBuckets,
				},
			),
			syncDuration: prometheus.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "butler_sync_duration_seconds",
					Help:    "Full sync run duration in seconds.",
					Buckets: prometheus.DefBuckets,
				},
			),
			indexedChunkCount: prometheus.NewGauge(
				prometheus.GaugeOpts{
					Name: "butler_indexed_chunks",
					Help: "Chunks currently indexed.",
				},
			),
		}

		prometheus.MustRegister(
			m.syncRunsTotal,
			m.recordsTotal,
			m.documentsTotal,
			m.searchTotal,
			m.searchDuration,
			m.syncDuration,
			m.indexedChunkCount,
		)

		metricsInst = m
	})
	return metricsInst
}

// EnsureRegistered forces metric registration; useful at startup so the
// first scrape sees every series.
func EnsureRegistered() {
	getMetrics()
}

// MetricsHandler returns the prometheus scrape handler, registering the
// metrics first so the initial scrape sees every series.
func MetricsHandler() http.Handler {
	EnsureRegistered()
	return promhttp.Handler()
}

// RecordSyncRun counts one sync run and its duration.
func RecordSyncRun(status string, d time.Duration) {
	m := getMetrics()
	m.syncRunsTotal.WithLabelValues(status).Inc()
	m.syncDuration.Observe(d.Seconds())
}

// RecordReconciled counts reconciled records by outcome.
func RecordReconciled(outcome string, n int) {
	getMetrics().recordsTotal.WithLabelValues(outcome).Add(float64(n))
}

// RecordDocumentSync counts one document sync by outcome.
func RecordDocumentSync(outcome string) {
	getMetrics().documentsTotal.WithLabelValues(outcome).Inc()
}

// RecordSearch counts one search and its duration.
func RecordSearch(status string, d time.Duration) {
	m := getMetrics()
	m.searchTotal.WithLabelValues(status).Inc()
	m.searchDuration.Observe(d.Seconds())
}

// SetIndexedChunks publishes the current chunk count.
func SetIndexedChunks(n int) {
	getMetrics().indexedChunkCount.Set(float64(n))
}
