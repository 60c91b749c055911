package butler

import (
	"context"
	"net/http"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/dartungar/digital-butler-sub001/internal/observability"
)

// Daemon runs the butler continuously: periodic syncs on a cron schedule,
// immediate syncs when watched files change, and an optional scheduled
// digest.
//
// The core itself is safe to call concurrently for distinct documents;
// the "one sync run at a time" constraint is this daemon's policy,
// enforced with its own semaphore rather than assumed by the core.
type Daemon struct {
	butler   *Butler
	logger   zerolog.Logger
	cron     *cron.Cron
	watcher  *fileWatcher
	syncGate chan struct{}
	dirtyCh  chan struct{}
}

// NewDaemon wraps a butler in scheduling and watching.
func NewDaemon(b *Butler, logger zerolog.Logger) *Daemon {
	return &Daemon{
		butler:   b,
		logger:   logger.With().Str("component", "daemon").Logger(),
		cron:     cron.New(),
		syncGate: make(chan struct{}, 1),
		dirtyCh:  make(chan struct{}, 1),
	}
}

// Run blocks until ctx is cancelled.
func (d *Daemon) Run(ctx context.Context) error {
	cfg := d.butler.cfg

	if cfg.JournalDir != "" || cfg.NotesDir != "" {
		watcher, err := newFileWatcher(d.logger, d.markDirty)
		if err != nil {
			return err
		}
		d.watcher = watcher
		defer watcher.stop()

		for _, dir := range []string{cfg.JournalDir, cfg.NotesDir} {
			if dir == "" {
				continue
			}
			if err := watcher.watch(dir); err != nil {
				d.logger.Warn().Err(err).Str("dir", dir).Msg("Failed to watch directory")
			}
		}
	}

	if cfg.Metrics.Addr != "" {
		srv := d.startMetricsServer(cfg.Metrics.Addr)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	if cfg.Sync.Schedule != "" {
		if _, err := d.cron.AddFunc(cfg.Sync.Schedule, func() { d.runSync(ctx) }); err != nil {
			return err
		}
	}
	if cfg.Digest.Enabled && cfg.Digest.Schedule != "" {
		if _, err := d.cron.AddFunc(cfg.Digest.Schedule, func() { d.runDigest(ctx) }); err != nil {
			return err
		}
	}

	d.cron.Start()
	defer d.cron.Stop()

	d.logger.Info().Str("schedule", cfg.Sync.Schedule).Msg("Daemon started")

	// Initial sync so a fresh start does not wait for the schedule.
	d.runSync(ctx)

	for {
		select {
		case <-d.dirtyCh:
			d.runSync(ctx)
		case <-ctx.Done():
			d.logger.Info().Msg("Daemon stopping")
			return ctx.Err()
		}
	}
}

// startMetricsServer serves /metrics and /healthz for scrapers while the
// daemon runs.
func (d *Daemon) startMetricsServer(addr string) *http.Server {
	srv := &http.Server{Addr: addr, Handler: metricsMux()}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			d.logger.Error().Err(err).Str("addr", addr).Msg("Metrics server error")
		}
	}()

	d.logger.Info().Str("addr", addr).Msg("Metrics server listening")
	return srv
}

func metricsMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.MetricsHandler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	return mux
}

func (d *Daemon) markDirty() {
	select {
	case d.dirtyCh <- struct{}{}:
	default:
	}
}

// runSync executes one sync run, skipping if another is already in
// flight.
func (d *Daemon) runSync(ctx context.Context) {
	select {
	case d.syncGate <- struct{}{}:
		defer func() { <-d.syncGate }()
	default:
		d.logger.Debug().Msg("Sync already in progress, skipping")
		return
	}

	if _, err := d.butler.SyncAll(ctx); err != nil && ctx.Err() == nil {
		d.logger.Error().Err(err).Msg("Sync run failed")
	}
}

func (d *Daemon) runDigest(ctx context.Context) {
	text, err := d.butler.Digest(ctx, time.Now())
	if err != nil {
		d.logger.Warn().Err(err).Msg("Digest run failed")
		return
	}
	d.logger.Info().Str("digest", text).Msg("Daily digest")
}
