package config

import "time"

// Config is the main butler configuration.
type Config struct {
	// DataDir holds the database and log files.
	DataDir string `json:"data_dir"`

	// JournalDir is the directory of YYYY-MM-DD.md journal files.
	JournalDir string `json:"journal_dir"`

	// NotesDir is the directory of long-form note files indexed for
	// semantic retrieval.
	NotesDir string `json:"notes_dir"`

	// Feeds are JSON exports written by external fetchers.
	Feeds []FeedConfig `json:"feeds"`

	Embedding EmbeddingConfig `json:"embedding"`
	Search    SearchConfig    `json:"search"`
	Sync      SyncConfig      `json:"sync"`
	Digest    DigestConfig    `json:"digest"`
	Logging   LoggingConfig   `json:"logging"`
	Metrics   MetricsConfig   `json:"metrics"`
}

// FeedConfig points at one exported feed file.
type FeedConfig struct {
	Path string `json:"path"`
	Kind string `json:"kind"` // becomes the records' source kind
}

// EmbeddingConfig selects the embedding provider.
type EmbeddingConfig struct {
	Provider  string `json:"provider"` // "openai" or "none"
	APIKey    string `json:"api_key"`
	Model     string `json:"model"`
	Dimension int    `json:"dimension"`
}

// SearchConfig holds default retrieval parameters.
type SearchConfig struct {
	TopK     int     `json:"top_k"`
	MinScore float64 `json:"min_score"`
}

// SyncConfig drives the daemon's schedules.
type SyncConfig struct {
	// Schedule is a cron expression for periodic full syncs.
	Schedule string `json:"schedule"`
	// FreshnessGranularity is the timestamp resolution used when
	// comparing source modification times, e.g. "1s" or "1m".
	FreshnessGranularity string `json:"freshness_granularity"`
}

// DigestConfig configures the daily digest.
type DigestConfig struct {
	Enabled  bool   `json:"enabled"`
	APIKey   string `json:"api_key"`
	Model    string `json:"model"`
	Schedule string `json:"schedule"` // cron expression
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `json:"level"`
	File       string `json:"file"`
	Pretty     bool   `json:"pretty"`
	MaxSizeMB  int    `json:"max_size_mb"`  // rotate the log file past this size
	MaxAgeDays int    `json:"max_age_days"` // prune rotated files older than this
}

// MetricsConfig exposes the prometheus scrape endpoint while the daemon
// runs. An empty address disables the listener.
type MetricsConfig struct {
	Addr string `json:"addr"`
}

// DefaultConfig returns a config with sensible defaults. Paths derived
// from the data dir are filled in by the loader.
func DefaultConfig() *Config {
	return &Config{
		Embedding: EmbeddingConfig{
			Provider:  "openai",
			Model:     "text-embedding-3-small",
			Dimension: 1536,
		},
		Search: SearchConfig{
			TopK:     10,
			MinScore: 0.3,
		},
		Sync: SyncConfig{
			Schedule:             "*/30 * * * *",
			FreshnessGranularity: "1s",
		},
		Digest: DigestConfig{
			Schedule: "0 21 * * *",
		},
		Logging: LoggingConfig{
			Level:      "info",
			MaxSizeMB:  50,
			MaxAgeDays: 14,
		},
		Metrics: MetricsConfig{
			Addr: "127.0.0.1:9091",
		},
	}
}

// Granularity parses the configured freshness granularity, defaulting to
// one second on absence or parse failure.
func (c *Config) Granularity() time.Duration {
	d, err := time.ParseDuration(c.Sync.FreshnessGranularity)
	if err != nil || d <= 0 {
		return time.Second
	}
	return d
}
