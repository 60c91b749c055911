package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Load reads the configuration file, applies defaults and environment
// overrides, and fills in data-dir-relative paths. A missing file yields
// the defaults rather than an error.
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		configPath = filepath.Join(home, ".butler", "butler.json")
	}

	cfg := DefaultConfig()

	data, err := os.ReadFile(configPath)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err == nil {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if cfg.DataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		cfg.DataDir = filepath.Join(home, ".butler")
	}
	if cfg.Logging.File == "" {
		cfg.Logging.File = filepath.Join(cfg.DataDir, "butler.log")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides lets secrets stay out of the config file.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("BUTLER_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("BUTLER_OPENAI_API_KEY"); v != "" {
		cfg.Embedding.APIKey = v
	}
	if v := os.Getenv("BUTLER_ANTHROPIC_API_KEY"); v != "" {
		cfg.Digest.APIKey = v
	}
	if v := os.Getenv("BUTLER_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// DBPath returns the SQLite database location.
func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, "butler.db")
}
