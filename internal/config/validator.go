package config

import (
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"
)

var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Validate checks the configuration for values that would only fail later
// at an inconvenient time.
func (c *Config) Validate() error {
	if c.Embedding.Provider != "" && c.Embedding.Provider != "openai" && c.Embedding.Provider != "none" {
		return fmt.Errorf("unknown embedding provider %q", c.Embedding.Provider)
	}
	if c.Embedding.Provider == "openai" && c.Embedding.Dimension <= 0 {
		return fmt.Errorf("embedding dimension must be positive, got %d", c.Embedding.Dimension)
	}
	if c.Embedding.Provider == "openai" && c.Embedding.APIKey != "" &&
		!strings.HasPrefix(c.Embedding.APIKey, "sk-") {
		return fmt.Errorf("invalid OpenAI API key format (should start with sk-)")
	}

	if c.Search.TopK < 0 {
		return fmt.Errorf("search top_k cannot be negative")
	}
	if c.Search.MinScore < 0 || c.Search.MinScore > 1 {
		return fmt.Errorf("search min_score must be in [0, 1], got %v", c.Search.MinScore)
	}

	if c.Sync.Schedule != "" {
		if _, err := cronParser.Parse(c.Sync.Schedule); err != nil {
			return fmt.Errorf("invalid sync schedule: %w", err)
		}
	}
	if c.Digest.Enabled {
		if c.Digest.APIKey == "" {
			return fmt.Errorf("digest enabled but no Anthropic API key configured")
		}
		if !strings.HasPrefix(c.Digest.APIKey, "sk-ant-") {
			return fmt.Errorf("invalid Anthropic API key format (should start with sk-ant-)")
		}
		if c.Digest.Schedule != "" {
			if _, err := cronParser.Parse(c.Digest.Schedule); err != nil {
				return fmt.Errorf("invalid digest schedule: %w", err)
			}
		}
	}

	for i, feed := range c.Feeds {
		if feed.Path == "" {
			return fmt.Errorf("feed %d has no path", i)
		}
		if feed.Kind == "" {
			return fmt.Errorf("feed %d has no kind", i)
		}
		if feed.Kind == "journal" {
			return fmt.Errorf("feed %d: kind %q is reserved for the journal source", i, feed.Kind)
		}
	}

	return nil
}
