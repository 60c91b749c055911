package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/xeipuuv/gojsonschema"

	"github.com/dartungar/digital-butler-sub001/pkg/reconcile"
	"github.com/dartungar/digital-butler-sub001/pkg/store"
)

// feedSchema validates an exported feed before any item is trusted.
// Exports come from fetchers outside this process (calendar dumps, note
// exports), so shape errors are expected input, not bugs.
const feedSchema = `{
	"type": "array",
	"items": {
		"type": "object",
		"required": ["title"],
		"properties": {
			"external_key": {"type": "string", "minLength": 1},
			"title": {"type": "string"},
			"body": {"type": "string"},
			"category": {"type": "string"},
			"relevance_at": {"type": "string", "format": "date-time"},
			"modified_at": {"type": "string", "format": "date-time"}
		}
	}
}`

type feedItem struct {
	ExternalKey string `json:"external_key"`
	Title       string `json:"title"`
	Body        string `json:"body"`
	Category    string `json:"category"`
	RelevanceAt string `json:"relevance_at"`
	ModifiedAt  string `json:"modified_at"`
}

// FeedSource reads a JSON export written by an external fetcher and turns
// its items into identity-keyed upsert candidates.
type FeedSource struct {
	path         string
	kind         string
	schemaLoader gojsonschema.JSONLoader
	logger       zerolog.Logger
}

// NewFeedSource creates a feed source. kind becomes the records'
// sourceKind (e.g. "calendar", "notes").
func NewFeedSource(path, kind string, logger zerolog.Logger) *FeedSource {
	return &FeedSource{
		path:         path,
		kind:         kind,
		schemaLoader: gojsonschema.NewStringLoader(feedSchema),
		logger:       logger.With().Str("component", "feed-source").Str("kind", kind).Logger(),
	}
}

func (s *FeedSource) Name() string {
	return s.kind
}

func (s *FeedSource) Fetch(ctx context.Context) ([]reconcile.Candidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read feed %s: %w", s.path, err)
	}

	result, err := gojsonschema.Validate(s.schemaLoader, gojsonschema.NewBytesLoader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to validate feed %s: %w", s.path, err)
	}
	if !result.Valid() {
		for _, desc := range result.Errors() {
			s.logger.Warn().Str("field", desc.Field()).Str("issue", desc.Description()).
				Msg("Feed schema violation")
		}
		return nil, fmt.Errorf("feed %s failed schema validation", s.path)
	}

	var items []feedItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("failed to parse feed %s: %w", s.path, err)
	}

	candidates := make([]reconcile.Candidate, 0, len(items))
	for i, item := range items {
		cand, err := s.toCandidate(item)
		if err != nil {
			s.logger.Warn().Err(err).Int("item", i).Msg("Skipping feed item")
			continue
		}
		candidates = append(candidates, cand)
	}
	return candidates, nil
}

func (s *FeedSource) toCandidate(item feedItem) (reconcile.Candidate, error) {
	rec := store.Record{
		SourceKind: s.kind,
		Title:      item.Title,
		Body:       item.Body,
		Category:   item.Category,
	}

	if item.ExternalKey != "" {
		key := item.ExternalKey
		rec.ExternalKey = &key
	}
	if item.RelevanceAt != "" {
		t, err := time.Parse(time.RFC3339, item.RelevanceAt)
		if err != nil {
			return reconcile.Candidate{}, fmt.Errorf("bad relevance_at: %w", err)
		}
		rec.RelevanceAt = &t
	}
	if item.ModifiedAt != "" {
		t, err := time.Parse(time.RFC3339, item.ModifiedAt)
		if err != nil {
			return reconcile.Candidate{}, fmt.Errorf("bad modified_at: %w", err)
		}
		rec.SourceModifiedAt = &t
	}

	return reconcile.Candidate{Record: rec, Policy: reconcile.PolicyUpsert}, nil
}
