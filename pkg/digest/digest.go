// Package digest renders a day's reconciled records into a short natural
// language summary. It is a pure consumer of the store's read API.
package digest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rs/zerolog"

	"github.com/dartungar/digital-butler-sub001/pkg/store"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "claude-3-5-haiku-latest"

// Summarizer produces daily digests through the Anthropic API.
type Summarizer struct {
	client anthropic.Client
	model  string
	logger zerolog.Logger
}

// NewSummarizer creates a digest summarizer.
func NewSummarizer(apiKey, model string, logger zerolog.Logger) *Summarizer {
	if model == "" {
		model = DefaultModel
	}
	return &Summarizer{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
		logger: logger.With().Str("component", "digest").Logger(),
	}
}

// Summarize turns the given records into a digest for day. An empty
// record set short-circuits without an API call; API failures surface to
// the caller, the digest is never fabricated locally.
func (s *Summarizer) Summarize(ctx context.Context, day time.Time, records []store.Record) (string, error) {
	if len(records) == 0 {
		return "", errors.New("no records to summarize")
	}

	prompt := buildPrompt(day, records)

	resp, err := s.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(s.model),
		MaxTokens: 1024,
		System: []anthropic.TextBlockParam{
			{Text: "You summarize a person's day from their calendar events, notes and journal entries. Be concise, factual, and group related items."},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate digest: %w", err)
	}

	var out strings.Builder
	for _, block := range resp.Content {
		if text, ok := block.AsAny().(anthropic.TextBlock); ok {
			out.WriteString(text.Text)
		}
	}
	if out.Len() == 0 {
		return "", errors.New("digest response contained no text")
	}

	s.logger.Debug().Int("records", len(records)).Str("day", day.Format("2006-01-02")).
		Msg("Digest generated")
	return out.String(), nil
}

func buildPrompt(day time.Time, records []store.Record) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Context items for %s:\n\n", day.Format("Monday, 2 January 2006"))

	for _, rec := range records {
		fmt.Fprintf(&b, "- [%s] %s", rec.SourceKind, rec.Title)
		if rec.RelevanceAt != nil {
			fmt.Fprintf(&b, " (%s)", rec.RelevanceAt.Format("15:04"))
		}
		b.WriteString("\n")
		if body := strings.TrimSpace(rec.Body); body != "" {
			body = truncate(body, 500)
			fmt.Fprintf(&b, "  %s\n", strings.ReplaceAll(body, "\n", "\n  "))
		}
	}

	b.WriteString("\nWrite a short digest of this day.")
	return b.String()
}

// truncate caps s at max bytes without splitting a rune.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max] + "…"
}
