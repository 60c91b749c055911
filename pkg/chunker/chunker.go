// Package chunker splits long-form text into retrieval-sized pieces.
//
// Chunking is deterministic: the same input always yields the same
// boundaries, indices and line ranges. Boundaries prefer blank lines once
// a chunk passes the soft limit and are forced at the hard limit, so no
// chunk grows without bound. Consecutive chunks never share lines.
package chunker

import "strings"

const (
	// DefaultSoftLimit is the size at which a blank line ends the chunk.
	DefaultSoftLimit = 800
	// DefaultHardLimit forces a boundary regardless of structure.
	DefaultHardLimit = 1600
)

// Chunk is one ordered slice of the input text. Index runs 0..N-1 in
// document order; StartLine/EndLine are 1-based and inclusive.
type Chunk struct {
	Index     int
	Text      string
	StartLine int
	EndLine   int
}

// Chunker splits text by accumulating lines up to configured limits.
type Chunker struct {
	softLimit int
	hardLimit int
}

// New creates a chunker. Non-positive limits fall back to the defaults.
func New(softLimit, hardLimit int) *Chunker {
	if softLimit <= 0 {
		softLimit = DefaultSoftLimit
	}
	if hardLimit <= 0 {
		hardLimit = DefaultHardLimit
	}
	if hardLimit < softLimit {
		hardLimit = softLimit
	}
	return &Chunker{softLimit: softLimit, hardLimit: hardLimit}
}

// Chunk splits text into ordered chunks. Empty or whitespace-only input
// yields an empty set, which is a valid result rather than an error.
func (c *Chunker) Chunk(text string) []Chunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	lines := strings.Split(text, "\n")

	var chunks []Chunk
	var buf strings.Builder
	startLine := 0 // 0-based index of the first buffered line

	flush := func(endLine int) {
		content := strings.TrimSpace(buf.String())
		buf.Reset()
		if content == "" {
			return
		}
		chunks = append(chunks, Chunk{
			Index:     len(chunks),
			Text:      content,
			StartLine: startLine + 1,
			EndLine:   endLine + 1,
		})
	}

	for i, line := range lines {
		if buf.Len() == 0 {
			startLine = i
		}

		// A blank line closes the chunk once it is past the soft limit.
		if strings.TrimSpace(line) == "" && buf.Len() >= c.softLimit {
			flush(i - 1)
			continue
		}

		if buf.Len() > 0 {
			buf.WriteString("\n")
		}
		buf.WriteString(line)

		if buf.Len() >= c.hardLimit {
			flush(i)
		}
	}

	flush(len(lines) - 1)
	return chunks
}
