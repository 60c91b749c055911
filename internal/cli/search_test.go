package cli

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestSnippet(t *testing.T) {
	assert.Equal(t, "short", snippet("short", 300))
	assert.Equal(t, "trimmed", snippet("  trimmed\n", 300))

	long := strings.Repeat("a", 400)
	got := snippet(long, 300)
	assert.Equal(t, 300+len("…"), len(got))
	assert.True(t, strings.HasSuffix(got, "…"))
}

func TestSnippet_RuneBoundary(t *testing.T) {
	// A cut point inside a multi-byte rune must move back to its start.
	long := strings.Repeat("日", 150)
	got := snippet(long, 301)
	assert.True(t, utf8.ValidString(got))
	assert.True(t, strings.HasSuffix(got, "…"))
	assert.Equal(t, 300, len(got)-len("…"))
}

func TestIndent(t *testing.T) {
	assert.Equal(t, "   a\n   b", indent("a\nb", "   "))
}
