package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRotatingWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "butler.log")

	w, err := newRotatingWriter(path, 10, 7)
	require.NoError(t, err)
	defer w.Close()

	// File and its directory are created up front.
	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestRotatingWriter_RotatesPastLimit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "butler.log")

	w, err := newRotatingWriter(path, 10, 7)
	require.NoError(t, err)
	defer w.Close()
	w.maxByte = 64

	line := []byte(strings.Repeat("x", 40) + "\n")
	_, err = w.Write(line)
	require.NoError(t, err)

	// The second write would exceed the limit and triggers rotation.
	_, err = w.Write(line)
	require.NoError(t, err)

	archives, err := filepath.Glob(path + ".*")
	require.NoError(t, err)
	assert.Len(t, archives, 1)

	// The live file holds only the post-rotation write.
	live, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, line, live)
	assert.Equal(t, int64(len(line)), w.size)
}

func TestRotatingWriter_PrunesOldArchives(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "butler.log")

	old := path + ".20200101-000000"
	require.NoError(t, os.WriteFile(old, []byte("ancient"), 0o644))
	ancient := time.Now().AddDate(0, 0, -30)
	require.NoError(t, os.Chtimes(old, ancient, ancient))

	recent := path + ".20990101-000000"
	require.NoError(t, os.WriteFile(recent, []byte("fresh"), 0o644))

	w, err := newRotatingWriter(path, 10, 7)
	require.NoError(t, err)
	defer w.Close()

	_, err = os.Stat(old)
	assert.True(t, os.IsNotExist(err), "archive past max age should be pruned")
	_, err = os.Stat(recent)
	assert.NoError(t, err)
}

func TestLogger_FileOutputRotatesAndCloses(t *testing.T) {
	path := filepath.Join(t.TempDir(), "butler.log")

	log, err := New(Config{Level: "info", File: path, MaxSizeMB: 10, MaxAgeDays: 7})
	require.NoError(t, err)

	log.Info().Str("key", "value").Msg("hello")
	require.NoError(t, log.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello")
}
