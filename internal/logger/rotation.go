package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// rotatingWriter appends to a log file and rotates it once the next write
// would push it past maxBytes. Rotated files keep the base name with a
// timestamp suffix; archives older than maxAge are pruned on each
// rotation.
type rotatingWriter struct {
	path    string
	maxByte int64
	maxAge  time.Duration
	file    *os.File
	size    int64
}

func newRotatingWriter(path string, maxSizeMB, maxAgeDays int) (*rotatingWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to stat log file: %w", err)
	}

	w := &rotatingWriter{
		path:    path,
		maxByte: int64(maxSizeMB) * 1024 * 1024,
		maxAge:  time.Duration(maxAgeDays) * 24 * time.Hour,
		file:    file,
		size:    info.Size(),
	}
	w.prune()
	return w, nil
}

func (w *rotatingWriter) Write(p []byte) (int, error) {
	if w.maxByte > 0 && w.size+int64(len(p)) > w.maxByte {
		if err := w.rotate(); err != nil {
			return 0, err
		}
	}
	n, err := w.file.Write(p)
	w.size += int64(n)
	return n, err
}

func (w *rotatingWriter) Close() error {
	return w.file.Close()
}

func (w *rotatingWriter) rotate() error {
	if err := w.file.Close(); err != nil {
		return err
	}

	archived := fmt.Sprintf("%s.%s", w.path, time.Now().Format("20060102-150405"))
	if err := os.Rename(w.path, archived); err != nil {
		return err
	}

	file, err := os.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return err
	}
	w.file = file
	w.size = 0

	w.prune()
	return nil
}

// prune removes archived log files older than maxAge.
func (w *rotatingWriter) prune() {
	if w.maxAge <= 0 {
		return
	}

	archives, err := filepath.Glob(w.path + ".*")
	if err != nil {
		return
	}
	cutoff := time.Now().Add(-w.maxAge)
	for _, archive := range archives {
		info, err := os.Stat(archive)
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			os.Remove(archive)
		}
	}
}
