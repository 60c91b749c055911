// Package logger configures the process-wide zerolog logger.
package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Config holds logger configuration.
type Config struct {
	Level      string // debug, info, warn, error
	File       string // log file path, empty disables file output
	Console    bool   // enable console output
	Pretty     bool   // human-readable console format
	MaxSizeMB  int    // rotate the log file past this size, 0 disables
	MaxAgeDays int    // prune rotated files older than this, 0 keeps all
}

// Logger wraps zerolog.Logger and owns the optional log file handle.
type Logger struct {
	zerolog.Logger
	file io.Closer
}

// New creates a logger writing to console and/or file per cfg.
func New(cfg Config) (*Logger, error) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	var writers []io.Writer

	if cfg.Console {
		var console io.Writer = os.Stdout
		if cfg.Pretty {
			console = zerolog.ConsoleWriter{
				Out:        os.Stdout,
				TimeFormat: time.RFC3339,
			}
		}
		writers = append(writers, console)
	}

	var file *rotatingWriter
	if cfg.File != "" {
		file, err = newRotatingWriter(cfg.File, cfg.MaxSizeMB, cfg.MaxAgeDays)
		if err != nil {
			return nil, err
		}
		writers = append(writers, file)
	}

	var writer io.Writer
	switch len(writers) {
	case 0:
		writer = os.Stdout
	case 1:
		writer = writers[0]
	default:
		writer = zerolog.MultiLevelWriter(writers...)
	}

	l := zerolog.New(writer).Level(level).With().Timestamp().Logger()
	wrapped := &Logger{Logger: l}
	if file != nil {
		wrapped.file = file
	}
	return wrapped, nil
}

// Close releases the log file handle if one is open.
func (l *Logger) Close() error {
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}
