package obs

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// NewLogger configures a zerolog logger writing to path. The terminal belongs to
// the UI, so an empty path discards output rather than falling back to stdout.
// The returned closer releases the log file.
func NewLogger(format, level, path string) (zerolog.Logger, io.Closer, error) {
	zerolog.TimeFieldFormat = time.RFC3339
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	path = strings.TrimSpace(path)
	if path == "" {
		return zerolog.Nop(), nopCloser{}, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return zerolog.Nop(), nopCloser{}, fmt.Errorf("create log dir: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return zerolog.Nop(), nopCloser{}, fmt.Errorf("open log file: %w", err)
	}

	var out io.Writer = file
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "console", "text":
		out = zerolog.ConsoleWriter{Out: file, TimeFormat: time.RFC3339, NoColor: true}
	}
	logger := zerolog.New(out).Level(lvl).With().Timestamp().Logger()
	return logger, file, nil
}
