// Package logx builds the leveled loggers used across devprobe.
package logx

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

// LevelEnv overrides the configured log level.
const LevelEnv = "DEVPROBE_LOG_LEVEL"

// Options configures New.
type Options struct {
	// Level is the minimum level: debug, info, warn or error.
	Level string
	// Output receives log lines. Defaults to os.Stderr.
	Output io.Writer
	// Prefix names the component.
	Prefix string
	// LogsDir, when set, adds a timestamped log file in that directory.
	LogsDir string
}

// ParseLevel converts a level name to a log.Level. Unknown names are an
// error so configuration mistakes surface early.
func ParseLevel(level string) (log.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return log.DebugLevel, nil
	case "", "info":
		return log.InfoLevel, nil
	case "warn", "warning":
		return log.WarnLevel, nil
	case "error":
		return log.ErrorLevel, nil
	default:
		return log.InfoLevel, fmt.Errorf("unknown log level %q", level)
	}
}

// New creates a logger. When LogsDir is set the logger also writes to a
// new timestamped file there and the returned closer closes it; otherwise
// the closer is a no-op.
func New(opts Options) (*log.Logger, io.Closer, error) {
	if env := os.Getenv(LevelEnv); env != "" {
		opts.Level = env
	}
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, nil, err
	}

	out := opts.Output
	if out == nil {
		out = os.Stderr
	}

	var closer io.Closer = nopCloser{}
	if opts.LogsDir != "" {
		file, err := openLogFile(opts.LogsDir)
		if err != nil {
			return nil, nil, err
		}
		out = io.MultiWriter(out, file)
		closer = file
	}

	logger := log.NewWithOptions(out, log.Options{
		Level:           level,
		Prefix:          opts.Prefix,
		TimeFormat:      time.RFC3339,
		ReportTimestamp: true,
	})
	return logger, closer, nil
}

// Discard returns a logger that drops everything.
func Discard() *log.Logger {
	return log.New(io.Discard)
}

func openLogFile(dir string) (*os.File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure logs directory: %w", err)
	}
	filename := time.Now().Format("20060102-150405") + ".log"
	file, err := os.OpenFile(filepath.Join(dir, filename), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return file, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
