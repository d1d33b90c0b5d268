// Package logger provides file-based debug logging for the TUI. Writing to
// the terminal would corrupt the alternate screen, so each run logs to its
// own file instead.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"time"
)

// L is the process-wide logger. It discards everything until Enable is
// called. (slog.DiscardHandler needs Go 1.24; this is its equivalent.)
var L = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.Level(math.MaxInt32)}))

// Enable routes log output to a fresh file under dir, one file per run,
// named by start time. An empty dir defaults to ~/.handlescope. Returns the
// path of the log file so main can tell the user where to look.
func Enable(dir string, level slog.Level) (string, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolving log dir: %w", err)
		}
		dir = filepath.Join(home, ".handlescope")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	path := filepath.Join(dir, "run-"+time.Now().Format("20060102-150405")+".log")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", err
	}

	L = slog.New(slog.NewJSONHandler(f, &slog.HandlerOptions{Level: level}))
	return path, nil
}

// Info logs at info level.
func Info(msg string, args ...any) { L.Info(msg, args...) }

// Warn logs at warn level.
func Warn(msg string, args ...any) { L.Warn(msg, args...) }

// Error logs at error level.
func Error(msg string, args ...any) { L.Error(msg, args...) }

// Debug logs at debug level.
func Debug(msg string, args ...any) { L.Debug(msg, args...) }
