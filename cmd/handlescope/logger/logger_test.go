package logger

import (
	"log/slog"
	"os"
	"strings"
	"testing"
)

func TestEnableWritesPerRunFile(t *testing.T) {
	prev := L
	t.Cleanup(func() { L = prev })

	dir := t.TempDir()
	path, err := Enable(dir, slog.LevelDebug)
	if err != nil {
		t.Fatalf("Enable: %v", err)
	}
	if !strings.HasPrefix(path, dir) {
		t.Fatalf("log file %q not under %q", path, dir)
	}

	Debug("collection done", "collection", 7)

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading log: %v", err)
	}
	if !strings.Contains(string(data), "collection done") {
		t.Fatalf("log entry missing from %q", data)
	}
}
