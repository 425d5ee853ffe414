package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoggerWritesJSONLines(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "logs", "orchestrator.log")

	logger, err := NewLogger(logPath, LevelDebug, DefaultRotationConfig())
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}

	logger.WithCycle(3).WithPhase("observe").Info("phase started", "model", "sonnet")
	if err := logger.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("reading log: %v", err)
	}

	var entry map[string]any
	line := strings.TrimSpace(string(data))
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v\n%s", err, line)
	}

	if entry["msg"] != "phase started" {
		t.Errorf("msg = %v", entry["msg"])
	}
	if entry["cycle"] != float64(3) {
		t.Errorf("cycle = %v", entry["cycle"])
	}
	if entry["phase"] != "observe" {
		t.Errorf("phase = %v", entry["phase"])
	}
	if entry["model"] != "sonnet" {
		t.Errorf("model = %v", entry["model"])
	}
}

func TestLoggerLevelFiltering(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "orchestrator.log")

	logger, err := NewLogger(logPath, LevelWarn, DefaultRotationConfig())
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}

	logger.Debug("dropped")
	logger.Info("dropped too")
	logger.Warn("kept")
	logger.Close()

	data, _ := os.ReadFile(logPath)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d: %q", len(lines), string(data))
	}
	if !strings.Contains(lines[0], "kept") {
		t.Errorf("expected WARN line, got %q", lines[0])
	}
}

func TestChildLoggersDoNotMutateParent(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "orchestrator.log")

	logger, err := NewLogger(logPath, LevelInfo, DefaultRotationConfig())
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	defer logger.Close()

	_ = logger.WithPersona("security-auditor")
	if len(logger.attrs) != 0 {
		t.Errorf("parent logger gained %d attrs", len(logger.attrs))
	}
}

func TestRotatingWriterRotates(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "orchestrator.log")

	rw, err := NewRotatingWriter(logPath, RotationConfig{MaxSizeMB: 0, MaxBackups: 2})
	if err != nil {
		t.Fatalf("NewRotatingWriter: %v", err)
	}
	// Force a tiny limit to trigger rotation without writing megabytes.
	rw.maxSizeB = 64

	payload := []byte(strings.Repeat("x", 48) + "\n")
	for i := 0; i < 3; i++ {
		if _, err := rw.Write(payload); err != nil {
			t.Fatalf("write %d: %v", i, err)
		}
	}
	if err := rw.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if _, err := os.Stat(logPath); err != nil {
		t.Errorf("current log missing: %v", err)
	}
	if _, err := os.Stat(logPath + ".1"); err != nil {
		t.Errorf("expected backup .1 after rotation: %v", err)
	}
}

func TestNopLoggerDoesNotPanic(t *testing.T) {
	logger := NopLogger()
	logger.Info("nothing to see")
	logger.WithCycle(1).Error("still nothing")
	if err := logger.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}
