package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestResolveLogFilePathUsesDefaultFilename(t *testing.T) {
	tmpDir := t.TempDir()
	got, err := resolveLogFilePath(Options{Dir: tmpDir})
	if err != nil {
		t.Fatalf("resolve log path failed: %v", err)
	}
	if filepath.Base(got) != defaultLogFilename {
		t.Fatalf("unexpected log filename: %s", filepath.Base(got))
	}
	if _, err := os.Stat(got); err != nil {
		t.Fatalf("expected log file to be created: %v", err)
	}
}

func TestNewReleaseWritesJobFields(t *testing.T) {
	tmpDir := t.TempDir()
	log := New("release", Options{Dir: tmpDir, Filename: "release.log"})
	log.Sugar().With("job_id", "job-1").Infow("payout_step_done")
	_ = log.Sync()

	content, err := os.ReadFile(filepath.Join(tmpDir, "release.log"))
	if err != nil {
		t.Fatalf("read release log failed: %v", err)
	}
	if !strings.Contains(string(content), "payout_step_done") || !strings.Contains(string(content), "\"job_id\":\"job-1\"") {
		t.Fatalf("expected json log with job field, got=%s", string(content))
	}
}

func TestNewDebugDoesNotWriteFile(t *testing.T) {
	tmpDir := t.TempDir()
	log := New("debug", Options{Dir: tmpDir, Filename: "debug.log"})
	log.Info("debug-log-test")
	_ = log.Sync()

	if _, err := os.Stat(filepath.Join(tmpDir, "debug.log")); !os.IsNotExist(err) {
		t.Fatalf("debug mode should not create log file")
	}
}

func TestNormalizePositiveInt(t *testing.T) {
	if got := normalizePositiveInt(0, 7); got != 7 {
		t.Fatalf("want fallback 7 got %d", got)
	}
	if got := normalizePositiveInt(3, 7); got != 3 {
		t.Fatalf("want 3 got %d", got)
	}
}

func TestQueueLoggerWritesComponentField(t *testing.T) {
	tmpDir := t.TempDir()
	previous := L
	L = New("release", Options{Dir: tmpDir, Filename: "queue.log"})
	defer func() { L = previous }()

	NewQueueLogger().Warn("retry scheduled")
	_ = L.Sync()

	content, err := os.ReadFile(filepath.Join(tmpDir, "queue.log"))
	if err != nil {
		t.Fatalf("read queue log failed: %v", err)
	}
	if !strings.Contains(string(content), "retry scheduled") || !strings.Contains(string(content), "\"component\":\"asynq\"") {
		t.Fatalf("expected asynq component log, got=%s", string(content))
	}
}
