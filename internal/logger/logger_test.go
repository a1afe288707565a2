package logger

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func TestResolveLogFilePathCreatesConfiguredDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "logs")
	got, err := resolveLogFilePath(Options{Dir: dir})
	if err != nil {
		t.Fatalf("resolve log path failed: %v", err)
	}
	if filepath.Dir(got) != dir {
		t.Fatalf("unexpected log dir: got=%s expected=%s", filepath.Dir(got), dir)
	}
	if filepath.Base(got) != defaultLogFilename {
		t.Fatalf("unexpected log filename: %s", filepath.Base(got))
	}
	if _, err := os.Stat(got); err != nil {
		t.Fatalf("expected log file to be created: %v", err)
	}
}

func TestNewReleaseWritesJSONToFile(t *testing.T) {
	tmpDir := t.TempDir()
	log := New("release", Options{Dir: tmpDir, Filename: "planner.log"})
	log.Sugar().Infow("planning_run_finished", "composition_id", 7)
	_ = log.Sync()

	content, err := os.ReadFile(filepath.Join(tmpDir, "planner.log"))
	if err != nil {
		t.Fatalf("read release log failed: %v", err)
	}
	text := string(content)
	if !strings.Contains(text, `"message":"planning_run_finished"`) {
		t.Fatalf("expected json message, got=%s", text)
	}
	if !strings.Contains(text, `"composition_id":7`) {
		t.Fatalf("expected structured field, got=%s", text)
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

func TestResolveLevel(t *testing.T) {
	if got := resolveLevel("", true).Level(); got != zap.DebugLevel {
		t.Fatalf("debug mode default want debug got %s", got)
	}
	if got := resolveLevel("", false).Level(); got != zap.InfoLevel {
		t.Fatalf("release mode default want info got %s", got)
	}
	if got := resolveLevel("warn", true).Level(); got != zap.WarnLevel {
		t.Fatalf("explicit level want warn got %s", got)
	}
	if got := resolveLevel("loud", false).Level(); got != zap.InfoLevel {
		t.Fatalf("invalid level should fall back to info, got %s", got)
	}
}

func TestFromContextFallsBackToGlobal(t *testing.T) {
	if FromContext(context.Background()) == nil {
		t.Fatalf("expected fallback logger")
	}
	ctx := WithContext(context.Background(), "task_id", "abc")
	if FromContext(ctx) == S() {
		t.Fatalf("expected context logger to differ from global")
	}
}
