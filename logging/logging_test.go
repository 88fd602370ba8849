package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNewConsoleOnly(t *testing.T) {
	logger, err := New(Config{Level: "debug"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	logger.Debugw("starting", "component", "test")
}

func TestNewWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	logger, err := New(Config{Level: "info", File: path})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	logger.Infow("model loaded", "model_type", "forest")
	logger.Sync()

	payload, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(string(payload), "model loaded") {
		t.Fatalf("log file missing entry: %s", payload)
	}
	if !strings.Contains(string(payload), "\"model_type\":\"forest\"") {
		t.Fatalf("log file missing structured field: %s", payload)
	}
}

func TestNewRejectsBadLevel(t *testing.T) {
	if _, err := New(Config{Level: "verbose"}); err == nil {
		t.Fatal("expected error for invalid level")
	}
}

func TestNewDefaultsLevel(t *testing.T) {
	logger, err := New(Config{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	core := logger.Desugar().Core()
	if !core.Enabled(zapcore.InfoLevel) {
		t.Fatal("expected info level enabled by default")
	}
	if core.Enabled(zapcore.DebugLevel) {
		t.Fatal("expected debug level disabled by default")
	}
}
