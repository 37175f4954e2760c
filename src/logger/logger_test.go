package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestZapLogger_Levels(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	l := NewZapLogger(zap.New(core))

	l.Info("uploading %s", "www")
	l.Debug("poll %d", 3)
	l.Error("failed: %v", "boom")

	entries := logs.All()
	if len(entries) != 3 {
		t.Fatalf("got %d entries, want 3", len(entries))
	}

	want := []string{"uploading www", "poll 3", "failed: boom"}
	for i, e := range entries {
		if e.Message != want[i] {
			t.Errorf("entry %d = %q, want %q", i, e.Message, want[i])
		}
	}
	if entries[2].Level != zap.ErrorLevel {
		t.Errorf("entry 2 level = %v, want error", entries[2].Level)
	}
}

func TestNewFileLogger(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "private")

	l, err := NewFileLogger(dir, false)
	if err != nil {
		t.Fatalf("NewFileLogger() error = %v", err)
	}
	l.Info("build %s submitted", "android")
	_ = l.Sync()

	data, err := os.ReadFile(filepath.Join(dir, "cameio.log"))
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), "build android submitted") {
		t.Errorf("log = %q, want entry", data)
	}
}

func TestSilentLogger(t *testing.T) {
	var l Logger = NewSilentLogger()
	l.Info("x")
	l.Error("x")
	l.Debug("x")
}
