package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/nerrad567/gray-logic-insteon/internal/infrastructure/config"
)

func TestNew(t *testing.T) {
	for _, tc := range []struct {
		name string
		cfg  config.LoggingConfig
	}{
		{"json to stdout", config.LoggingConfig{Level: "info", Format: "json", Output: "stdout"}},
		{"text to stderr", config.LoggingConfig{Level: "debug", Format: "text", Output: "stderr"}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			if New(tc.cfg, "1.0.0") == nil {
				t.Fatal("expected non-nil logger")
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"unknown", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"DEBUG", slog.LevelDebug},
	}

	for _, tt := range tests {
		if got := parseLevel(tt.input); got != tt.expected {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.input, got, tt.expected)
		}
	}
}

func TestLogger_With(t *testing.T) {
	logger := New(config.LoggingConfig{Level: "info", Format: "json", Output: "stdout"}, "1.0.0")

	child := logger.With("component", "plm")
	if child == nil {
		t.Fatal("expected non-nil child logger")
	}
	if child == logger {
		t.Error("expected child logger to be distinct from parent")
	}
}

func TestDefault(t *testing.T) {
	if Default() == nil {
		t.Fatal("expected non-nil default logger")
	}
}

func TestNewWithWriter_DefaultFields(t *testing.T) {
	var buf bytes.Buffer

	logger := NewWithWriter(config.LoggingConfig{Level: "info", Format: "json"}, "test", &buf)
	logger.Info("sync complete", "device", "1a.2b.3c", "records", 14)

	output := buf.String()
	if !strings.Contains(output, "insteon-bridge") {
		t.Error("expected output to contain service field")
	}
	if !strings.Contains(output, `"version":"test"`) {
		t.Error("expected output to contain version field")
	}

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse JSON output: %v", err)
	}
	if entry["msg"] != "sync complete" {
		t.Errorf("msg = %v, want %q", entry["msg"], "sync complete")
	}
	if entry["device"] != "1a.2b.3c" {
		t.Errorf("device = %v, want %q", entry["device"], "1a.2b.3c")
	}
}

func TestNewWithWriter_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer

	logger := NewWithWriter(config.LoggingConfig{Level: "warn", Format: "json"}, "test", &buf)
	logger.Info("record received", "mem_addr", "0x0fff")
	logger.Warn("retry budget exhausted", "device", "1a.2b.3c")

	output := buf.String()
	if strings.Contains(output, "record received") {
		t.Error("info line should have been filtered at warn level")
	}
	if !strings.Contains(output, "retry budget exhausted") {
		t.Error("warn line missing from output")
	}
}
