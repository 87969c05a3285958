package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"WARN", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tc := range tests {
		if got := ParseLevel(tc.in); got != tc.want {
			t.Fatalf("ParseLevel(%q)=%v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestSetup_JSONWithRun(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := WithRun(Setup(&buf, "info", "json"), "prep", "run-1")
	logger.Debug("hidden")
	logger.Info("stage done", "rows", 3)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("got %d lines, want 1: %q", len(lines), buf.String())
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("json: %v", err)
	}
	if entry["job"] != "prep" || entry["run_id"] != "run-1" || entry["rows"] != float64(3) {
		t.Fatalf("entry=%v", entry)
	}
}

func TestSetup_TextDefault(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	Setup(&buf, "debug", "").Debug("hello", "k", "v")
	if !strings.Contains(buf.String(), "msg=hello") || !strings.Contains(buf.String(), "k=v") {
		t.Fatalf("text output=%q", buf.String())
	}
}

func TestNewRunID(t *testing.T) {
	t.Parallel()

	a, b := NewRunID(), NewRunID()
	if a == b {
		t.Fatalf("NewRunID returned duplicates")
	}
	if _, err := uuid.Parse(a); err != nil {
		t.Fatalf("NewRunID()=%q is not a uuid: %v", a, err)
	}
}
