package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"WARN", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"info", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParseLevel(tt.in); got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, "json", "info").Info("ticket created", "ticket_id", "TKT-1")
	New(&buf, "json", "info").Debug("dropped")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("got %d log lines, want 1: %q", len(lines), buf.String())
	}
	var rec map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}
	if rec["service"] != "ai-triage" || rec["ticket_id"] != "TKT-1" {
		t.Errorf("unexpected record %v", rec)
	}
}

func TestNewText(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, "text", "debug").Debug("stage finished", "stage", "classify_intent")
	if !strings.Contains(buf.String(), "stage=classify_intent") {
		t.Errorf("text output = %q", buf.String())
	}
}

func TestWithComponent(t *testing.T) {
	var buf bytes.Buffer
	prev := Logger()
	SetLogger(New(&buf, "json", "info"))
	t.Cleanup(func() { SetLogger(prev) })

	WithComponent("retrieval").Info("retrieved documents")
	if !strings.Contains(buf.String(), `"component":"retrieval"`) {
		t.Errorf("component missing from %q", buf.String())
	}

	SetLogger(nil)
	if Logger() == nil {
		t.Error("SetLogger(nil) must keep the current logger")
	}
}
