// Package logging tests for structured JSON logging.
package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]interface{}
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("invalid JSON log line %q: %v", line, err)
		}
		out = append(out, entry)
	}
	return out
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want LogLevel
	}{
		{"debug", LevelDebug},
		{"INFO", LevelInfo},
		{" warn ", LevelWarn},
		{"warning", LevelWarn},
		{"error", LevelError},
		{"", LevelInfo},
		{"verbose", LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

// TestLogger_levelFiltering verifies entries below the minimum level are dropped.
func TestLogger_levelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, LevelWarn)

	l.Debug("debug message")
	l.Info("info message")
	l.Warn("warn message")
	l.Error("error message", errors.New("boom"))

	entries := decodeLines(t, &buf)
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2: %s", len(entries), buf.String())
	}
	if entries[0]["level"] != "warning" || entries[0]["message"] != "warn message" {
		t.Errorf("unexpected warn entry: %v", entries[0])
	}
	if entries[1]["error"] != "boom" {
		t.Errorf("error field = %v, want boom", entries[1]["error"])
	}
	if _, ok := entries[1]["timestamp"]; !ok {
		t.Error("entry should carry a timestamp")
	}
}

// TestLogger_context verifies context maps are merged into fields.
func TestLogger_context(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, LevelDebug).With(map[string]interface{}{"component": "state"})

	l.Info("reloaded",
		map[string]interface{}{"repairs": 3},
		map[string]interface{}{"sms_logs": 1, "repairs": 4},
	)

	entries := decodeLines(t, &buf)
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	e := entries[0]
	if e["component"] != "state" {
		t.Errorf("component = %v", e["component"])
	}
	if e["repairs"] != float64(4) {
		t.Errorf("repairs = %v, want 4 (later context wins)", e["repairs"])
	}
	if e["sms_logs"] != float64(1) {
		t.Errorf("sms_logs = %v", e["sms_logs"])
	}
}

func TestGet_returnsSingleton(t *testing.T) {
	if Get() != Get() {
		t.Error("Get() should return the same logger")
	}
}
