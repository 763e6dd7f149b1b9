package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	l := Stage(New(&buf, "info", "json"), "scan")
	l.Debug().Msg("hidden")
	l.Info().Int("id", 1).Msg("checked")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected 1 line at info level, got %d: %q", len(lines), buf.String())
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if entry["stage"] != "scan" || entry["message"] != "checked" {
		t.Errorf("unexpected entry: %v", entry)
	}
	if _, ok := entry["time"]; !ok {
		t.Error("expected timestamp field")
	}
}

func TestNewBadLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, "loud", "json")
	l.Debug().Msg("hidden")
	if buf.Len() != 0 {
		t.Errorf("expected debug to be filtered, got %q", buf.String())
	}
}

func TestNewConsole(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, "debug", "console")
	l.Info().Msg("hello")
	if !strings.Contains(buf.String(), "hello") {
		t.Errorf("expected console output to contain message, got %q", buf.String())
	}
}
