package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"off", zerolog.Disabled},
		{"", zerolog.InfoLevel},
		{"bogus", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		if got := parseLevel(tt.in); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestWithComponentJSON(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(Config{Level: "info", Format: "json"}, &buf)

	log.WithComponent("risk-scorer").WithPackage("com.example.app").Info().Msg("scored")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v (%q)", err, buf.String())
	}
	if entry["component"] != "risk-scorer" {
		t.Errorf("component = %v", entry["component"])
	}
	if entry["package"] != "com.example.app" {
		t.Errorf("package = %v", entry["package"])
	}
	if entry["message"] != "scored" {
		t.Errorf("message = %v", entry["message"])
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(Config{Level: "warn", Format: "json"}, &buf)

	log.Info().Msg("hidden")
	if buf.Len() != 0 {
		t.Fatalf("info line written at warn level: %q", buf.String())
	}
	log.Warn().Msg("shown")
	if buf.Len() == 0 {
		t.Fatal("warn line was filtered")
	}
}

func TestContextFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(Config{Level: "debug", Format: "json"}, &buf)

	log.WithRequestID("req-1").
		WithError(errors.New("boom")).
		WithFields(map[string]any{"tier": "high", "score": 12}).
		Error().Msg("failed")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v (%q)", err, buf.String())
	}
	if entry["request_id"] != "req-1" || entry["error"] != "boom" {
		t.Errorf("unexpected entry %v", entry)
	}
	if entry["tier"] != "high" || entry["score"] != float64(12) {
		t.Errorf("fields missing from %v", entry)
	}
}

func TestGlobalLogger(t *testing.T) {
	prev := Global()
	defer SetGlobal(prev)

	var buf bytes.Buffer
	SetGlobal(NewWithWriter(Config{Level: "info", Format: "json"}, &buf))

	Debug().Msg("hidden")
	Info().Msg("visible")
	if !strings.Contains(buf.String(), "visible") || strings.Contains(buf.String(), "hidden") {
		t.Errorf("unexpected global output %q", buf.String())
	}
}
