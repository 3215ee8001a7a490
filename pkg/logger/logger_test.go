package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
)

func TestFieldsAreWritten(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriter(&buf, zerolog.DebugLevel).With(String("conn_id", "abc"))

	l.Info("frame processed",
		Int("overlays", 4),
		Float64("slope", 1.25),
		Bool("emitted", true),
		Error(errors.New("boom")),
	)

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("unmarshal log line: %v (%s)", err, buf.String())
	}
	if entry["conn_id"] != "abc" || entry["message"] != "frame processed" {
		t.Fatalf("unexpected entry %v", entry)
	}
	if entry["overlays"] != float64(4) || entry["slope"] != 1.25 || entry["emitted"] != true {
		t.Fatalf("typed fields missing: %v", entry)
	}
	if entry["error"] != "boom" {
		t.Fatalf("error field = %v", entry["error"])
	}
}

func TestLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriter(&buf, zerolog.WarnLevel)
	l.Debug("hidden")
	l.Info("hidden")
	if buf.Len() != 0 {
		t.Fatalf("expected nothing below warn, got %s", buf.String())
	}
	l.Warn("shown")
	if buf.Len() == 0 {
		t.Fatalf("expected warn entry")
	}
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	if _, err := New(&Config{Level: "loud"}); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}
