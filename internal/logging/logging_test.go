package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger, err := New("debug", "json", &buf)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	logger.Debug("hello", "room_id", "r1")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected JSON output, got %q: %v", buf.String(), err)
	}
	if entry["room_id"] != "r1" || entry["msg"] != "hello" {
		t.Fatalf("unexpected entry: %+v", entry)
	}

	buf.Reset()
	textLogger, err := New("warn", "text", &buf)
	if err != nil {
		t.Fatalf("New text failed: %v", err)
	}
	textLogger.Info("dropped")
	textLogger.Warn("kept")
	if strings.Contains(buf.String(), "dropped") || !strings.Contains(buf.String(), "kept") {
		t.Fatalf("unexpected text output %q", buf.String())
	}

	if _, err := New("loud", "json", &buf); err == nil {
		t.Fatal("expected unknown level to fail")
	}
	if _, err := New("info", "xml", &buf); err == nil {
		t.Fatal("expected unknown format to fail")
	}
}

func TestContextRoundTrip(t *testing.T) {
	t.Parallel()

	logger := slog.Default()
	ctx := ContextWithLogger(context.Background(), logger)
	if FromContext(ctx) != logger {
		t.Fatal("expected logger to round trip through context")
	}
	if FromContext(context.Background()) != nil {
		t.Fatal("expected nil logger for bare context")
	}
}
