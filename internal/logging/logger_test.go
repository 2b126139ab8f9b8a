package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"sortbook/internal/services"
)

func TestConsoleHandlerIncludesComponentAndFields(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	logger := slog.New(newConsoleHandler(&buf, lvl))

	NewComponentLogger(logger, "pipeline").Info("file processed", String("status", "processed"), Int64(FieldRecordID, 7))

	line := buf.String()
	for _, want := range []string{"[pipeline]", "file processed", "status=processed", "record_id=7"} {
		if !strings.Contains(line, want) {
			t.Fatalf("expected %q in output, got %q", want, line)
		}
	}
}

func TestJSONHandlerNormalizesKeys(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	logger := slog.New(newJSONHandler(&buf, lvl, false))

	logger.Warn("slow response", String("endpoint", "prod"))

	var decoded map[string]any
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if decoded["level"] != "warn" {
		t.Fatalf("unexpected level field: %v", decoded["level"])
	}
	if decoded["msg"] != "slow response" {
		t.Fatalf("unexpected msg field: %v", decoded["msg"])
	}
	if _, ok := decoded["ts"]; !ok {
		t.Fatal("expected ts field")
	}
}

func TestWithContextDerivesFields(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	logger := slog.New(newConsoleHandler(&buf, lvl))

	ctx := services.WithRecordID(context.Background(), 42)
	ctx = services.WithStep(ctx, "extract")
	WithContext(ctx, logger).Info("step started")

	line := buf.String()
	if !strings.Contains(line, "record_id=42") || !strings.Contains(line, "step=extract") {
		t.Fatalf("missing context fields in %q", line)
	}
}
