package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/alexisbeaulieu97/modhost/internal/ports"
)

func TestLoggerIncludesCorrelationIDAndLayer(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{
		Writer:    &buf,
		Level:     "debug",
		Format:    "json",
		Layer:     "application",
		Component: "installer",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx := ports.WithCorrelationID(context.Background(), "abc123")
	logger.Info(ctx, "module promoted", "module_id", "Blog")

	line := strings.TrimSpace(buf.String())
	if line == "" {
		t.Fatal("expected log output, got empty string")
	}

	payload := make(map[string]interface{})
	if err := json.Unmarshal([]byte(line), &payload); err != nil {
		t.Fatalf("failed to parse log line %q: %v", line, err)
	}

	if payload["layer"] != "application" {
		t.Fatalf("expected layer to be application, got %v", payload["layer"])
	}
	if payload["component"] != "installer" {
		t.Fatalf("expected component field, got %v", payload["component"])
	}
	if payload["correlation_id"] != "abc123" {
		t.Fatalf("expected correlation_id to be abc123, got %v", payload["correlation_id"])
	}
	if payload["module_id"] != "Blog" {
		t.Fatalf("expected module_id to be recorded, got %v", payload["module_id"])
	}
	if payload["msg"] != "module promoted" {
		t.Fatalf("expected message to be recorded, got %v", payload["msg"])
	}
}

func TestLoggerWithOverridesFields(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Writer: &buf, Format: "json", Component: "registry"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	child := logger.With("component", "lifecycle").(*Logger)
	child.Warn(context.Background(), "action cancelled", "action", "activate")

	payload := make(map[string]interface{})
	if err := json.Unmarshal([]byte(strings.TrimSpace(buf.String())), &payload); err != nil {
		t.Fatalf("failed to parse log line: %v", err)
	}

	if payload["component"] != "lifecycle" {
		t.Fatalf("expected component=lifecycle, got %v", payload["component"])
	}
	if payload["action"] != "activate" {
		t.Fatalf("expected action activate, got %v", payload["action"])
	}
	if payload["layer"] != "infrastructure" {
		t.Fatalf("expected default layer infrastructure, got %v", payload["layer"])
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(Options{Format: "xml"}); err == nil {
		t.Fatal("expected an error for an unknown format")
	}
}

func TestNoOpLogger(t *testing.T) {
	noOp := NewNoOpLogger()
	noOp.Info(context.Background(), "hello world")

	if noOp.With("key", "value") != noOp {
		t.Fatalf("expected With to return same no-op logger instance")
	}
	if OrNoOp(nil) == nil {
		t.Fatal("expected OrNoOp to substitute a logger")
	}
}

func TestRecorderKeepsTailAndFlushes(t *testing.T) {
	recorder := NewRecorder(2)
	logger := NewRecordingLogger(recorder)

	ctx := ports.WithCorrelationID(context.Background(), "recorded")
	logger.Info(ctx, "discovered", "count", 3)
	logger.With("module_id", "Blog").Warn(ctx, "skipped")
	logger.Error(ctx, "boot failed", "module_id", "Shop")

	tail := recorder.Tail(10)
	if len(tail) != 2 {
		t.Fatalf("expected ring to hold 2 entries, got %d", len(tail))
	}
	if tail[0].Message != "skipped" || tail[1].Message != "boot failed" {
		t.Fatalf("unexpected tail: %+v", tail)
	}
	if got := tail[0].String(); got != "WARN skipped module_id=Blog" {
		t.Fatalf("unexpected rendering %q", got)
	}

	var output bytes.Buffer
	delegate, err := New(Options{Writer: &output, Format: "json"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	recorder.Flush(delegate)

	lines := strings.Split(strings.TrimSpace(output.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 log lines, got %d", len(lines))
	}
	var last map[string]interface{}
	if err := json.Unmarshal([]byte(lines[1]), &last); err != nil {
		t.Fatalf("failed to parse log line: %v", err)
	}
	if last["correlation_id"] != "recorded" || last["module_id"] != "Shop" {
		t.Fatalf("unexpected payload: %+v", last)
	}
	if len(recorder.Tail(0)) != 0 {
		t.Fatal("expected flush to empty the recorder")
	}
}
