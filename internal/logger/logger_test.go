package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/alexisbeaulieu97/modhost/internal/ports"
)

type logEntry map[string]any

func TestLoggerInfoWithFields(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	log, err := New(Options{Level: "info", Writer: buf})
	require.NoError(t, err)

	log = log.WithFields(map[string]any{"module_id": "Blog", "phase": "boot"})
	log.Info(context.Background(), "module booted", "priority", 10)

	var entry logEntry
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "module booted", entry["message"])
	require.Equal(t, "Blog", entry["module_id"])
	require.Equal(t, "boot", entry["phase"])
	require.EqualValues(t, 10, entry["priority"])
	require.Equal(t, "info", entry["level"])
}

func TestLoggerDebugRespectsLevel(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	log, err := New(Options{Level: "info", Writer: buf})
	require.NoError(t, err)

	log.Debug(context.Background(), "this should not appear")
	require.Equal(t, "", strings.TrimSpace(buf.String()))
}

func TestLoggerErrorIncludesContext(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	log, err := New(Options{Level: "debug", Writer: buf, Component: "installer"})
	require.NoError(t, err)

	ctx := ports.WithCorrelationID(context.Background(), "req-42")
	log.With("module_id", "Blog").Error(ctx, "install rejected", "error", errors.New("boom"))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var entry logEntry
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	require.Equal(t, "install rejected", entry["message"])
	require.Equal(t, "Blog", entry["module_id"])
	require.Equal(t, "installer", entry["component"])
	require.Equal(t, "req-42", entry["correlation_id"])
	require.Equal(t, "boom", entry["error"])
	require.Equal(t, "error", entry["level"])
}

func TestLoggerRejectsUnknownLevel(t *testing.T) {
	t.Parallel()

	_, err := New(Options{Level: "loud"})
	require.Error(t, err)
}
