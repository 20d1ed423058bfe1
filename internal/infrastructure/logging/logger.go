package logging

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	cblog "github.com/charmbracelet/log"

	"github.com/alexisbeaulieu97/modhost/internal/ports"
)

// Options configures the console logger.
type Options struct {
	Writer io.Writer
	Level  string
	// Format is one of text, json or logfmt. Empty means text.
	Format    string
	Layer     string
	Component string
	// Timestamps adds a time column; disabled output is easier to read in a
	// terminal session.
	Timestamps bool
}

// Logger implements ports.Logger on top of charmbracelet/log. It is the
// default for interactive CLI use.
type Logger struct {
	base   *cblog.Logger
	fields []interface{}
	layer  string
}

// New creates a console Logger.
func New(opts Options) (*Logger, error) {
	writer := opts.Writer
	if writer == nil {
		writer = os.Stderr
	}

	level := cblog.InfoLevel
	if opts.Level != "" {
		parsed, err := cblog.ParseLevel(strings.ToLower(opts.Level))
		if err != nil {
			return nil, fmt.Errorf("parse log level: %w", err)
		}
		level = parsed
	}

	formatter, err := parseFormat(opts.Format)
	if err != nil {
		return nil, err
	}

	base := cblog.NewWithOptions(writer, cblog.Options{
		Level:           level,
		ReportTimestamp: opts.Timestamps,
		Formatter:       formatter,
	})

	var fields []interface{}
	if opts.Component != "" {
		fields = append(fields, "component", opts.Component)
	}
	layer := opts.Layer
	if layer == "" {
		layer = "infrastructure"
	}

	return &Logger{base: base, fields: fields, layer: layer}, nil
}

func parseFormat(format string) (cblog.Formatter, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "text", "console":
		return cblog.TextFormatter, nil
	case "json":
		return cblog.JSONFormatter, nil
	case "logfmt":
		return cblog.LogfmtFormatter, nil
	default:
		return cblog.TextFormatter, fmt.Errorf("unknown log format %q", format)
	}
}

// Debug emits a debug log entry.
func (l *Logger) Debug(ctx context.Context, msg string, fields ...interface{}) {
	l.log(ctx, cblog.DebugLevel, msg, fields)
}

// Info emits an info log entry.
func (l *Logger) Info(ctx context.Context, msg string, fields ...interface{}) {
	l.log(ctx, cblog.InfoLevel, msg, fields)
}

// Warn emits a warning log entry.
func (l *Logger) Warn(ctx context.Context, msg string, fields ...interface{}) {
	l.log(ctx, cblog.WarnLevel, msg, fields)
}

// Error emits an error log entry.
func (l *Logger) Error(ctx context.Context, msg string, fields ...interface{}) {
	l.log(ctx, cblog.ErrorLevel, msg, fields)
}

// With derives a logger that always writes the supplied fields.
func (l *Logger) With(fields ...interface{}) ports.Logger {
	if l == nil {
		return &NoOpLogger{}
	}
	return &Logger{
		base:   l.base,
		fields: append(append([]interface{}{}, l.fields...), fields...),
		layer:  l.layer,
	}
}

func (l *Logger) log(ctx context.Context, level cblog.Level, msg string, fields []interface{}) {
	if l == nil || l.base == nil {
		return
	}
	payload := MergeFields(l.fields, fields)
	payload = append(payload, "layer", l.layer)
	if id := ports.GetCorrelationID(ctx); id != "" {
		payload = append(payload, "correlation_id", id)
	}
	l.base.Log(level, msg, payload...)
}

// MergeFields flattens key/value lists, letting later keys override earlier
// ones while keeping first-seen order. Pairs with a non-string key are
// dropped.
func MergeFields(lists ...[]interface{}) []interface{} {
	values := make(map[string]interface{})
	order := make([]string, 0)

	for _, list := range lists {
		for i := 0; i+1 < len(list); i += 2 {
			key, ok := list[i].(string)
			if !ok || key == "" {
				continue
			}
			if _, seen := values[key]; !seen {
				order = append(order, key)
			}
			values[key] = list[i+1]
		}
	}

	out := make([]interface{}, 0, len(order)*2)
	for _, key := range order {
		out = append(out, key, values[key])
	}
	return out
}

var _ ports.Logger = (*Logger)(nil)
