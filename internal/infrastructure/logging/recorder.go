package logging

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/alexisbeaulieu97/modhost/internal/ports"
)

const defaultRecorderLimit = 200

// Entry is a single recorded log line.
type Entry struct {
	Time    time.Time
	Level   string
	Message string
	Fields  []interface{}
	ctx     context.Context
}

// String renders the entry as "LEVEL message key=value ...".
func (e Entry) String() string {
	var b strings.Builder
	b.WriteString(strings.ToUpper(e.Level))
	b.WriteByte(' ')
	b.WriteString(e.Message)
	for i := 0; i+1 < len(e.Fields); i += 2 {
		fmt.Fprintf(&b, " %v=%v", e.Fields[i], e.Fields[i+1])
	}
	return b.String()
}

// Recorder is a bounded ring of log entries. It backs RecordingLogger while a
// full-screen UI owns the terminal, and replays into a real logger afterwards.
type Recorder struct {
	mu      sync.Mutex
	limit   int
	entries []Entry
	now     func() time.Time
}

// NewRecorder creates a Recorder holding at most limit entries (200 when
// limit is not positive).
func NewRecorder(limit int) *Recorder {
	if limit <= 0 {
		limit = defaultRecorderLimit
	}
	return &Recorder{limit: limit, entries: make([]Entry, 0, limit), now: time.Now}
}

func (r *Recorder) add(entry Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry.Time = r.now()
	if len(r.entries) == r.limit {
		copy(r.entries, r.entries[1:])
		r.entries[len(r.entries)-1] = entry
		return
	}
	r.entries = append(r.entries, entry)
}

// Tail returns up to n of the most recent entries, oldest first.
func (r *Recorder) Tail(n int) []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()

	if n <= 0 || n > len(r.entries) {
		n = len(r.entries)
	}
	out := make([]Entry, n)
	copy(out, r.entries[len(r.entries)-n:])
	return out
}

// Flush replays recorded entries into delegate, preserving order, and empties
// the recorder.
func (r *Recorder) Flush(delegate ports.Logger) {
	if delegate == nil {
		return
	}
	r.mu.Lock()
	entries := append([]Entry(nil), r.entries...)
	r.entries = r.entries[:0]
	r.mu.Unlock()

	for _, entry := range entries {
		switch entry.Level {
		case "debug":
			delegate.Debug(entry.ctx, entry.Message, entry.Fields...)
		case "warn":
			delegate.Warn(entry.ctx, entry.Message, entry.Fields...)
		case "error":
			delegate.Error(entry.ctx, entry.Message, entry.Fields...)
		default:
			delegate.Info(entry.ctx, entry.Message, entry.Fields...)
		}
	}
}

// RecordingLogger implements ports.Logger by writing into a Recorder.
type RecordingLogger struct {
	recorder *Recorder
	fields   []interface{}
}

// NewRecordingLogger returns a logger that stores entries in recorder.
func NewRecordingLogger(recorder *Recorder) *RecordingLogger {
	return &RecordingLogger{recorder: recorder}
}

func (l *RecordingLogger) Debug(ctx context.Context, msg string, fields ...interface{}) {
	l.log(ctx, "debug", msg, fields)
}

func (l *RecordingLogger) Info(ctx context.Context, msg string, fields ...interface{}) {
	l.log(ctx, "info", msg, fields)
}

func (l *RecordingLogger) Warn(ctx context.Context, msg string, fields ...interface{}) {
	l.log(ctx, "warn", msg, fields)
}

func (l *RecordingLogger) Error(ctx context.Context, msg string, fields ...interface{}) {
	l.log(ctx, "error", msg, fields)
}

// With returns a child logger with persistent fields.
func (l *RecordingLogger) With(fields ...interface{}) ports.Logger {
	return &RecordingLogger{recorder: l.recorder, fields: MergeFields(l.fields, fields)}
}

func (l *RecordingLogger) log(ctx context.Context, level, msg string, fields []interface{}) {
	if l == nil || l.recorder == nil {
		return
	}
	l.recorder.add(Entry{
		Level:   level,
		Message: msg,
		Fields:  MergeFields(l.fields, fields),
		ctx:     ctx,
	})
}

var _ ports.Logger = (*RecordingLogger)(nil)
