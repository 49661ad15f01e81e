package logger

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// TestCtxLogger records log entries in memory so unit tests can assert on
// them.
type TestCtxLogger struct {
	logs []LogEntry
	mu   sync.RWMutex
}

// LogEntry is one recorded log line.
type LogEntry struct {
	Level   string
	Message string
	Fields  map[string]interface{}
}

// NewTestCtxLogger creates an in-memory test logger.
func NewTestCtxLogger() *TestCtxLogger {
	return &TestCtxLogger{logs: make([]LogEntry, 0)}
}

// InfoCtx records an Info entry.
func (t *TestCtxLogger) InfoCtx(ctx context.Context, msg string, fields ...zap.Field) {
	t.append("INFO", msg, fields)
}

// WarnCtx records a Warn entry.
func (t *TestCtxLogger) WarnCtx(ctx context.Context, msg string, fields ...zap.Field) {
	t.append("WARN", msg, fields)
}

// ErrorCtx records an Error entry.
func (t *TestCtxLogger) ErrorCtx(ctx context.Context, msg string, fields ...zap.Field) {
	t.append("ERROR", msg, fields)
}

// DebugCtx records a Debug entry.
func (t *TestCtxLogger) DebugCtx(ctx context.Context, msg string, fields ...zap.Field) {
	t.append("DEBUG", msg, fields)
}

func (t *TestCtxLogger) append(level, msg string, fields []zap.Field) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.logs = append(t.logs, LogEntry{
		Level:   level,
		Message: msg,
		Fields:  extractFieldsMap(fields),
	})
}

// HasLog reports whether an entry with the given level and message exists.
func (t *TestCtxLogger) HasLog(level, msg string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, e := range t.logs {
		if e.Level == level && e.Message == msg {
			return true
		}
	}
	return false
}

// Entries returns a copy of all recorded entries.
func (t *TestCtxLogger) Entries() []LogEntry {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]LogEntry, len(t.logs))
	copy(out, t.logs)
	return out
}

// Reset clears recorded entries.
func (t *TestCtxLogger) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.logs = t.logs[:0]
}

func extractFieldsMap(fields []zap.Field) map[string]interface{} {
	enc := zapcore.NewMapObjectEncoder()
	for _, f := range fields {
		f.AddTo(enc)
	}
	return enc.Fields
}
