package logger

import (
	"strings"
)

// GinLogWriter adapts gin's text log output onto the structured logger. It
// implements io.Writer and is installed as gin.DefaultWriter.
type GinLogWriter struct {
	module string
}

// NewGinLogWriter creates an adapter writing to the given module.
func NewGinLogWriter(module string) *GinLogWriter {
	return &GinLogWriter{module: module}
}

// Write classifies gin's text lines and forwards them at the matching level.
func (w *GinLogWriter) Write(p []byte) (n int, err error) {
	msg := strings.TrimSpace(string(p))
	if msg == "" {
		return len(p), nil
	}

	switch {
	case strings.Contains(msg, "[GIN-debug]"):
		Debug(w.module, msg)
	case strings.Contains(msg, "[Recovery]") || strings.Contains(msg, "panic recovered"):
		Error(w.module, msg)
	default:
		Info(w.module, msg)
	}

	return len(p), nil
}
