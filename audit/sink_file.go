package audit

import (
	"context"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// FileSinkConfig configures the JSON-lines audit file.
type FileSinkConfig struct {
	Dir        string `mapstructure:"dir"`         // directory for audit files
	Filename   string `mapstructure:"filename"`    // file name within Dir
	MaxSizeMB  int    `mapstructure:"max_size"`    // rotate above this size
	MaxBackups int    `mapstructure:"max_backups"` // rotated files to keep
	MaxAgeDays int    `mapstructure:"max_age"`     // days to keep rotated files
	Compress   bool   `mapstructure:"compress"`    // gzip rotated files
}

// DefaultFileSinkConfig returns the default file sink configuration.
func DefaultFileSinkConfig() FileSinkConfig {
	return FileSinkConfig{
		Dir:        "logs/audit",
		Filename:   "requests.log",
		MaxSizeMB:  100,
		MaxBackups: 10,
		MaxAgeDays: 30,
		Compress:   false,
	}
}

// FileSink appends entries as JSON lines to a rotated file.
type FileSink struct {
	log    *zap.Logger
	writer *lumberjack.Logger
}

// NewFileSink creates a rotating JSON-lines sink.
func NewFileSink(cfg FileSinkConfig) *FileSink {
	writer := &lumberjack.Logger{
		Filename:   filepath.Join(cfg.Dir, cfg.Filename),
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   cfg.Compress,
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "logged_at"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderCfg),
		zapcore.AddSync(writer),
		zapcore.InfoLevel,
	)

	return &FileSink{
		log:    zap.New(core),
		writer: writer,
	}
}

// Write appends the entry as one JSON line.
func (s *FileSink) Write(ctx context.Context, entry Entry) error {
	s.log.Info("request",
		zap.String("id", entry.ID),
		zap.String("method", entry.Method),
		zap.String("path", entry.Path),
		zap.String("handler", entry.Handler),
		zap.String("identity", entry.Identity),
		zap.String("ip", entry.IP),
		zap.Time("started_at", entry.StartedAt),
		zap.Time("stopped_at", entry.StoppedAt),
		zap.Int64("duration_ms", entry.DurationMs),
		zap.Int("status", entry.Status),
		zap.Bool("allowed", entry.Allowed),
		zap.String("reason", entry.Reason),
		zap.String("trace_id", entry.TraceID),
	)
	return nil
}

// Close flushes buffers and closes the file.
func (s *FileSink) Close() error {
	_ = s.log.Sync()
	return s.writer.Close()
}
