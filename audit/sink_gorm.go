package audit

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// EntryRecord is the GORM model for a persisted audit entry.
type EntryRecord struct {
	ID         string    `gorm:"primaryKey;size:36"`
	Method     string    `gorm:"column:method;size:16;not null"`
	Path       string    `gorm:"column:path;size:512;not null"`
	Handler    string    `gorm:"column:handler;size:256"`
	Identity   string    `gorm:"column:identity;size:128;index"`
	IP         string    `gorm:"column:ip;size:64;index"`
	StartedAt  time.Time `gorm:"column:started_at"`
	StoppedAt  time.Time `gorm:"column:stopped_at"`
	DurationMs int64     `gorm:"column:duration_ms"`
	Status     int       `gorm:"column:status"`
	Allowed    bool      `gorm:"column:allowed"`
	Reason     string    `gorm:"column:reason;size:256"`
	TraceID    string    `gorm:"column:trace_id;size:64"`
	CreatedAt  time.Time `gorm:"column:created_at"`
}

// TableName sets the table name.
func (EntryRecord) TableName() string {
	return "request_logs"
}

// GormSink persists entries to the request_logs table.
type GormSink struct {
	db *gorm.DB
}

// NewGormSink migrates the table and returns the sink.
func NewGormSink(db *gorm.DB) (*GormSink, error) {
	if err := db.AutoMigrate(&EntryRecord{}); err != nil {
		return nil, fmt.Errorf("migrate request_logs: %w", err)
	}
	return &GormSink{db: db}, nil
}

// Write inserts one row.
func (s *GormSink) Write(ctx context.Context, entry Entry) error {
	record := EntryRecord{
		ID:         entry.ID,
		Method:     entry.Method,
		Path:       entry.Path,
		Handler:    entry.Handler,
		Identity:   entry.Identity,
		IP:         entry.IP,
		StartedAt:  entry.StartedAt,
		StoppedAt:  entry.StoppedAt,
		DurationMs: entry.DurationMs,
		Status:     entry.Status,
		Allowed:    entry.Allowed,
		Reason:     entry.Reason,
		TraceID:    entry.TraceID,
	}
	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// Close implements Sink. The connection is owned by the database manager.
func (s *GormSink) Close() error {
	return nil
}

// Recent returns the latest limit entries, newest first.
func (s *GormSink) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 100
	}

	var records []EntryRecord
	if err := s.db.WithContext(ctx).Order("started_at DESC").Limit(limit).Find(&records).Error; err != nil {
		return nil, fmt.Errorf("fetch audit entries: %w", err)
	}

	entries := make([]Entry, 0, len(records))
	for _, r := range records {
		entries = append(entries, Entry{
			ID:         r.ID,
			Method:     r.Method,
			Path:       r.Path,
			Handler:    r.Handler,
			Identity:   r.Identity,
			IP:         r.IP,
			StartedAt:  r.StartedAt,
			StoppedAt:  r.StoppedAt,
			DurationMs: r.DurationMs,
			Status:     r.Status,
			Allowed:    r.Allowed,
			Reason:     r.Reason,
			TraceID:    r.TraceID,
		})
	}
	return entries, nil
}
