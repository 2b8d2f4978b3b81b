// Package history persists a log of game lifecycle events: session
// starts, phase entries, aborts and outcomes. Nothing is ever read back
// into a running game; sessions rebuild from scratch on restart.
package history

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	EventSessionStart = "session_start"
	EventPhase        = "phase"
	EventAbort        = "abort"
	EventGameEnd      = "game_end"
)

type Entry struct {
	ID        string    `gorm:"primaryKey;column:id"`
	Timestamp time.Time `gorm:"column:timestamp;not null;index:idx_history_timestamp"`
	SessionID string    `gorm:"column:session_id;not null;index:idx_history_session"`
	EventType string    `gorm:"column:event_type;not null"`
	Phase     string    `gorm:"column:phase;not null;default:''"`
	Detail    string    `gorm:"column:detail;not null;default:''"`
}

func (Entry) TableName() string {
	return "game_history"
}

type Recorder struct {
	db  *gorm.DB
	log *slog.Logger
}

// Open creates (or migrates) the history database at dsn.
func Open(dsn string, log *slog.Logger) (*Recorder, error) {
	if log == nil {
		log = slog.Default()
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Discard,
	})
	if err != nil {
		return nil, fmt.Errorf("history: opening database: %w", err)
	}
	if err := db.AutoMigrate(&Entry{}); err != nil {
		return nil, fmt.Errorf("history: running migrations: %w", err)
	}

	return &Recorder{db: db, log: log}, nil
}

// Record appends one event. Failures are logged, never propagated; the
// game must not stall on its own bookkeeping.
func (r *Recorder) Record(ctx context.Context, sessionID, event, phase, detail string) {
	entry := Entry{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		SessionID: sessionID,
		EventType: event,
		Phase:     phase,
		Detail:    detail,
	}
	if err := r.db.WithContext(ctx).Create(&entry).Error; err != nil {
		r.log.Warn("history: recording event failed",
			slog.String("event", event),
			slog.String("err", err.Error()),
		)
	}
}

// Recent returns the latest n entries, newest first.
func (r *Recorder) Recent(ctx context.Context, n int) ([]Entry, error) {
	var entries []Entry
	err := r.db.WithContext(ctx).
		Order("timestamp DESC").
		Limit(n).
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("history: listing entries: %w", err)
	}
	return entries, nil
}

func (r *Recorder) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
