// Package state persists client-local data: the saved session and the
// per-conversation unread snapshots used by the watcher.
package state

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SessionRecord is the single persisted session row. ID is always 1.
type SessionRecord struct {
	ID        uint   `gorm:"primaryKey"`
	Token     string `gorm:"type:text"`
	Principal string `gorm:"type:text"` // JSON-encoded principal
	UpdatedAt time.Time
}

// UnreadSnapshot remembers the last observed unread count per conversation,
// so the watcher can report only newly arrived messages.
type UnreadSnapshot struct {
	ConversationID  int `gorm:"primaryKey"`
	ParticipantName string
	UnreadCount     int
	ObservedAt      time.Time
}

// AllModels returns the GORM models for migration.
func AllModels() []interface{} {
	return []interface{}{
		&SessionRecord{},
		&UnreadSnapshot{},
	}
}

// Open connects to the sqlite state database at path, creating parent
// directories and migrating the schema as needed.
func Open(path string) (*gorm.DB, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("state: create %s: %w", dir, err)
		}
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("state: open %s: %w", path, err)
	}
	if err := AutoMigrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// AutoMigrate creates or updates the state tables.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("state: auto-migrate: %w", err)
	}
	return nil
}

// SaveSession upserts the single session row.
func SaveSession(db *gorm.DB, token, principal string) error {
	rec := SessionRecord{ID: 1, Token: token, Principal: principal, UpdatedAt: time.Now()}
	if err := db.Save(&rec).Error; err != nil {
		return fmt.Errorf("state: save session: %w", err)
	}
	return nil
}

// LoadSession returns the saved session row, or (nil, nil) when none exists.
func LoadSession(db *gorm.DB) (*SessionRecord, error) {
	var rec SessionRecord
	err := db.First(&rec, 1).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("state: load session: %w", err)
	}
	return &rec, nil
}

// ClearSession deletes the saved session row, if any.
func ClearSession(db *gorm.DB) error {
	if err := db.Delete(&SessionRecord{}, 1).Error; err != nil {
		return fmt.Errorf("state: clear session: %w", err)
	}
	return nil
}

// SaveSnapshot upserts the unread snapshot for a conversation.
func SaveSnapshot(db *gorm.DB, snap UnreadSnapshot) error {
	snap.ObservedAt = time.Now()
	if err := db.Save(&snap).Error; err != nil {
		return fmt.Errorf("state: save snapshot %d: %w", snap.ConversationID, err)
	}
	return nil
}

// LoadSnapshots returns all unread snapshots keyed by conversation ID.
func LoadSnapshots(db *gorm.DB) (map[int]UnreadSnapshot, error) {
	var rows []UnreadSnapshot
	if err := db.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("state: load snapshots: %w", err)
	}
	out := make(map[int]UnreadSnapshot, len(rows))
	for _, r := range rows {
		out[r.ConversationID] = r
	}
	return out, nil
}
