package storage

import (
	"time"

	"gorm.io/datatypes"
)

// SessionEntry is one persisted key of client state, such as the token cookie or the session blob.
type SessionEntry struct {
	ID        uint           `gorm:"primaryKey"`
	Namespace string         `gorm:"size:64;not null;default:'';uniqueIndex:idx_session_entries_ns_key"`
	Key       string         `gorm:"column:entry_key;size:255;not null;uniqueIndex:idx_session_entries_ns_key"`
	Value     datatypes.JSON `gorm:"not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
	ExpiresAt *time.Time `gorm:"index:idx_session_entries_expires_at"`
}

// TableName 指定表名
func (SessionEntry) TableName() string {
	return "session_entries"
}

// Expired reports whether the entry has passed its expiry at the given instant.
func (e SessionEntry) Expired(now time.Time) bool {
	return e.ExpiresAt != nil && !now.Before(*e.ExpiresAt)
}
