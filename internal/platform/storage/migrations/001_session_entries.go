package migrations

import (
	"gorm.io/gorm"
)

// Migration001SessionEntries 创建持久化会话条目表
type Migration001SessionEntries struct{}

func (m *Migration001SessionEntries) Version() string {
	return "001_session_entries"
}

func (m *Migration001SessionEntries) Description() string {
	return "Create session_entries table for persisted auth state"
}

func (m *Migration001SessionEntries) Up(db *gorm.DB) error {
	if err := db.Exec(`
		CREATE TABLE IF NOT EXISTS session_entries (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			namespace VARCHAR(64) NOT NULL DEFAULT '',
			entry_key VARCHAR(255) NOT NULL,
			value JSON NOT NULL,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL,
			expires_at DATETIME
		)
	`).Error; err != nil {
		return err
	}
	return db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_session_entries_ns_key
		ON session_entries (namespace, entry_key)
	`).Error
}

func (m *Migration001SessionEntries) Down(db *gorm.DB) error {
	return db.Exec(`DROP TABLE IF EXISTS session_entries`).Error
}
