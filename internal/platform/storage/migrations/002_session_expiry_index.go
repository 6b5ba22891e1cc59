package migrations

import (
	"gorm.io/gorm"
)

// Migration002SessionExpiryIndex 为过期清理添加索引
type Migration002SessionExpiryIndex struct{}

func (m *Migration002SessionExpiryIndex) Version() string {
	return "002_session_expiry_index"
}

func (m *Migration002SessionExpiryIndex) Description() string {
	return "Index session_entries.expires_at for cleanup scans"
}

func (m *Migration002SessionExpiryIndex) Up(db *gorm.DB) error {
	return db.Exec(`CREATE INDEX IF NOT EXISTS idx_session_entries_expires_at ON session_entries (expires_at)`).Error
}

func (m *Migration002SessionExpiryIndex) Down(db *gorm.DB) error {
	return db.Exec(`DROP INDEX IF EXISTS idx_session_entries_expires_at`).Error
}
