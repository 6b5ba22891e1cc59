package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"hotel-admin-go/internal/platform/storage"
)

type sqliteStore struct {
	db        *gorm.DB
	namespace string
}

// NewSQLite builds a SQLite-backed session store on an already migrated database.
func NewSQLite(db *gorm.DB, cfg Config) (Store, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlite store requires database handle")
	}
	return &sqliteStore{db: db, namespace: cfg.Namespace}, nil
}

func (s *sqliteStore) scoped(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).Where("namespace = ?", s.namespace)
}

func (s *sqliteStore) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if key == "" {
		return fmt.Errorf("key required")
	}
	if !sonic.Valid(value) {
		return fmt.Errorf("value for %s is not valid json", key)
	}
	now := time.Now()
	entry := &storage.SessionEntry{
		Namespace: s.namespace,
		Key:       key,
		Value:     datatypes.JSON(value),
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: expiryFor(now, ttl),
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "namespace"}, {Name: "entry_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at", "expires_at"}),
	}).Create(entry).Error
}

func (s *sqliteStore) Get(ctx context.Context, key string) ([]byte, error) {
	var entry storage.SessionEntry
	err := s.scoped(ctx).Where("entry_key = ?", key).First(&entry).Error
	if errorsIsNotFound(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if entry.Expired(time.Now()) {
		_ = s.Remove(ctx, key)
		return nil, ErrNotFound
	}
	return []byte(entry.Value), nil
}

func (s *sqliteStore) Remove(ctx context.Context, key string) error {
	return s.scoped(ctx).Where("entry_key = ?", key).Delete(&storage.SessionEntry{}).Error
}

func (s *sqliteStore) List(ctx context.Context) ([]string, error) {
	var entries []storage.SessionEntry
	if err := s.scoped(ctx).Select("entry_key", "expires_at").Find(&entries).Error; err != nil {
		return nil, err
	}
	now := time.Now()
	keys := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.Expired(now) {
			keys = append(keys, e.Key)
		}
	}
	return keys, nil
}

func (s *sqliteStore) CleanupExpired(ctx context.Context) error {
	return s.scoped(ctx).
		Where("expires_at IS NOT NULL AND expires_at <= ?", time.Now()).
		Delete(&storage.SessionEntry{}).
		Error
}

func (s *sqliteStore) Stats(ctx context.Context) (map[string]any, error) {
	var total int64
	if err := s.scoped(ctx).Model(&storage.SessionEntry{}).Count(&total).Error; err != nil {
		return nil, err
	}
	return map[string]any{
		"type":      "sqlite",
		"total":     total,
		"namespace": s.namespace,
	}, nil
}

func (s *sqliteStore) Close(context.Context) error {
	return nil
}

func errorsIsNotFound(err error) bool {
	return err != nil && errors.Is(err, gorm.ErrRecordNotFound)
}
