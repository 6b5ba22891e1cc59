package store

import (
	"context"
	"fmt"
	"sync"
	"time"
)

type memoryEntry struct {
	value     []byte
	expiresAt *time.Time
}

func (e memoryEntry) live(now time.Time) bool {
	return e.expiresAt == nil || now.Before(*e.expiresAt)
}

type memoryStore struct {
	items       map[string]memoryEntry
	mutex       sync.RWMutex
	cleanupFreq time.Duration
	stop        chan struct{}
	stopOnce    sync.Once
}

// NewMemory builds an in-memory session store.
func NewMemory(cfg Config) Store {
	cleanup := 5 * time.Minute
	if cfg.Memory != nil && cfg.Memory.GCInterval > 0 {
		cleanup = cfg.Memory.GCInterval
	}
	s := &memoryStore{
		items:       make(map[string]memoryEntry),
		cleanupFreq: cleanup,
		stop:        make(chan struct{}),
	}
	go s.gcLoop()
	return s
}

func (s *memoryStore) gcLoop() {
	ticker := time.NewTicker(s.cleanupFreq)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			_ = s.CleanupExpired(context.Background())
		case <-s.stop:
			return
		}
	}
}

func (s *memoryStore) Put(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if key == "" {
		return fmt.Errorf("key required")
	}
	buf := make([]byte, len(value))
	copy(buf, value)

	s.mutex.Lock()
	s.items[key] = memoryEntry{value: buf, expiresAt: expiryFor(time.Now(), ttl)}
	s.mutex.Unlock()
	return nil
}

func (s *memoryStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mutex.RLock()
	entry, ok := s.items[key]
	s.mutex.RUnlock()
	if !ok || !entry.live(time.Now()) {
		return nil, ErrNotFound
	}
	out := make([]byte, len(entry.value))
	copy(out, entry.value)
	return out, nil
}

func (s *memoryStore) Remove(_ context.Context, key string) error {
	s.mutex.Lock()
	delete(s.items, key)
	s.mutex.Unlock()
	return nil
}

func (s *memoryStore) List(_ context.Context) ([]string, error) {
	now := time.Now()
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	keys := make([]string, 0, len(s.items))
	for key, entry := range s.items {
		if entry.live(now) {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

func (s *memoryStore) CleanupExpired(_ context.Context) error {
	now := time.Now()
	s.mutex.Lock()
	for key, entry := range s.items {
		if !entry.live(now) {
			delete(s.items, key)
		}
	}
	s.mutex.Unlock()
	return nil
}

func (s *memoryStore) Stats(_ context.Context) (map[string]any, error) {
	now := time.Now()
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	active := 0
	for _, entry := range s.items {
		if entry.live(now) {
			active++
		}
	}
	return map[string]any{
		"type":   "memory",
		"total":  len(s.items),
		"active": active,
	}, nil
}

func (s *memoryStore) Close(_ context.Context) error {
	s.stopOnce.Do(func() {
		close(s.stop)
	})
	return nil
}
