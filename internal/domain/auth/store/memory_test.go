package store

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryStoreBasicLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewMemory(Config{
		Memory: &MemoryConfig{GCInterval: 10 * time.Millisecond},
	})
	t.Cleanup(func() {
		_ = store.Close(ctx)
	})

	if err := store.Put(ctx, "auth-storage", []byte(`"tok-1"`), time.Hour); err != nil {
		t.Fatalf("Put returned error: %v", err)
	}

	got, err := store.Get(ctx, "auth-storage")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if string(got) != `"tok-1"` {
		t.Fatalf("unexpected value: %s", got)
	}

	keys, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(keys) != 1 || keys[0] != "auth-storage" {
		t.Fatalf("unexpected keys: %v", keys)
	}

	if err := store.Remove(ctx, "auth-storage"); err != nil {
		t.Fatalf("Remove returned error: %v", err)
	}
	if _, err := store.Get(ctx, "auth-storage"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after removal, got %v", err)
	}
}

func TestMemoryStoreExpiry(t *testing.T) {
	ctx := context.Background()
	store := NewMemory(Config{Memory: &MemoryConfig{GCInterval: 5 * time.Millisecond}})
	t.Cleanup(func() { _ = store.Close(ctx) })

	if err := store.Put(ctx, "short", []byte(`1`), 20*time.Millisecond); err != nil {
		t.Fatalf("Put error: %v", err)
	}
	if err := store.Put(ctx, "forever", []byte(`2`), 0); err != nil {
		t.Fatalf("Put error: %v", err)
	}

	time.Sleep(60 * time.Millisecond)

	if _, err := store.Get(ctx, "short"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected expired entry to be gone, got %v", err)
	}
	if _, err := store.Get(ctx, "forever"); err != nil {
		t.Fatalf("entry without ttl should survive: %v", err)
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats error: %v", err)
	}
	if stats["total"].(int) != 1 {
		t.Fatalf("gc loop should have dropped the expired entry: %v", stats)
	}
}

func TestMemoryStoreCopiesValues(t *testing.T) {
	ctx := context.Background()
	store := NewMemory(Config{})
	t.Cleanup(func() { _ = store.Close(ctx) })

	buf := []byte(`{"a":1}`)
	if err := store.Put(ctx, "k", buf, 0); err != nil {
		t.Fatalf("Put error: %v", err)
	}
	buf[2] = 'b'

	got, _ := store.Get(ctx, "k")
	if string(got) != `{"a":1}` {
		t.Fatalf("stored value aliased caller buffer: %s", got)
	}
	if err := store.Put(ctx, "", buf, 0); err == nil {
		t.Fatalf("expected error for empty key")
	}
}
