package store

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
)

func TestNewSelectsDriver(t *testing.T) {
	ctx := context.Background()

	mem, err := New(Config{}, Dependencies{})
	if err != nil {
		t.Fatalf("memory driver error: %v", err)
	}
	defer mem.Close(ctx)
	if stats, _ := mem.Stats(ctx); stats["type"] != "memory" {
		t.Fatalf("expected memory store by default, got %v", stats)
	}

	if _, err := New(Config{Driver: DriverSQLite}, Dependencies{}); err == nil {
		t.Fatalf("sqlite driver without db should fail")
	}

	sqlite, err := New(Config{Driver: DriverSQLite}, Dependencies{SQLiteDB: newTestSQLiteDB(t)})
	if err != nil {
		t.Fatalf("sqlite driver error: %v", err)
	}
	if stats, _ := sqlite.Stats(ctx); stats["type"] != "sqlite" {
		t.Fatalf("expected sqlite store, got %v", stats)
	}

	mr := miniredis.RunT(t)
	rds, err := New(Config{Driver: DriverRedis, Redis: &RedisConfig{Addr: mr.Addr()}}, Dependencies{})
	if err != nil {
		t.Fatalf("redis driver error: %v", err)
	}
	defer rds.Close(ctx)

	if _, err := New(Config{Driver: "etcd"}, Dependencies{}); err == nil {
		t.Fatalf("expected unsupported driver error")
	}
}

func TestNewScopesEntriesToDefaultNamespace(t *testing.T) {
	ctx := context.Background()
	db := newTestSQLiteDB(t)

	st, err := New(Config{Driver: " SQLite "}, Dependencies{SQLiteDB: db})
	if err != nil {
		t.Fatalf("sqlite driver error: %v", err)
	}
	if err := st.Put(ctx, "auth-storage", []byte(`"tok"`), time.Hour); err != nil {
		t.Fatalf("put: %v", err)
	}

	scoped, _ := NewSQLite(db, Config{Namespace: DefaultNamespace})
	if got, err := scoped.Get(ctx, "auth-storage"); err != nil || string(got) != `"tok"` {
		t.Fatalf("entry not written under %q: %q %v", DefaultNamespace, got, err)
	}
	other, _ := NewSQLite(db, Config{Namespace: "kiosk"})
	if _, err := other.Get(ctx, "auth-storage"); err != ErrNotFound {
		t.Fatalf("entry leaked into another namespace: %v", err)
	}

	mr := miniredis.RunT(t)
	rds, err := New(Config{Driver: DriverRedis, Redis: &RedisConfig{Addr: mr.Addr()}}, Dependencies{})
	if err != nil {
		t.Fatalf("redis driver error: %v", err)
	}
	defer rds.Close(ctx)
	if err := rds.Put(ctx, "auth-storage", []byte(`"tok"`), 0); err != nil {
		t.Fatalf("redis put: %v", err)
	}
	if !mr.Exists("hotel-admin:session:console:auth-storage") {
		t.Fatalf("redis key not namespaced, keys: %v", mr.Keys())
	}
}
