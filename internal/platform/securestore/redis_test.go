package securestore

import (
	"context"
	"errors"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
)

func TestRedisStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer mr.Close()

	store, err := NewRedis(Config{
		Namespace: "shell",
		Redis: &RedisConfig{
			Addr: mr.Addr(),
		},
	})
	if err != nil {
		t.Fatalf("NewRedis error: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close(ctx)
	})

	if err := store.Set(ctx, "iap_last_sync", []byte(`"2026-08-28T00:00:00Z"`)); err != nil {
		t.Fatalf("Set error: %v", err)
	}

	value, err := store.Get(ctx, "iap_last_sync")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if string(value) != `"2026-08-28T00:00:00Z"` {
		t.Fatalf("unexpected value: %s", value)
	}

	keys, err := store.Keys(ctx)
	if err != nil {
		t.Fatalf("Keys error: %v", err)
	}
	if len(keys) != 1 || keys[0] != "iap_last_sync" {
		t.Fatalf("unexpected keys: %v", keys)
	}

	if err := store.Delete(ctx, "iap_last_sync"); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	if _, err := store.Get(ctx, "iap_last_sync"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestRedisStoreRequiresAddr(t *testing.T) {
	if _, err := NewRedis(Config{Redis: &RedisConfig{}}); err == nil {
		t.Fatal("expected error for missing redis address")
	}
}
