package securestore

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:test-%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	return db
}

func TestSQLiteStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	db := newTestSQLiteDB(t)

	store, err := NewSQLite(db, Config{})
	if err != nil {
		t.Fatalf("NewSQLite error: %v", err)
	}

	payload := []byte(`{"entitlements":["premium"]}`)
	if err := store.Set(ctx, "iap_customer_info", payload); err != nil {
		t.Fatalf("Set error: %v", err)
	}

	got, err := store.Get(ctx, "iap_customer_info")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if string(got) != string(payload) {
		t.Fatalf("unexpected value: %s", got)
	}

	// Overwrite replaces, not duplicates.
	if err := store.Set(ctx, "iap_customer_info", []byte(`{"entitlements":[]}`)); err != nil {
		t.Fatalf("Set overwrite error: %v", err)
	}
	keys, err := store.Keys(ctx)
	if err != nil {
		t.Fatalf("Keys error: %v", err)
	}
	if len(keys) != 1 {
		t.Fatalf("expected single key after overwrite: %v", keys)
	}

	if err := store.Delete(ctx, "iap_customer_info"); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	if _, err := store.Get(ctx, "iap_customer_info"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}
