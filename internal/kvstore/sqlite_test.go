package kvstore

import (
	"context"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
)

func openTestSQLite(t *testing.T) *SQLite {
	t.Helper()
	store, err := OpenSQLite(filepath.Join(t.TempDir(), "kv.db"), zap.NewNop())
	if err != nil {
		t.Fatalf("failed to open sqlite store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("failed to close sqlite store: %v", err)
		}
	})
	return store
}

func TestSQLiteRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := openTestSQLite(t)

	if err := store.Set(ctx, "alpha", "one"); err != nil {
		t.Fatalf("unexpected set error: %v", err)
	}

	value, ok, err := store.Get(ctx, "alpha")
	if err != nil {
		t.Fatalf("unexpected get error: %v", err)
	}
	if !ok || value != "one" {
		t.Fatalf("expected stored value, got %q ok=%v", value, ok)
	}
}

func TestSQLiteOverwrite(t *testing.T) {
	ctx := context.Background()
	store := openTestSQLite(t)

	if err := store.Set(ctx, "alpha", "one"); err != nil {
		t.Fatalf("unexpected set error: %v", err)
	}
	if err := store.Set(ctx, "alpha", "two"); err != nil {
		t.Fatalf("unexpected overwrite error: %v", err)
	}

	value, ok, err := store.Get(ctx, "alpha")
	if err != nil || !ok {
		t.Fatalf("unexpected get result: ok=%v err=%v", ok, err)
	}
	if value != "two" {
		t.Fatalf("expected overwritten value, got %q", value)
	}
}

func TestSQLiteRemove(t *testing.T) {
	ctx := context.Background()
	store := openTestSQLite(t)

	if err := store.Set(ctx, "alpha", "one"); err != nil {
		t.Fatalf("unexpected set error: %v", err)
	}
	if err := store.Set(ctx, "beta", "two"); err != nil {
		t.Fatalf("unexpected set error: %v", err)
	}
	if err := store.Remove(ctx, "alpha", "beta", "missing"); err != nil {
		t.Fatalf("unexpected remove error: %v", err)
	}

	if _, ok, _ := store.Get(ctx, "alpha"); ok {
		t.Fatalf("expected alpha to be removed")
	}
	if _, ok, _ := store.Get(ctx, "beta"); ok {
		t.Fatalf("expected beta to be removed")
	}
}

func TestSQLiteGetMissingKey(t *testing.T) {
	store := openTestSQLite(t)
	_, ok, err := store.Get(context.Background(), "absent")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatalf("expected missing key")
	}
}
