package kvstore

import (
	"context"
	"errors"
	"testing"
)

func TestMemoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	if err := store.Set(ctx, "alpha", "one"); err != nil {
		t.Fatalf("unexpected set error: %v", err)
	}

	value, ok, err := store.Get(ctx, "alpha")
	if err != nil {
		t.Fatalf("unexpected get error: %v", err)
	}
	if !ok {
		t.Fatalf("expected key to be present")
	}
	if value != "one" {
		t.Fatalf("expected stored value, got %q", value)
	}

	if err := store.Remove(ctx, "alpha", "missing"); err != nil {
		t.Fatalf("unexpected remove error: %v", err)
	}
	if _, ok, _ := store.Get(ctx, "alpha"); ok {
		t.Fatalf("expected key to be removed")
	}
}

func TestMemoryGetMissingKey(t *testing.T) {
	store := NewMemory()
	_, ok, err := store.Get(context.Background(), "absent")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatalf("expected missing key")
	}
}

func TestMemoryRejectsEmptyKey(t *testing.T) {
	store := NewMemory()
	if err := store.Set(context.Background(), "  ", "value"); !errors.Is(err, ErrInvalidKey) {
		t.Fatalf("expected invalid key error, got %v", err)
	}
}

func TestMemoryQuotaExceeded(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryWithQuota(16)

	if err := store.Set(ctx, "k", "small"); err != nil {
		t.Fatalf("unexpected set error: %v", err)
	}

	err := store.Set(ctx, "big", "this value is far too large for the quota")
	if !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("expected quota exceeded, got %v", err)
	}

	// The rejected write must not disturb existing data.
	value, ok, err := store.Get(ctx, "k")
	if err != nil || !ok || value != "small" {
		t.Fatalf("expected original value to survive, got %q ok=%v err=%v", value, ok, err)
	}
}

func TestMemoryQuotaAllowsOverwrite(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryWithQuota(32)

	if err := store.Set(ctx, "entry", "aaaaaaaaaaaaaaaaaaaa"); err != nil {
		t.Fatalf("unexpected set error: %v", err)
	}
	// Replacing a value of equal size stays within quota.
	if err := store.Set(ctx, "entry", "bbbbbbbbbbbbbbbbbbbb"); err != nil {
		t.Fatalf("expected overwrite to fit quota, got %v", err)
	}
}
