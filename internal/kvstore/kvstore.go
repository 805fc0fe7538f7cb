package kvstore

import (
	"context"
	"errors"
)

var (
	// ErrQuotaExceeded indicates that a backend rejected a write because of its size.
	ErrQuotaExceeded = errors.New("kvstore: quota exceeded")
	// ErrInvalidKey indicates an empty or unusable key.
	ErrInvalidKey = errors.New("kvstore: invalid key")
)

// Store is the minimal key-value contract the cache layers build on:
// string keys, string values, no query or cross-key transaction operators.
type Store interface {
	// Get returns the stored value for key. The second return reports
	// whether the key was present.
	Get(ctx context.Context, key string) (string, bool, error)
	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error
	// Remove deletes the given keys. Missing keys are not an error.
	Remove(ctx context.Context, keys ...string) error
}
