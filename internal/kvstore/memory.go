package kvstore

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Memory is a map-backed Store used for tests and ephemeral sessions.
// An optional quota makes it reject writes the way a constrained device
// store would, so quota-fallback paths can be exercised.
type Memory struct {
	mu     sync.Mutex
	values map[string]string
	quota  int
}

// NewMemory returns an unbounded in-memory store.
func NewMemory() *Memory {
	return &Memory{values: make(map[string]string)}
}

// NewMemoryWithQuota returns an in-memory store that rejects writes once
// the sum of stored key and value bytes would exceed quotaBytes.
func NewMemoryWithQuota(quotaBytes int) *Memory {
	return &Memory{values: make(map[string]string), quota: quotaBytes}
}

func (m *Memory) Get(ctx context.Context, key string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	if strings.TrimSpace(key) == "" {
		return "", false, ErrInvalidKey
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	value, ok := m.values[key]
	return value, ok, nil
}

func (m *Memory) Set(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(key) == "" {
		return ErrInvalidKey
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.quota > 0 {
		projected := m.usageLocked() + len(value)
		if existing, ok := m.values[key]; ok {
			projected -= len(existing)
		} else {
			projected += len(key)
		}
		if projected > m.quota {
			return fmt.Errorf("%w: %d bytes over %d byte quota", ErrQuotaExceeded, projected-m.quota, m.quota)
		}
	}
	m.values[key] = value
	return nil
}

func (m *Memory) Remove(ctx context.Context, keys ...string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.values, key)
	}
	return nil
}

// Len reports the number of stored keys.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.values)
}

// Keys returns a snapshot of the stored keys in unspecified order.
func (m *Memory) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.values))
	for key := range m.values {
		keys = append(keys, key)
	}
	return keys
}

func (m *Memory) usageLocked() int {
	total := 0
	for key, value := range m.values {
		total += len(key) + len(value)
	}
	return total
}
