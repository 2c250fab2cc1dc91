package memory

import (
	"context"
	"sync"

	"aidance/internal/storage"
)

// KV is an in-process storage.KV. Values are copied on the way in and out.
type KV struct {
	mu    sync.Mutex
	quota int64
	used  int64
	items map[string][]byte
}

// New returns an empty store. quota caps the sum of value sizes; 0 means
// unlimited.
func New(quota int64) *KV {
	return &KV{quota: quota, items: make(map[string][]byte)}
}

// NewFromDir returns a store seeded with the seed files found in dir.
func NewFromDir(ctx context.Context, dir string, quota int64) (*KV, error) {
	kv := New(quota)
	if _, err := storage.SeedFromDir(ctx, kv, dir); err != nil {
		return nil, err
	}
	return kv, nil
}

func (m *KV) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.items[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (m *KV) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	next := m.used - int64(len(m.items[key])) + int64(len(value))
	if m.quota > 0 && next > m.quota {
		return storage.ErrQuotaExceeded
	}
	m.items[key] = append([]byte(nil), value...)
	m.used = next
	return nil
}

func (m *KV) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.items[key]; ok {
		m.used -= int64(len(v))
		delete(m.items, key)
	}
	return nil
}

// Used returns the bytes currently stored.
func (m *KV) Used() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.used
}

// Len returns the number of stored keys.
func (m *KV) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}
