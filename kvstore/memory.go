package kvstore

import (
	"context"
	"fmt"
	"sync"
)

// MemoryBackend is a process-local Backend. A positive quota bounds the total
// bytes held across keys, which makes capacity failures reproducible.
type MemoryBackend struct {
	mu    sync.Mutex
	data  map[string][]byte
	quota int
}

// NewMemory returns an empty MemoryBackend; quota <= 0 means unbounded.
func NewMemory(quota int) *MemoryBackend {
	return &MemoryBackend{data: make(map[string][]byte), quota: quota}
}

func (m *MemoryBackend) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, true, nil
}

func (m *MemoryBackend) Put(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.quota > 0 {
		used := len(value)
		for k, v := range m.data {
			if k != key {
				used += len(v)
			}
		}
		if used > m.quota {
			return fmt.Errorf("%w: %d of %d bytes", ErrCapacityExceeded, used, m.quota)
		}
	}
	stored := make([]byte, len(value))
	copy(stored, value)
	m.data[key] = stored
	return nil
}

func (m *MemoryBackend) Close() error { return nil }
