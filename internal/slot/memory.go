package slot

import (
	"context"
	"sync"
)

// Memory is an in-process slot. Values are copied on the way in and out.
type Memory struct {
	mu     sync.RWMutex
	values map[string][]byte

	// Error injection for testing
	GetErr error
	PutErr error
}

// NewMemory creates an empty in-memory slot.
func NewMemory() *Memory {
	return &Memory{values: make(map[string][]byte)}
}

// Get implements Slot.
func (m *Memory) Get(ctx context.Context, key string) ([]byte, error) {
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

// Put implements Slot.
func (m *Memory) Put(ctx context.Context, key string, value []byte) error {
	if m.PutErr != nil {
		return m.PutErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = append([]byte(nil), value...)
	return nil
}

// Close implements Slot.
func (m *Memory) Close() error { return nil }
