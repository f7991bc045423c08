package storage

import (
	"context"
	"sync"
)

// MemoryStore is an in-process Store. Values are copied on the way in
// and out so callers cannot mutate stored bytes.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[Address][]byte
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[Address][]byte)}
}

func (m *MemoryStore) Put(ctx context.Context, addr Address, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(data) == 0 {
		return ErrEmptyContent
	}
	buf := make([]byte, len(data))
	copy(buf, data)

	m.mu.Lock()
	m.data[addr] = buf
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, addr Address) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.data[addr]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (m *MemoryStore) Has(ctx context.Context, addr Address) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	m.mu.RLock()
	_, ok := m.data[addr]
	m.mu.RUnlock()
	return ok, nil
}

func (m *MemoryStore) Delete(ctx context.Context, addr Address) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.data[addr]; !ok {
		return ErrNotFound
	}
	delete(m.data, addr)
	return nil
}

func (m *MemoryStore) Size(ctx context.Context, addr Address) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.data[addr]
	if !ok {
		return 0, ErrNotFound
	}
	return int64(len(v)), nil
}

func (m *MemoryStore) List(ctx context.Context) ([]Address, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Address, 0, len(m.data))
	for a := range m.data {
		out = append(out, a)
	}
	return out, nil
}

// Len returns the number of stored entries.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}

// Corrupt flips one byte of a stored value. Test helper for
// exercising integrity checks.
func (m *MemoryStore) Corrupt(addr Address, offset int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	v, ok := m.data[addr]
	if !ok || offset < 0 || offset >= len(v) {
		return false
	}
	v[offset] ^= 0xff
	return true
}
