package ledger

import (
	"sync"

	"levelgen/internal/level"
)

// MemoryStore keeps checksums for the lifetime of the process.
type MemoryStore struct {
	mu     sync.RWMutex
	sums   map[Key]level.Checksums
	closed bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sums: make(map[Key]level.Checksums)}
}

func (m *MemoryStore) Load(key Key) (level.Checksums, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, false, ErrClosed
	}
	sums, ok := m.sums[key]
	if !ok {
		return nil, false, nil
	}
	return cloneSums(sums), true, nil
}

func (m *MemoryStore) Save(key Key, sums level.Checksums) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	m.sums[key] = cloneSums(sums)
	return nil
}

func (m *MemoryStore) Delete(key Key) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	delete(m.sums, key)
	return nil
}

func (m *MemoryStore) ForEach(fn func(key Key, sums level.Checksums) bool) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return ErrClosed
	}
	for key, sums := range m.sums {
		if !fn(key, cloneSums(sums)) {
			break
		}
	}
	return nil
}

func (m *MemoryStore) Close() error {
	m.mu.Lock()
	m.closed = true
	m.sums = nil
	m.mu.Unlock()
	return nil
}
