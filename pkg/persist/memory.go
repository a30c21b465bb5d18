package persist

import (
	"context"
	"sync"
)

// MemoryStore keeps the snapshot in memory. It survives nothing, which
// makes it useful for tests and for running without persistence.
type MemoryStore struct {
	mu   sync.Mutex
	data []byte
}

// NewMemoryStore creates an empty in-memory snapshot store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Save stores a copy of the snapshot.
func (m *MemoryStore) Save(ctx context.Context, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = append([]byte(nil), data...)
	return nil
}

// Load returns a copy of the stored snapshot, or (nil, nil) if none
// has been saved.
func (m *MemoryStore) Load(ctx context.Context) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		return nil, nil
	}
	return append([]byte(nil), m.data...), nil
}

// Close does nothing for the memory store.
func (m *MemoryStore) Close() error {
	return nil
}

var _ SnapshotStore = (*MemoryStore)(nil)
