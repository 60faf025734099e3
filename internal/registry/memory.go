package registry

import (
	"context"
	"sync"
)

// MemoryRepository keeps entries in memory
type MemoryRepository struct {
	mu      sync.Mutex
	entries map[string]Entry
}

// NewMemoryRepository creates an empty in-memory repository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{entries: make(map[string]Entry)}
}

func (m *MemoryRepository) List(ctx context.Context) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Entry, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, e)
	}
	return out, nil
}

func (m *MemoryRepository) Save(ctx context.Context, e Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[e.EntityID] = e
	return nil
}

func (m *MemoryRepository) Delete(ctx context.Context, entityIDs ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range entityIDs {
		delete(m.entries, id)
	}
	return nil
}
