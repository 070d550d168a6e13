package optimistic

import (
	"context"
	"sync"
)

// MemoryRepository is a volatile Repository used as a fallback when the
// on-device store cannot be opened, and by tests.
type MemoryRepository struct {
	mu      sync.RWMutex
	updates map[string]*Update
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{updates: make(map[string]*Update)}
}

func (m *MemoryRepository) Save(_ context.Context, u *Update) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *u
	m.updates[u.ID] = &clone
	return nil
}

func (m *MemoryRepository) Get(_ context.Context, id string) (*Update, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.updates[id]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *u
	return &clone, nil
}

func (m *MemoryRepository) List(_ context.Context) ([]*Update, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	items := make([]*Update, 0, len(m.updates))
	for _, u := range m.updates {
		clone := *u
		items = append(items, &clone)
	}
	return items, nil
}

func (m *MemoryRepository) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.updates, id)
	return nil
}

func (m *MemoryRepository) Count(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.updates), nil
}
