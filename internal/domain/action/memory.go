package action

import (
	"context"
	"sync"
)

// MemoryRepository is a volatile Repository used as a fallback when the
// on-device store cannot be opened, and by tests. Queued actions held here
// do not survive a restart.
type MemoryRepository struct {
	mu      sync.RWMutex
	actions map[string]*QueuedAction
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{actions: make(map[string]*QueuedAction)}
}

func (m *MemoryRepository) Save(_ context.Context, a *QueuedAction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *a
	m.actions[a.ID] = &clone
	return nil
}

func (m *MemoryRepository) Get(_ context.Context, id string) (*QueuedAction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.actions[id]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *a
	return &clone, nil
}

func (m *MemoryRepository) List(_ context.Context) ([]*QueuedAction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	items := make([]*QueuedAction, 0, len(m.actions))
	for _, a := range m.actions {
		clone := *a
		items = append(items, &clone)
	}
	return items, nil
}

func (m *MemoryRepository) UpdateRetries(_ context.Context, id string, retries int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.actions[id]
	if !ok {
		return ErrNotFound
	}
	a.Retries = retries
	return nil
}

func (m *MemoryRepository) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.actions, id)
	return nil
}

func (m *MemoryRepository) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.actions = make(map[string]*QueuedAction)
	return nil
}

func (m *MemoryRepository) Count(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.actions), nil
}
