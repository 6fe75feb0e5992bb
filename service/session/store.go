package session

import (
	"context"
	"sync"
	"time"
)

// Store 清单存储
type Store interface {
	Get(ctx context.Context, id string) (*Checklist, error)
	Save(ctx context.Context, c *Checklist) error
	Delete(ctx context.Context, id string) error
	// Sweep 删除 now 之前过期的清单，返回被删除的ID
	Sweep(ctx context.Context, now time.Time) ([]string, error)
	Close() error
}

// MemoryStore 进程内存储
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]*Checklist
	now   func() time.Time
}

// NewMemoryStore 创建内存存储
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string]*Checklist), now: time.Now}
}

// Get 实现 Store
func (m *MemoryStore) Get(_ context.Context, id string) (*Checklist, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.items[id]
	if !ok || (!c.ExpiresAt.IsZero() && !m.now().Before(c.ExpiresAt)) {
		return nil, ErrNotFound
	}
	return c.Clone(), nil
}

// Save 实现 Store
func (m *MemoryStore) Save(_ context.Context, c *Checklist) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[c.ID] = c.Clone()
	return nil
}

// Delete 实现 Store
func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.items[id]; !ok {
		return ErrNotFound
	}
	delete(m.items, id)
	return nil
}

// Sweep 实现 Store
func (m *MemoryStore) Sweep(_ context.Context, now time.Time) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var removed []string
	for id, c := range m.items {
		if !c.ExpiresAt.IsZero() && !now.Before(c.ExpiresAt) {
			delete(m.items, id)
			removed = append(removed, id)
		}
	}
	return removed, nil
}

// Len 当前保存的清单数量
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}

// Close 实现 Store
func (m *MemoryStore) Close() error {
	return nil
}
