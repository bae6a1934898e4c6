package storage

import (
	"fmt"
	"strings"
	"sync"
)

// MemoryStore 进程内实现，用于测试和 --ephemeral 模式
// MemoryStore is an in-process Store used by tests and --ephemeral runs
type MemoryStore struct {
	mu      sync.Mutex
	values  map[string]string
	authLog []AuthEntry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

func (m *MemoryStore) Get(key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *MemoryStore) Set(key, value string) error {
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("key is empty")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *MemoryStore) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

func (m *MemoryStore) LogAuth(entry AuthEntry) error {
	if strings.TrimSpace(entry.CreatedAt) == "" {
		entry.CreatedAt = nowUTC()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.authLog = append(m.authLog, entry)
	return nil
}

func (m *MemoryStore) ListAuthLog(limit int) ([]AuthEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := clampLimit(limit, len(m.authLog))
	return append([]AuthEntry(nil), m.authLog[len(m.authLog)-n:]...), nil
}

func (m *MemoryStore) Close() error { return nil }
