package cache

import (
	"context"
	"encoding/json"
	"sync"
)

// Memory is the in-process fallback used when no Redis address is
// configured, and the backend of choice in tests.
type Memory struct {
	mu      sync.RWMutex
	entries map[string][]byte
	tags    map[string]map[string]struct{} // tag -> keys
}

func NewMemory() *Memory {
	return &Memory{
		entries: make(map[string][]byte),
		tags:    make(map[string]map[string]struct{}),
	}
}

func (m *Memory) Get(_ context.Context, key string, dest any) (bool, error) {
	m.mu.RLock()
	raw, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dest)
}

func (m *Memory) Set(_ context.Context, tag, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = raw
	if m.tags[tag] == nil {
		m.tags[tag] = make(map[string]struct{})
	}
	m.tags[tag][key] = struct{}{}
	return nil
}

func (m *Memory) InvalidateTag(_ context.Context, tag string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key := range m.tags[tag] {
		delete(m.entries, key)
	}
	delete(m.tags, tag)
	return nil
}
