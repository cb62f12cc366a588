package store

import (
	"context"
	"sync"

	"github.com/vk/tablegrid/internal/frame"
)

// Memory keeps snapshots in process. Written frames are copied.
type Memory struct {
	mu   sync.RWMutex
	data map[string]map[Key]*frame.Frame
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{data: make(map[string]map[Key]*frame.Frame)}
}

func (m *Memory) Write(_ context.Context, path, tag, table string, data *frame.Frame) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data[path] == nil {
		m.data[path] = make(map[Key]*frame.Frame)
	}
	m.data[path][Key{Tag: tag, Table: table}] = data.Copy()
	return nil
}

func (m *Memory) Read(_ context.Context, path, tag, table string) (*frame.Frame, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	f, ok := m.data[path][Key{Tag: tag, Table: table}]
	if !ok {
		return nil, notFound(path, tag, table)
	}
	return f.Copy(), nil
}

func (m *Memory) List(_ context.Context, path string) ([]Key, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]Key, 0, len(m.data[path]))
	for k := range m.data[path] {
		keys = append(keys, k)
	}
	sortKeys(keys)
	return keys, nil
}

func (m *Memory) Close() error { return nil }
