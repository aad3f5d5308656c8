package store

import (
	"context"
	"sort"
	"sync"
)

// Memory is a Store that lives only as long as the process.
type Memory struct {
	mu   sync.Mutex
	data map[string]map[string]string
}

func NewMemory() *Memory {
	return &Memory{data: make(map[string]map[string]string)}
}

func (m *Memory) GetValue(_ context.Context, key, subkey string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key][subkey]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (m *Memory) SetValue(_ context.Context, key, subkey, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setLocked(key, subkey, value)
	return nil
}

func (m *Memory) UpdateValue(_ context.Context, key, subkey string, fn UpdateFunc) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, found := m.data[key][subkey]
	next, err := fn(current, found)
	if err != nil {
		return err
	}
	m.setLocked(key, subkey, next)
	return nil
}

func (m *Memory) DeleteValue(_ context.Context, key, subkey string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data[key], subkey)
	return nil
}

func (m *Memory) Subkeys(_ context.Context, key string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.data[key]))
	for sub := range m.data[key] {
		out = append(out, sub)
	}
	sort.Strings(out)
	return out, nil
}

func (m *Memory) Close() error { return nil }

func (m *Memory) setLocked(key, subkey, value string) {
	bucket, ok := m.data[key]
	if !ok {
		bucket = make(map[string]string)
		m.data[key] = bucket
	}
	bucket[subkey] = value
}
