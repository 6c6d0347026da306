package storage

import (
	"context"
	"sync"
)

type object struct {
	data        []byte
	contentType string
}

// MemoryStore is a BinaryStore kept in process, used for local runs and
// tests.
type MemoryStore struct {
	mu      sync.Mutex
	objects map[string]object
}

var _ BinaryStore = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string]object)}
}

func (m *MemoryStore) Put(_ context.Context, path string, data []byte, contentType string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[path] = object{data: append([]byte(nil), data...), contentType: contentType}
	return "memory://" + path, nil
}

func (m *MemoryStore) Delete(_ context.Context, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, path)
	return nil
}

// Get returns the stored bytes and content type of path.
func (m *MemoryStore) Get(path string) ([]byte, string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	obj, ok := m.objects[path]
	return obj.data, obj.contentType, ok
}

func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}
