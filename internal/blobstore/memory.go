package blobstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/formbridge/formbridge/internal/common"
)

// MemoryStore is an in-process Store for tests and local runs without S3.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string][]byte)}
}

func (m *MemoryStore) Put(_ context.Context, role BucketRole, key string, body []byte, _ string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]byte, len(body))
	copy(cp, body)
	m.objects[string(role)+"/"+key] = cp
	return fmt.Sprintf("memory://%s/%s", role, key), nil
}

func (m *MemoryStore) Get(_ context.Context, role BucketRole, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.objects[string(role)+"/"+key]
	if !ok {
		return nil, common.NewAppError("MEMORY_GET", fmt.Sprintf("object %s/%s", role, key), common.ErrNotFound)
	}
	return b, nil
}

// Len reports the number of stored objects.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}

var _ Store = (*MemoryStore)(nil)
