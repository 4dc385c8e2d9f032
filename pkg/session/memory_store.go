package session

import (
	"context"
	"sync"
)

// MemoryStore is the default in-process Store. Safe for concurrent use.
type MemoryStore struct {
	mu    sync.RWMutex
	value string
	set   bool
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Get(ctx context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.set {
		return "", nil
	}
	return s.value, nil
}

func (s *MemoryStore) Set(ctx context.Context, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.value = value
	s.set = true
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.value = ""
	s.set = false
	return nil
}
