package repository

import (
	"context"
	"sync"
)

// MemStore is an in-memory Store for tests and persistence-free runs.
type MemStore struct {
	mu   sync.RWMutex
	data map[string]map[string][]byte
}

// NewMemStore returns an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{data: make(map[string]map[string][]byte)}
}

func (s *MemStore) Get(ctx context.Context, ns, key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.data[ns][key]
	return value, ok, nil
}

func (s *MemStore) Put(ctx context.Context, ns, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data[ns] == nil {
		s.data[ns] = make(map[string][]byte)
	}
	s.data[ns][key] = append([]byte{}, value...)
	return nil
}

func (s *MemStore) Delete(ctx context.Context, ns, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data[ns], key)
	return nil
}

func (s *MemStore) List(ctx context.Context, ns string) (map[string][]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string][]byte, len(s.data[ns]))
	for k, v := range s.data[ns] {
		out[k] = append([]byte{}, v...)
	}
	return out, nil
}

func (s *MemStore) Close() error { return nil }
