package store

import (
	"sync"
)

// MemoryStore is an in-memory implementation of Store.
// Useful for testing; Save only counts calls.
type MemoryStore struct {
	mu    sync.RWMutex
	data  map[string]any
	saves int
}

// NewMemoryStore creates a new in-memory store seeded with data.
func NewMemoryStore(data map[string]any) *MemoryStore {
	s := &MemoryStore{data: make(map[string]any, len(data))}
	for k, v := range data {
		s.data[k] = v
	}
	return s
}

func (s *MemoryStore) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.data[key]
	return v, ok
}

func (s *MemoryStore) GetString(key string) string {
	v, _ := s.Get(key)
	str, _ := v.(string)
	return str
}

func (s *MemoryStore) Set(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[key] = value
}

func (s *MemoryStore) Remove(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.data, key)
}

func (s *MemoryStore) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.saves++
	return nil
}

// Saves returns how many times Save was called.
func (s *MemoryStore) Saves() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.saves
}
