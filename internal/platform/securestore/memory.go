package securestore

import (
	"context"
	"fmt"
	"sync"
)

type memoryStore struct {
	items map[string][]byte
	mutex sync.RWMutex
}

// NewMemory builds an in-memory secure store. State is lost on restart,
// which is fine for tests and pure-webview builds with no native features.
func NewMemory(_ Config) Store {
	return &memoryStore{
		items: make(map[string][]byte),
	}
}

func (s *memoryStore) Set(_ context.Context, key string, value []byte) error {
	if key == "" {
		return fmt.Errorf("key required")
	}
	buf := make([]byte, len(value))
	copy(buf, value)

	s.mutex.Lock()
	s.items[key] = buf
	s.mutex.Unlock()
	return nil
}

func (s *memoryStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mutex.RLock()
	value, ok := s.items[key]
	s.mutex.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	buf := make([]byte, len(value))
	copy(buf, value)
	return buf, nil
}

func (s *memoryStore) Delete(_ context.Context, key string) error {
	s.mutex.Lock()
	delete(s.items, key)
	s.mutex.Unlock()
	return nil
}

func (s *memoryStore) Keys(_ context.Context) ([]string, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	keys := make([]string, 0, len(s.items))
	for key := range s.items {
		keys = append(keys, key)
	}
	return keys, nil
}

func (s *memoryStore) Close(_ context.Context) error {
	return nil
}
