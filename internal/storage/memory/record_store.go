package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"strategy-lab/internal/storage"
)

// RecordStore is an in-memory implementation of storage.RecordStore.
type RecordStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewRecordStore creates a new in-memory record store.
func NewRecordStore() *RecordStore {
	return &RecordStore{
		data: make(map[string][]byte),
	}
}

// Save writes value under key, replacing any previous value.
func (s *RecordStore) Save(_ context.Context, key string, value []byte) error {
	if key == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[key] = append([]byte(nil), value...)
	return nil
}

// Load returns a copy of the value stored under key.
func (s *RecordStore) Load(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.data[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

// List returns keys with the given prefix, sorted ascending.
func (s *RecordStore) List(_ context.Context, prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := []string{}
	for k := range s.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Delete removes key.
func (s *RecordStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data[key]; !ok {
		return storage.ErrNotFound
	}
	delete(s.data, key)
	return nil
}

var _ storage.RecordStore = (*RecordStore)(nil)
