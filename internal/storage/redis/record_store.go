package redis

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-redis/redis/v8"

	"strategy-lab/internal/storage"
)

// DefaultNamespace prefixes every key written by RecordStore.
const DefaultNamespace = "lab:"

const scanCount = 100

// RecordStore implements storage.RecordStore using Redis strings.
type RecordStore struct {
	client    *redis.Client
	namespace string
}

// NewRecordStore creates a store that keeps keys under namespace.
// An empty namespace uses DefaultNamespace.
func NewRecordStore(client *redis.Client, namespace string) *RecordStore {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	return &RecordStore{client: client, namespace: namespace}
}

// Compile-time interface check.
var _ storage.RecordStore = (*RecordStore)(nil)

// Save writes value under key without expiry.
func (s *RecordStore) Save(ctx context.Context, key string, value []byte) error {
	if key == "" {
		return storage.ErrInvalidInput
	}
	if err := s.client.Set(ctx, s.namespace+key, value, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Load returns the value stored under key.
func (s *RecordStore) Load(ctx context.Context, key string) ([]byte, error) {
	val, err := s.client.Get(ctx, s.namespace+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	return val, nil
}

// List walks the keyspace with SCAN and returns matching keys sorted ascending.
func (s *RecordStore) List(ctx context.Context, prefix string) ([]string, error) {
	match := escapeGlob(s.namespace+prefix) + "*"

	seen := make(map[string]struct{})
	var cursor uint64
	for {
		keys, next, err := s.client.Scan(ctx, cursor, match, scanCount).Result()
		if err != nil {
			return nil, fmt.Errorf("redis scan %s: %w", prefix, err)
		}
		// SCAN may return a key more than once
		for _, k := range keys {
			seen[strings.TrimPrefix(k, s.namespace)] = struct{}{}
		}
		if next == 0 {
			break
		}
		cursor = next
	}

	result := make([]string, 0, len(seen))
	for k := range seen {
		result = append(result, k)
	}
	sort.Strings(result)
	return result, nil
}

// Delete removes key.
func (s *RecordStore) Delete(ctx context.Context, key string) error {
	n, err := s.client.Del(ctx, s.namespace+key).Result()
	if err != nil {
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// escapeGlob quotes the characters SCAN MATCH treats as patterns.
func escapeGlob(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
