package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"strategy-lab/internal/domain"
	"strategy-lab/internal/storage"
)

// BarStore is an in-memory implementation of storage.BarStore.
type BarStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Bar // keyed by (symbol, timeframe, timestamp_ms)
}

// NewBarStore creates a new in-memory bar store.
func NewBarStore() *BarStore {
	return &BarStore{
		data: make(map[string]*domain.Bar),
	}
}

func barKey(symbol, timeframe string, timestampMs int64) string {
	return fmt.Sprintf("%s|%s|%d", symbol, timeframe, timestampMs)
}

// InsertBulk adds multiple bars. Fails entire batch on duplicate.
func (s *BarStore) InsertBulk(_ context.Context, bars []*domain.Bar) error {
	if len(bars) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[string]struct{}, len(bars))

	// First pass: check for duplicates (existing + intra-batch)
	for _, b := range bars {
		if b == nil || b.Symbol == "" {
			return storage.ErrInvalidInput
		}
		key := barKey(b.Symbol, b.Timeframe, b.TimestampMs)
		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	// Second pass: insert all
	for _, b := range bars {
		barCopy := *b
		s.data[barKey(b.Symbol, b.Timeframe, b.TimestampMs)] = &barCopy
	}

	return nil
}

// GetRange retrieves bars within [from, to] (inclusive), ordered by timestamp ASC.
func (s *BarStore) GetRange(_ context.Context, symbol, timeframe string, from, to int64) ([]*domain.Bar, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Bar
	for _, b := range s.data {
		if b.Symbol == symbol && b.Timeframe == timeframe && b.TimestampMs >= from && b.TimestampMs <= to {
			barCopy := *b
			result = append(result, &barCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].TimestampMs < result[j].TimestampMs
	})

	return result, nil
}

var _ storage.BarStore = (*BarStore)(nil)
