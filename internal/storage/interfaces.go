package storage

import (
	"context"

	"strategy-lab/internal/domain"
)

// RecordStore is a byte-level key/value store for JSON documents.
type RecordStore interface {
	// Save writes value under key, replacing any previous value.
	Save(ctx context.Context, key string, value []byte) error

	// Load returns the value stored under key. Returns ErrNotFound if missing.
	Load(ctx context.Context, key string) ([]byte, error)

	// List returns all keys with the given prefix, sorted ascending.
	List(ctx context.Context, prefix string) ([]string, error)

	// Delete removes key. Returns ErrNotFound if missing.
	Delete(ctx context.Context, key string) error
}

// BarStore provides access to OHLCV bars.
type BarStore interface {
	// InsertBulk adds bars atomically. Returns ErrDuplicateKey if any
	// (symbol, timeframe, timestamp) exists or repeats within the batch.
	InsertBulk(ctx context.Context, bars []*domain.Bar) error

	// GetRange returns bars for symbol and timeframe within [from, to]
	// (inclusive), ordered by timestamp ASC.
	GetRange(ctx context.Context, symbol, timeframe string, from, to int64) ([]*domain.Bar, error)
}
