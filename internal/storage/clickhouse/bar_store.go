package clickhouse

import (
	"context"
	"fmt"

	"strategy-lab/internal/domain"
	"strategy-lab/internal/storage"
)

// BarStore implements storage.BarStore using ClickHouse.
type BarStore struct {
	conn *Conn
}

// NewBarStore creates a new BarStore.
func NewBarStore(conn *Conn) *BarStore {
	return &BarStore{conn: conn}
}

// Compile-time interface check.
var _ storage.BarStore = (*BarStore)(nil)

type seriesKey struct {
	symbol    string
	timeframe string
}

// InsertBulk adds bars. Fails entire batch on duplicate (symbol, timeframe, timestamp_ms).
func (s *BarStore) InsertBulk(ctx context.Context, bars []*domain.Bar) error {
	if len(bars) == 0 {
		return nil
	}

	// Check for intra-batch duplicates and collect the span per series
	type span struct{ from, to int64 }
	spans := make(map[seriesKey]*span)
	seen := make(map[seriesKey]map[int64]struct{})
	for _, b := range bars {
		if b == nil || b.Symbol == "" {
			return storage.ErrInvalidInput
		}
		k := seriesKey{b.Symbol, b.Timeframe}
		if seen[k] == nil {
			seen[k] = make(map[int64]struct{})
			spans[k] = &span{from: b.TimestampMs, to: b.TimestampMs}
		}
		if _, exists := seen[k][b.TimestampMs]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k][b.TimestampMs] = struct{}{}
		if b.TimestampMs < spans[k].from {
			spans[k].from = b.TimestampMs
		}
		if b.TimestampMs > spans[k].to {
			spans[k].to = b.TimestampMs
		}
	}

	// Check for duplicates against existing rows, one range query per series
	for k, sp := range spans {
		existing, err := s.timestamps(ctx, k, sp.from, sp.to)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		for _, ts := range existing {
			if _, dup := seen[k][ts]; dup {
				return storage.ErrDuplicateKey
			}
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO bars (
			symbol, timeframe, timestamp_ms, open, high, low, close, volume
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, b := range bars {
		err = batch.Append(
			b.Symbol, b.Timeframe, b.TimestampMs,
			b.Open, b.High, b.Low, b.Close, b.Volume,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetRange retrieves bars within [from, to] (inclusive), ordered by timestamp ASC.
func (s *BarStore) GetRange(ctx context.Context, symbol, timeframe string, from, to int64) ([]*domain.Bar, error) {
	query := `
		SELECT symbol, timeframe, timestamp_ms, open, high, low, close, volume
		FROM bars
		WHERE symbol = ? AND timeframe = ? AND timestamp_ms >= ? AND timestamp_ms <= ?
		ORDER BY timestamp_ms ASC
	`

	rows, err := s.conn.Query(ctx, query, symbol, timeframe, from, to)
	if err != nil {
		return nil, fmt.Errorf("query bar range: %w", err)
	}
	defer rows.Close()

	return scanBars(rows)
}

// timestamps returns the stored timestamps of a series within [from, to].
func (s *BarStore) timestamps(ctx context.Context, k seriesKey, from, to int64) ([]int64, error) {
	query := `
		SELECT timestamp_ms FROM bars
		WHERE symbol = ? AND timeframe = ? AND timestamp_ms >= ? AND timestamp_ms <= ?
	`

	rows, err := s.conn.Query(ctx, query, k.symbol, k.timeframe, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var ts int64
		if err := rows.Scan(&ts); err != nil {
			return nil, err
		}
		out = append(out, ts)
	}
	return out, rows.Err()
}

// Rows interface for scanning
type chRows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}

// scanBars scans multiple rows into a slice.
func scanBars(rows chRows) ([]*domain.Bar, error) {
	var bars []*domain.Bar

	for rows.Next() {
		var b domain.Bar
		err := rows.Scan(
			&b.Symbol, &b.Timeframe, &b.TimestampMs,
			&b.Open, &b.High, &b.Low, &b.Close, &b.Volume,
		)
		if err != nil {
			return nil, fmt.Errorf("scan bar row: %w", err)
		}
		bars = append(bars, &b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bar rows: %w", err)
	}

	return bars, nil
}
