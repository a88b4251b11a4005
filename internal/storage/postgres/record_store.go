package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"strategy-lab/internal/storage"
)

// RecordStore implements storage.RecordStore on the records table.
// Values must be JSON documents; they are stored as jsonb.
type RecordStore struct {
	pool *Pool
}

// NewRecordStore creates a new RecordStore.
func NewRecordStore(pool *Pool) *RecordStore {
	return &RecordStore{pool: pool}
}

// Compile-time interface check.
var _ storage.RecordStore = (*RecordStore)(nil)

// Save upserts value under key.
func (s *RecordStore) Save(ctx context.Context, key string, value []byte) error {
	if key == "" {
		return storage.ErrInvalidInput
	}
	query := `
		INSERT INTO records (key, value, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE
		SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at
	`
	if _, err := s.pool.Exec(ctx, query, key, value); err != nil {
		return fmt.Errorf("upsert record %s: %w", key, err)
	}
	return nil
}

// Load returns the value stored under key.
func (s *RecordStore) Load(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.pool.QueryRow(ctx, `SELECT value FROM records WHERE key = $1`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get record %s: %w", key, err)
	}
	return value, nil
}

// List returns keys starting with prefix, sorted ascending.
func (s *RecordStore) List(ctx context.Context, prefix string) ([]string, error) {
	query := `SELECT key FROM records WHERE key LIKE $1 ORDER BY key COLLATE "C" ASC`

	rows, err := s.pool.Query(ctx, query, escapeLike(prefix)+"%")
	if err != nil {
		return nil, fmt.Errorf("list records %s: %w", prefix, err)
	}
	defer rows.Close()

	keys := []string{}
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("scan record key: %w", err)
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate record keys: %w", err)
	}
	return keys, nil
}

// Delete removes key.
func (s *RecordStore) Delete(ctx context.Context, key string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM records WHERE key = $1`, key)
	if err != nil {
		return fmt.Errorf("delete record %s: %w", key, err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// escapeLike quotes LIKE wildcards using the default backslash escape.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
