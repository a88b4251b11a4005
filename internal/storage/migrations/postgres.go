package migrations

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"strategy-lab/internal/storage/postgres"
)

const pgVersionTable = `
	CREATE TABLE IF NOT EXISTS schema_migrations (
		version     TEXT PRIMARY KEY,
		applied_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	)`

// RunPostgresMigrations applies embedded scripts not yet recorded in
// schema_migrations. Each script runs in its own transaction together with
// its version row.
func RunPostgresMigrations(ctx context.Context, pool *postgres.Pool) error {
	scripts, err := loadScripts(PostgresFS, "postgres")
	if err != nil {
		return err
	}
	if _, err := pool.Exec(ctx, pgVersionTable); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	applied, err := appliedVersions(ctx, pool)
	if err != nil {
		return err
	}

	for _, s := range scripts {
		if applied[s.Version] {
			continue
		}
		err := pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, s.SQL); err != nil {
				return err
			}
			_, err := tx.Exec(ctx, `INSERT INTO schema_migrations (version) VALUES ($1)`, s.Version)
			return err
		})
		if err != nil {
			return fmt.Errorf("apply migration %s: %w", s.Version, err)
		}
	}
	return nil
}

func appliedVersions(ctx context.Context, pool *postgres.Pool) (map[string]bool, error) {
	rows, err := pool.Query(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, fmt.Errorf("query schema_migrations: %w", err)
	}
	versions, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan schema_migrations: %w", err)
	}

	applied := make(map[string]bool, len(versions))
	for _, v := range versions {
		applied[v] = true
	}
	return applied, nil
}
