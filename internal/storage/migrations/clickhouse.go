package migrations

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	chstore "strategy-lab/internal/storage/clickhouse"
)

// RunClickhouseMigrations creates the DSN's database when missing, then runs
// every embedded script against it. The driver takes one statement per Exec,
// so scripts are split first and must stay idempotent.
// The returned connection targets that database.
func RunClickhouseMigrations(ctx context.Context, dsn string) (*chstore.Conn, error) {
	db, err := databaseFromDSN(dsn)
	if err != nil {
		return nil, err
	}
	scripts, err := loadScripts(ClickhouseFS, "clickhouse")
	if err != nil {
		return nil, err
	}
	if err := ensureDatabase(ctx, dsn, db); err != nil {
		return nil, err
	}

	conn, err := chstore.NewConnWithDatabase(ctx, dsn, db)
	if err != nil {
		return nil, fmt.Errorf("connect clickhouse %s: %w", db, err)
	}
	for _, s := range scripts {
		for _, stmt := range statements(s.SQL) {
			if err := conn.Exec(ctx, stmt); err != nil {
				conn.Close()
				return nil, fmt.Errorf("apply migration %s: %w", s.Version, err)
			}
		}
	}
	return conn, nil
}

func ensureDatabase(ctx context.Context, dsn, db string) error {
	server, err := chstore.NewConnWithDatabase(ctx, dsn, "")
	if err != nil {
		return fmt.Errorf("connect clickhouse server: %w", err)
	}
	defer server.Close()

	if err := server.Exec(ctx, "CREATE DATABASE IF NOT EXISTS `"+db+"`"); err != nil {
		return fmt.Errorf("create database %s: %w", db, err)
	}
	return nil
}

func databaseFromDSN(dsn string) (string, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return "", fmt.Errorf("parse clickhouse dsn: %w", err)
	}
	db := strings.TrimPrefix(u.Path, "/")
	if db == "" || strings.ContainsAny(db, "/`") {
		return "", fmt.Errorf("clickhouse dsn needs a database name, got %q", u.Path)
	}
	return db, nil
}
