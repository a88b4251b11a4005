// Package migrations holds the embedded schema for the record and bar stores.
package migrations

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
)

//go:embed postgres/*.sql
var PostgresFS embed.FS

//go:embed clickhouse/*.sql
var ClickhouseFS embed.FS

// script is one migration file. Version is the file name without .sql.
type script struct {
	Version string
	SQL     string
}

// loadScripts reads dir/*.sql from fsys ordered by version.
// Blank files are skipped.
func loadScripts(fsys fs.FS, dir string) ([]script, error) {
	names, err := fs.Glob(fsys, path.Join(dir, "*.sql"))
	if err != nil {
		return nil, fmt.Errorf("list %s migrations: %w", dir, err)
	}
	sort.Strings(names)

	scripts := make([]script, 0, len(names))
	for _, name := range names {
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", name, err)
		}
		if strings.TrimSpace(string(data)) == "" {
			continue
		}
		scripts = append(scripts, script{
			Version: strings.TrimSuffix(path.Base(name), ".sql"),
			SQL:     string(data),
		})
	}
	return scripts, nil
}

// statements splits a script on top-level semicolons.
// Quoted strings and -- comments are respected; comments are dropped.
func statements(sql string) []string {
	var (
		out   []string
		cur   strings.Builder
		quote byte
	)
	flush := func() {
		if s := strings.TrimSpace(cur.String()); s != "" {
			out = append(out, s)
		}
		cur.Reset()
	}

	for i := 0; i < len(sql); i++ {
		c := sql[i]
		switch {
		case quote != 0:
			cur.WriteByte(c)
			if c == '\\' && i+1 < len(sql) {
				i++
				cur.WriteByte(sql[i])
			} else if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"' || c == '`':
			quote = c
			cur.WriteByte(c)
		case c == '-' && i+1 < len(sql) && sql[i+1] == '-':
			for i < len(sql) && sql[i] != '\n' {
				i++
			}
			cur.WriteByte('\n')
		case c == ';':
			flush()
		default:
			cur.WriteByte(c)
		}
	}
	flush()
	return out
}
