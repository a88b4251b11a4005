package migrations

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatements(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{
			name: "comments dropped",
			in:   "-- header\nCREATE TABLE a (x Int64);\n\n-- second; not a split\nCREATE TABLE b (y String)\nENGINE = MergeTree();\n",
			want: []string{"CREATE TABLE a (x Int64)", "CREATE TABLE b (y String)\nENGINE = MergeTree()"},
		},
		{
			name: "semicolon inside literal",
			in:   `INSERT INTO t VALUES ('a;b'); SELECT 1`,
			want: []string{`INSERT INTO t VALUES ('a;b')`, "SELECT 1"},
		},
		{
			name: "escaped quote",
			in:   `SELECT 'it\'s;'; SELECT "x;y"`,
			want: []string{`SELECT 'it\'s;'`, `SELECT "x;y"`},
		},
		{
			name: "dashes inside literal",
			in:   `SELECT '--keep'`,
			want: []string{`SELECT '--keep'`},
		},
		{
			name: "only comments",
			in:   "-- nothing here\n;\n",
			want: nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, statements(tt.in))
		})
	}
}

func TestLoadScripts(t *testing.T) {
	fsys := fstest.MapFS{
		"pg/002_runs.sql":    {Data: []byte("CREATE TABLE runs ();")},
		"pg/001_records.sql": {Data: []byte("CREATE TABLE records ();")},
		"pg/003_blank.sql":   {Data: []byte("  \n")},
		"pg/README.md":       {Data: []byte("ignored")},
	}

	scripts, err := loadScripts(fsys, "pg")
	require.NoError(t, err)
	require.Len(t, scripts, 2)
	assert.Equal(t, "001_records", scripts[0].Version)
	assert.Equal(t, "002_runs", scripts[1].Version)
	assert.Equal(t, "CREATE TABLE runs ();", scripts[1].SQL)
}

func TestDatabaseFromDSN(t *testing.T) {
	db, err := databaseFromDSN("clickhouse://default:@localhost:9000/lab")
	require.NoError(t, err)
	assert.Equal(t, "lab", db)

	for _, dsn := range []string{"clickhouse://localhost:9000", "clickhouse://localhost:9000/a`b"} {
		_, err := databaseFromDSN(dsn)
		assert.Error(t, err, dsn)
	}
}

func TestEmbeddedScripts(t *testing.T) {
	pg, err := loadScripts(PostgresFS, "postgres")
	require.NoError(t, err)
	assert.NotEmpty(t, pg)

	ch, err := loadScripts(ClickhouseFS, "clickhouse")
	require.NoError(t, err)
	require.NotEmpty(t, ch)
	for _, s := range ch {
		assert.NotEmpty(t, statements(s.SQL), s.Version)
	}
}
