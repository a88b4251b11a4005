package clickhouse

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupTestDB starts a ClickHouse server, creates the bars schema from the
// repository migrations and returns a connection to the "lab" database.
func setupTestDB(t *testing.T) (*Conn, func()) {
	t.Helper()
	if testing.Short() {
		t.Skip("integration test")
	}
	ctx := context.Background()

	ctr, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "clickhouse/clickhouse-server:24.1-alpine",
			ExposedPorts: []string{"9000/tcp"},
			Env:          map[string]string{"CLICKHOUSE_DB": "lab"},
			WaitingFor: wait.ForAll(
				wait.ForLog("Ready for connections").WithStartupTimeout(time.Minute),
				wait.ForListeningPort("9000/tcp"),
			),
		},
		Started: true,
	})
	require.NoError(t, err, "start clickhouse")
	t.Cleanup(func() {
		if err := ctr.Terminate(context.Background()); err != nil {
			t.Logf("terminate clickhouse: %v", err)
		}
	})

	endpoint, err := ctr.PortEndpoint(ctx, "9000/tcp", "clickhouse")
	require.NoError(t, err)

	conn, err := NewConn(ctx, fmt.Sprintf("%s/lab", endpoint))
	require.NoError(t, err, "connect clickhouse")
	applySchema(t, conn)

	return conn, func() { conn.Close() }
}

// applySchema runs each migration file as one statement. The bar schema
// files hold a single CREATE each.
func applySchema(t *testing.T, conn *Conn) {
	t.Helper()
	files, err := filepath.Glob(filepath.Join("..", "migrations", "clickhouse", "*.sql"))
	require.NoError(t, err)
	require.NotEmpty(t, files, "no clickhouse migrations found")

	for _, f := range files {
		data, err := os.ReadFile(f)
		require.NoError(t, err)
		stmt := strings.TrimSuffix(strings.TrimSpace(string(data)), ";")
		require.NoError(t, conn.Exec(context.Background(), stmt), filepath.Base(f))
	}
}
