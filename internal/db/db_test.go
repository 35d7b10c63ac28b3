package db

import (
	"context"
	"path/filepath"
	"testing"

	"defectlog/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Handle {
	t.Helper()

	cfg := &types.Config{
		DatabaseDriver:      types.DatabaseDriverSQLite,
		DataDir:             filepath.Join(t.TempDir(), "data"),
		SQLiteBusyTimeoutMs: 1000,
	}

	h, err := Open(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { h.Close() })

	return h
}

func tableNames(t *testing.T, h *Handle) []string {
	t.Helper()

	rows, err := h.DB.Query(`SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`)
	require.NoError(t, err)
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		require.NoError(t, rows.Scan(&name))
		names = append(names, name)
	}
	require.NoError(t, rows.Err())
	return names
}

func TestOpen_SQLiteUsesWAL(t *testing.T) {
	h := openTestStore(t)

	var mode string
	require.NoError(t, h.DB.QueryRow("PRAGMA journal_mode").Scan(&mode))
	assert.Equal(t, "wal", mode)
	assert.Equal(t, DialectSQLite, h.Dialect)
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := Open(context.Background(), &types.Config{DatabaseDriver: "oracle"})
	assert.ErrorIs(t, err, types.ErrStore)
}

func TestOpen_PostgresRequiresURL(t *testing.T) {
	_, err := Open(context.Background(), &types.Config{DatabaseDriver: types.DatabaseDriverPostgres})
	assert.ErrorIs(t, err, types.ErrStore)
}

func TestMigrate_Idempotent(t *testing.T) {
	h := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, Migrate(ctx, h, nil))
	first := tableNames(t, h)

	require.NoError(t, Migrate(ctx, h, nil))
	second := tableNames(t, h)

	assert.Equal(t, first, second)
	assert.Contains(t, first, "defects")
	assert.Contains(t, first, "preferences")
}

func TestMigrate_NilHandle(t *testing.T) {
	err := Migrate(context.Background(), nil, nil)
	assert.ErrorIs(t, err, types.ErrStore)
}

func TestPragmasDSN(t *testing.T) {
	p := sqlitePragmas{BusyTimeoutMs: 250, ForeignKeys: true}

	assert.Equal(t,
		"/tmp/x.db?_pragma=busy_timeout%28250%29&_pragma=foreign_keys%281%29",
		p.dsn("/tmp/x.db"))
	assert.Equal(t,
		"file:/tmp/x.db?cache=shared&_pragma=busy_timeout%28250%29&_pragma=foreign_keys%281%29",
		p.dsn("file:/tmp/x.db?cache=shared"))
	assert.Equal(t, "/tmp/x.db", sqlitePragmas{}.dsn("/tmp/x.db"))
}

func TestSQLiteFilePath(t *testing.T) {
	assert.Equal(t, "/a/b.db", sqliteFilePath("file:/a/b.db?cache=shared"))
	assert.Equal(t, "", sqliteFilePath(":memory:"))
	assert.Equal(t, "", sqliteFilePath("file:x?mode=memory"))
}
