package db

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectSQLiteRunsMigrations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "chores.db")

	db, err := Connect(DriverSQLite, path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = os.Stat(path)
	require.NoError(t, err)

	var version int
	require.NoError(t, db.Get(&version, "SELECT MAX(version) FROM schema_version"))
	assert.Equal(t, len(migrations), version)

	var count int
	require.NoError(t, db.Get(&count, "SELECT COUNT(*) FROM chat_sessions"))
	assert.Equal(t, 0, count)
}

func TestConnectIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chores.db")

	first, err := Connect(DriverSQLite, path)
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := Connect(DriverSQLite, path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = second.Close() })

	var rows int
	require.NoError(t, second.Get(&rows, "SELECT COUNT(*) FROM schema_version"))
	assert.Equal(t, len(migrations), rows)
}

func TestConnectRejectsUnknownDriver(t *testing.T) {
	_, err := Connect("mysql", "x")
	assert.Error(t, err)
}
