package configlibsql

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOpenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "archive.db")
	db, err := Struct{File: path}.OpenDB()
	require.NoError(t, err)
	defer db.Close()

	var mode string
	require.NoError(t, db.QueryRow("PRAGMA journal_mode").Scan(&mode))
	require.Equal(t, "wal", mode)
	require.FileExists(t, path)
}

func TestOpenRequiresTarget(t *testing.T) {
	_, err := Struct{}.OpenDB()
	require.Error(t, err)
}
