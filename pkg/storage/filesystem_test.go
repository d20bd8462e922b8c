package storage

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLocalStorageSaveOpenDelete(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	rel, err := store.Save("reports/hw3.xlsx", []byte("sheet"))
	require.NoError(t, err)
	require.Equal(t, "reports/hw3.xlsx", rel)

	file, err := store.Open(rel)
	require.NoError(t, err)
	_ = file.Close()

	_, err = store.SaveStream("uploads/hw3.zip", strings.NewReader("zip"))
	require.NoError(t, err)
	data, err := os.ReadFile(store.Path("uploads/hw3.zip"))
	require.NoError(t, err)
	require.Equal(t, "zip", string(data))

	require.NoError(t, store.Delete(rel))
	require.NoError(t, store.Delete(rel))
	_, err = store.Open(rel)
	require.Error(t, err)
}

func TestLocalStorageRejectsEscapingPaths(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	_, err = store.Save("../outside.txt", []byte("x"))
	require.Error(t, err)
	_, err = store.Open("/etc/passwd")
	require.Error(t, err)
	require.Empty(t, store.Path("../../x"))
}

func TestLocalStorageCleanupOlderThan(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	_, err = store.Save("old.csv", []byte("old"))
	require.NoError(t, err)
	_, err = store.Save("new.csv", []byte("new"))
	require.NoError(t, err)
	past := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(store.Path("old.csv"), past, past))

	deleted, err := store.CleanupOlderThan(time.Hour)
	require.NoError(t, err)
	require.Equal(t, []string{"old.csv"}, deleted)
	_, err = os.Stat(store.Path("new.csv"))
	require.NoError(t, err)
}
