package badger

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/rapport/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenBackend_InMemory(t *testing.T) {
	backend, err := OpenBackend("", true)
	require.NoError(t, err)
	require.NotNil(t, backend)
	defer backend.Close()

	assert.False(t, backend.IsClosed())
}

func TestOpenBackend_FileSystem(t *testing.T) {
	tmpDir := filepath.Join(t.TempDir(), "nested", "db")
	backend, err := OpenBackend(tmpDir, false)
	require.NoError(t, err)
	require.NotNil(t, backend)
	defer backend.Close()

	info, err := os.Stat(tmpDir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestOpenBackend_NotADirectory(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "file.txt")
	require.NoError(t, os.WriteFile(tmpFile, []byte("x"), 0644))

	_, err := OpenBackend(tmpFile, false)
	assert.Error(t, err)
}

func TestBackendClose(t *testing.T) {
	backend, err := OpenBackend("", true)
	require.NoError(t, err)

	assert.False(t, backend.IsClosed())
	require.NoError(t, backend.Close())
	assert.True(t, backend.IsClosed())

	err = backend.WithTx(context.Background(), func(tx *badger.Txn) error { return nil }, false)
	assert.ErrorIs(t, err, storage.ErrStorageClosed)
}

func TestWithTx_CanceledContext(t *testing.T) {
	backend, err := OpenBackend("", true)
	require.NoError(t, err)
	defer backend.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err = backend.WithTx(ctx, func(tx *badger.Txn) error {
		called = true
		return nil
	}, true)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestWithRetry_RetriesConflicts(t *testing.T) {
	backend, err := OpenBackend("", true)
	require.NoError(t, err)
	defer backend.Close()

	attempts := 0
	err = backend.WithRetry(context.Background(), func(tx *badger.Txn) error {
		attempts++
		if attempts < 2 {
			return badger.ErrConflict
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, attempts)

	attempts = 0
	err = backend.WithRetry(context.Background(), func(tx *badger.Txn) error {
		attempts++
		return badger.ErrConflict
	})
	assert.ErrorIs(t, err, badger.ErrConflict)
	assert.Equal(t, maxConflictRetries, attempts)
}

func TestMatchKeys(t *testing.T) {
	ab := makeMatchKey("a", "b")
	ba := makeMatchKey("b", "a")
	ac := makeMatchKey("a", "c")

	assert.NotEqual(t, ab, ba, "edges are directed")
	assert.Equal(t, makePartialMatchKey("a"), ab[:len(makePartialMatchKey("a"))])
	assert.Equal(t, makePartialMatchKey("a"), ac[:len(makePartialMatchKey("a"))])
	assert.Equal(t, "u-1", userIDFromProfileKey(makeProfileKey("u-1")))
}
