package sys

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileOperations(t *testing.T) {
	tempDir := t.TempDir()

	t.Run("MkdirAllAndCreate", func(t *testing.T) {
		dir := filepath.Join(tempDir, "a", "b", "c")
		require.NoError(t, MkdirAll(dir, 0o755))

		f, err := Create(filepath.Join(dir, "data.tmp"))
		require.NoError(t, err)
		_, err = f.Write([]byte("hello world"))
		require.NoError(t, err)
		require.NoError(t, f.Close())
	})

	t.Run("RenameReplacesExisting", func(t *testing.T) {
		dir := filepath.Join(tempDir, "a", "b", "c")
		final := filepath.Join(dir, "data")
		require.NoError(t, os.WriteFile(final, []byte("old"), 0o644))

		require.NoError(t, Rename(filepath.Join(dir, "data.tmp"), final))

		f, err := Open(final)
		require.NoError(t, err)
		defer f.Close()
		got, err := io.ReadAll(f)
		require.NoError(t, err)
		assert.Equal(t, "hello world", string(got))
	})

	t.Run("SafeRemoveMissingIsNotError", func(t *testing.T) {
		assert.NoError(t, SafeRemove(filepath.Join(tempDir, "does-not-exist")))
	})

	t.Run("RemoveAll", func(t *testing.T) {
		require.NoError(t, RemoveAll(filepath.Join(tempDir, "a")))
		_, err := os.Stat(filepath.Join(tempDir, "a"))
		assert.True(t, os.IsNotExist(err))
	})
}

type failingMkdirFile struct {
	File
	err error
}

func (f *failingMkdirFile) MkdirAll(string, os.FileMode) error { return f.err }

func TestSetDefaultFile(t *testing.T) {
	injected := errors.New("injected mkdir failure")
	prev := SetDefaultFile(&failingMkdirFile{File: NewFile(), err: injected})
	t.Cleanup(func() { SetDefaultFile(prev) })

	err := MkdirAll(filepath.Join(t.TempDir(), "x"), 0o755)
	assert.ErrorIs(t, err, injected)
}
