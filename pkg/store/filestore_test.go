package store

import (
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFileStore(t *testing.T) *FileStore {
	logger := logrus.New()
	logger.SetOutput(io.Discard) // Discard logs during tests

	s, err := NewFileStore(t.TempDir(), logger)
	require.NoError(t, err)
	return s
}

func TestSave(t *testing.T) {
	s := newTestFileStore(t)
	ctx := context.Background()

	t.Run("collision suffixes", func(t *testing.T) {
		for i, want := range []string{"a.txt", "a_1.txt", "a_2.txt"} {
			name, err := s.Save(ctx, "a.txt", strings.NewReader("upload "+want))
			require.NoError(t, err)
			assert.Equal(t, want, name, "upload %d", i+1)
		}

		// Each variant keeps its own contents
		for _, name := range []string{"a.txt", "a_1.txt", "a_2.txt"} {
			data, err := os.ReadFile(filepath.Join(s.Dir(), name))
			require.NoError(t, err)
			assert.Equal(t, "upload "+name, string(data))
		}
	})

	t.Run("dotfile collision keeps the leading dot", func(t *testing.T) {
		name, err := s.Save(ctx, ".bashrc", strings.NewReader("one"))
		require.NoError(t, err)
		assert.Equal(t, ".bashrc", name)

		name, err = s.Save(ctx, ".bashrc", strings.NewReader("two"))
		require.NoError(t, err)
		assert.Equal(t, ".bashrc_1", name)
	})

	t.Run("collision without extension", func(t *testing.T) {
		name, err := s.Save(ctx, "README", strings.NewReader("one"))
		require.NoError(t, err)
		assert.Equal(t, "README", name)

		name, err = s.Save(ctx, "README", strings.NewReader("two"))
		require.NoError(t, err)
		assert.Equal(t, "README_1", name)
	})

	t.Run("invalid names", func(t *testing.T) {
		for _, name := range []string{"", ".", "..", "a/b.txt", `a\b.txt`, "a\x00b.txt", "../escape.txt"} {
			_, err := s.Save(ctx, name, strings.NewReader("x"))
			assert.ErrorIs(t, err, ErrInvalidName, "name %q", name)
		}

		// Nothing was written outside or inside the store
		entries, err := s.List(ctx)
		require.NoError(t, err)
		for _, e := range entries {
			assert.NotContains(t, e.Name, "escape")
		}
	})
}

func TestList(t *testing.T) {
	s := newTestFileStore(t)
	ctx := context.Background()

	t.Run("empty directory", func(t *testing.T) {
		entries, err := s.List(ctx)
		require.NoError(t, err)
		assert.Empty(t, entries)
	})

	t.Run("newest first, directories skipped", func(t *testing.T) {
		require.NoError(t, os.WriteFile(filepath.Join(s.Dir(), "old.txt"), []byte("old"), 0644))
		require.NoError(t, os.WriteFile(filepath.Join(s.Dir(), "new.txt"), []byte("newer"), 0644))
		require.NoError(t, os.Mkdir(filepath.Join(s.Dir(), "subdir"), 0755))

		base := time.Now().Add(-time.Hour)
		require.NoError(t, os.Chtimes(filepath.Join(s.Dir(), "old.txt"), base, base))
		require.NoError(t, os.Chtimes(filepath.Join(s.Dir(), "new.txt"), base.Add(time.Minute), base.Add(time.Minute)))

		entries, err := s.List(ctx)
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, "new.txt", entries[0].Name)
		assert.Equal(t, "old.txt", entries[1].Name)
		assert.Equal(t, int64(5), entries[0].Size)
	})
}

func TestDelete(t *testing.T) {
	s := newTestFileStore(t)
	ctx := context.Background()

	t.Run("existing file", func(t *testing.T) {
		path := filepath.Join(s.Dir(), "victim.txt")
		require.NoError(t, os.WriteFile(path, []byte("x"), 0644))

		require.NoError(t, s.Delete(ctx, "victim.txt"))
		_, err := os.Stat(path)
		assert.ErrorIs(t, err, fs.ErrNotExist)
	})

	t.Run("missing file", func(t *testing.T) {
		err := s.Delete(ctx, "ghost.txt")
		assert.ErrorIs(t, err, fs.ErrNotExist)
	})

	t.Run("traversal name", func(t *testing.T) {
		err := s.Delete(ctx, "../outside.txt")
		assert.ErrorIs(t, err, ErrInvalidName)
	})

	t.Run("directory", func(t *testing.T) {
		require.NoError(t, os.Mkdir(filepath.Join(s.Dir(), "adir"), 0755))
		err := s.Delete(ctx, "adir")
		assert.ErrorIs(t, err, fs.ErrNotExist)
	})
}

func TestOpen(t *testing.T) {
	s := newTestFileStore(t)
	ctx := context.Background()

	t.Run("streams contents", func(t *testing.T) {
		require.NoError(t, os.WriteFile(filepath.Join(s.Dir(), "data.bin"), []byte("payload"), 0644))

		f, info, err := s.Open(ctx, "data.bin")
		require.NoError(t, err)
		defer f.Close()

		data, err := io.ReadAll(f)
		require.NoError(t, err)
		assert.Equal(t, "payload", string(data))
		assert.Equal(t, int64(7), info.Size())
	})

	t.Run("missing file", func(t *testing.T) {
		_, _, err := s.Open(ctx, "ghost.bin")
		assert.ErrorIs(t, err, fs.ErrNotExist)
	})

	t.Run("traversal name", func(t *testing.T) {
		_, _, err := s.Open(ctx, "../../etc/passwd")
		assert.ErrorIs(t, err, ErrInvalidName)
	})
}
