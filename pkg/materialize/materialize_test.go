package materialize

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriter(t *testing.T) {
	t.Run("test_write_creates_parent_directories", func(t *testing.T) {
		root := filepath.Join(t.TempDir(), "out")
		w := NewWriter(root)

		n, err := w.Write("deep/nested/file.txt", []byte("hello"))
		require.NoError(t, err, "writing should not error")
		assert.Equal(t, 5, n, "byte count should match content length")

		got, err := os.ReadFile(filepath.Join(root, "deep", "nested", "file.txt"))
		require.NoError(t, err)
		assert.Equal(t, "hello", string(got))
	})

	t.Run("test_write_overwrites_existing_file", func(t *testing.T) {
		w := NewWriter(t.TempDir())

		_, err := w.Write("a.txt", []byte("old"))
		require.NoError(t, err)
		_, err = w.Write("a.txt", []byte("new content"))
		require.NoError(t, err, "overwriting should not error")

		got, err := os.ReadFile(filepath.Join(w.Root(), "a.txt"))
		require.NoError(t, err)
		assert.Equal(t, "new content", string(got), "last writer wins")
	})

	t.Run("test_rewrite_is_idempotent", func(t *testing.T) {
		w := NewWriter(t.TempDir())

		_, err := w.Write("a.txt", []byte("same"))
		require.NoError(t, err)
		_, err = w.Write("a.txt", []byte("same"))
		require.NoError(t, err, "re-running over existing output should not error")

		got, err := os.ReadFile(filepath.Join(w.Root(), "a.txt"))
		require.NoError(t, err)
		assert.Equal(t, "same", string(got))
	})

	t.Run("test_escaping_paths_rejected", func(t *testing.T) {
		w := NewWriter(t.TempDir())

		for _, rel := range []string{"../escape.txt", "a/../../b", "/abs.txt"} {
			_, err := w.Write(rel, []byte("x"))
			require.Error(t, err, "path %q should be rejected", rel)
		}

		entries, err := os.ReadDir(w.Root())
		require.NoError(t, err)
		assert.Empty(t, entries, "no files should have been written")
	})

	t.Run("test_sibling_named_like_temp_file_survives", func(t *testing.T) {
		// a repository can legitimately ship both "x" and "x.tmp";
		// concurrent writes of the pair must not clobber each other
		w := NewWriter(t.TempDir())

		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := w.Write("x", []byte("content of x"))
				assert.NoError(t, err)
			}()
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := w.Write("x.tmp", []byte("content of x.tmp"))
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		got, err := os.ReadFile(filepath.Join(w.Root(), "x"))
		require.NoError(t, err)
		assert.Equal(t, "content of x", string(got))

		got, err = os.ReadFile(filepath.Join(w.Root(), "x.tmp"))
		require.NoError(t, err)
		assert.Equal(t, "content of x.tmp", string(got))

		entries, err := os.ReadDir(w.Root())
		require.NoError(t, err)
		assert.Len(t, entries, 2, "no stray temp files remain")
	})

	t.Run("test_no_temp_file_left_behind", func(t *testing.T) {
		w := NewWriter(t.TempDir())

		_, err := w.Write("b.txt", []byte("content"))
		require.NoError(t, err)

		entries, err := os.ReadDir(w.Root())
		require.NoError(t, err)
		require.Len(t, entries, 1, "only the final file should exist")
		assert.Equal(t, "b.txt", entries[0].Name())
	})
}
