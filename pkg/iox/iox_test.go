package iox

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func listDir(t *testing.T, dir string) []string {
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := []string{}
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	dst := filepath.Join(dir, "a.txt")
	require.NoError(t, WriteFile(dst, []byte("hello")))
	b, err := os.ReadFile(dst)
	require.NoError(t, err)
	require.Equal(t, "hello", string(b))
	require.Equal(t, []string{"a.txt"}, listDir(t, dir))

	require.NoError(t, WriteStreamToFile(dst, strings.NewReader("world")))
	b, _ = os.ReadFile(dst)
	require.Equal(t, "world", string(b))
}

func TestWriteFileAtomicFailure(t *testing.T) {
	dir := t.TempDir()
	dst := filepath.Join(dir, "a.txt")
	require.NoError(t, WriteFile(dst, []byte("original")))

	boom := errors.New("boom")
	err := WriteFileAtomic(dst, func(w io.Writer) error {
		w.Write([]byte("partial"))
		return boom
	})
	require.ErrorIs(t, err, boom)

	// The original is intact, and no temporary file is left behind
	b, _ := os.ReadFile(dst)
	require.Equal(t, "original", string(b))
	require.Equal(t, []string{"a.txt"}, listDir(t, dir))

	// Missing directory
	require.Error(t, WriteFile(filepath.Join(dir, "nope", "b.txt"), nil))
}
