package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/cyclopcam/logs"
	"github.com/cyclopcam/labelconv/pkg/iox"
)

// StorageFS is a filesystem-based blob store
type StorageFS struct {
	Root string
	log  logs.Log
}

func NewStorageFS(log logs.Log, root string) (*StorageFS, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(absRoot, 0755); err != nil {
		return nil, fmt.Errorf("Failed to create root directory %v (relative path %v): %w", absRoot, root, err)
	}
	return &StorageFS{
		Root: absRoot,
		log:  log,
	}, nil
}

// Filename returns the full path of name, which must be inside Root
func (fs *StorageFS) Filename(name string) (string, error) {
	return JoinUnder(fs.Root, name)
}

// WriteFile returns a writer that only becomes visible at name once it is
// closed without a prior write error.
func (fs *StorageFS) WriteFile(name string) (io.WriteCloser, error) {
	fullPath, err := fs.Filename(name)
	if err != nil {
		return nil, err
	}
	fs.log.Debugf("Writing file %v", name)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return nil, err
	}
	return newAtomicWriter(fullPath), nil
}

func (fs *StorageFS) ReadFile(name string) (*File, error) {
	fullPath, err := fs.Filename(name)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(fullPath)
	if err != nil {
		return nil, err
	}
	st, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, err
	}
	return &File{
		Reader:     file,
		ModifiedAt: st.ModTime(),
		Size:       st.Size(),
	}, nil
}

func (fs *StorageFS) DeleteFile(name string) error {
	fullPath, err := fs.Filename(name)
	if err != nil {
		return err
	}
	fs.log.Debugf("Deleting file %v", name)
	return os.Remove(fullPath)
}

func (fs *StorageFS) URL(name string) (string, error) {
	return "", ErrNoPublicUrl
}

// JoinUnder joins name onto root, and fails with ErrInvalidName if the
// result is not inside root.
func JoinUnder(root, name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("%w: empty name", ErrInvalidName)
	}
	full := filepath.Join(root, filepath.FromSlash(name))
	rel, err := filepath.Rel(root, full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		return "", fmt.Errorf("%w: %v escapes %v", ErrInvalidName, name, root)
	}
	return full, nil
}

// atomicWriter buffers through a pipe into iox.WriteStreamToFile, so that
// the destination is replaced in a single rename on Close.
type atomicWriter struct {
	pw   *io.PipeWriter
	done chan error
}

func newAtomicWriter(dst string) *atomicWriter {
	pr, pw := io.Pipe()
	w := &atomicWriter{
		pw:   pw,
		done: make(chan error, 1),
	}
	go func() {
		err := iox.WriteStreamToFile(dst, pr)
		pr.CloseWithError(err)
		w.done <- err
	}()
	return w
}

func (w *atomicWriter) Write(p []byte) (int, error) {
	return w.pw.Write(p)
}

func (w *atomicWriter) Close() error {
	w.pw.Close()
	return <-w.done
}
