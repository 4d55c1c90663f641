package iox

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// WriteStreamToFile atomically writes the contents of src to dstFilename
func WriteStreamToFile(dstFilename string, src io.Reader) error {
	return WriteFileAtomic(dstFilename, func(w io.Writer) error {
		_, err := io.Copy(w, src)
		return err
	})
}

// WriteFileAtomic calls write with a temporary file in the same directory as
// dstFilename, and renames it to dstFilename once write has succeeded.
// A reader never observes a partially written file, and if anything fails,
// the temporary file is removed and dstFilename is untouched.
func WriteFileAtomic(dstFilename string, write func(w io.Writer) error) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(dstFilename), "."+filepath.Base(dstFilename)+".tmp*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmpName)
		}
	}()

	if err = write(tmp); err != nil {
		return err
	}
	if err = tmp.Sync(); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	if err = os.Chmod(tmpName, 0644); err != nil {
		return err
	}
	if err = os.Rename(tmpName, dstFilename); err != nil {
		return fmt.Errorf("Failed to rename %v to %v: %w", tmpName, dstFilename, err)
	}
	return nil
}

// WriteFile atomically writes data to dstFilename
func WriteFile(dstFilename string, data []byte) error {
	return WriteFileAtomic(dstFilename, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
}
