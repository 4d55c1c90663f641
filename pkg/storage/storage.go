// Package storage is a small blob store abstraction, with a filesystem and a
// Google Cloud Storage backend.
package storage

import (
	"errors"
	"io"
	"time"
)

var ErrNoPublicUrl = errors.New("No public URL")
var ErrNotAFilesystem = errors.New("Storage is not a filesystem")
var ErrInvalidName = errors.New("Invalid file name")

// Storage is an abstraction of a blob store (eg S3)
type Storage interface {
	// When finished, you must close the WriteCloser
	WriteFile(name string) (io.WriteCloser, error)

	// When finished, you must close File.Reader.
	// A missing blob is an error that wraps os.ErrNotExist
	ReadFile(name string) (*File, error)

	DeleteFile(name string) error

	// Filename returns the local path of the blob, or ErrNotAFilesystem
	Filename(name string) (string, error)
}

// File is an element in blob storage.
type File struct {
	Reader     io.ReadCloser
	ModifiedAt time.Time
	Size       int64
}

func WriteFile(s Storage, name string, content io.Reader) error {
	f, err := s.WriteFile(name)
	if err != nil {
		return err
	}
	_, err = io.Copy(f, content)
	errClose := f.Close()
	if err != nil {
		return err
	}
	return errClose
}

func ReadFile(s Storage, name string) ([]byte, error) {
	f, err := s.ReadFile(name)
	if err != nil {
		return nil, err
	}
	defer f.Reader.Close()
	return io.ReadAll(f.Reader)
}

// Copy streams a blob from one store into another
func Copy(dst Storage, dstName string, src Storage, srcName string) error {
	f, err := src.ReadFile(srcName)
	if err != nil {
		return err
	}
	defer f.Reader.Close()
	return WriteFile(dst, dstName, f.Reader)
}
