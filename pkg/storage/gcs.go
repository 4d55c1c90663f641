package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	gcs "cloud.google.com/go/storage"
	"github.com/cyclopcam/logs"
)

// StorageGCS is a Google Cloud Storage-based blob store
type StorageGCS struct {
	bucketName string
	bucket     *gcs.BucketHandle
	isPublic   bool
	log        logs.Log
}

// NewGCSClient creates a client using the ambient Google credentials
func NewGCSClient(ctx context.Context) (*gcs.Client, error) {
	return gcs.NewClient(ctx)
}

func NewStorageGCS(log logs.Log, bucketName string, isPublic bool) (*StorageGCS, error) {
	client, err := NewGCSClient(context.Background())
	if err != nil {
		return nil, err
	}
	return NewStorageGCSWithClient(log, client, bucketName, isPublic), nil
}

// NewStorageGCSWithClient shares one client between many buckets
func NewStorageGCSWithClient(log logs.Log, client *gcs.Client, bucketName string, isPublic bool) *StorageGCS {
	return &StorageGCS{
		bucketName: bucketName,
		bucket:     client.Bucket(bucketName),
		isPublic:   isPublic,
		log:        log,
	}
}

func (s *StorageGCS) WriteFile(name string) (io.WriteCloser, error) {
	ctx := context.Background()
	w := s.bucket.Object(name).NewWriter(ctx)
	return w, nil
}

func (s *StorageGCS) ReadFile(name string) (*File, error) {
	ctx := context.Background()
	r, err := s.bucket.Object(name).NewReader(ctx)
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return nil, fmt.Errorf("%w: gs://%v/%v", os.ErrNotExist, s.bucketName, name)
	} else if err != nil {
		return nil, fmt.Errorf("Failed to read gs://%v/%v: %w", s.bucketName, name, err)
	}
	return &File{
		Reader:     r,
		ModifiedAt: r.Attrs.LastModified,
		Size:       r.Attrs.Size,
	}, nil
}

func (s *StorageGCS) DeleteFile(name string) error {
	ctx := context.Background()
	return s.bucket.Object(name).Delete(ctx)
}

func (s *StorageGCS) URL(name string) (string, error) {
	if !s.isPublic {
		return "", ErrNoPublicUrl
	}
	return "https://storage.googleapis.com/" + s.bucketName + "/" + name, nil
}

func (s *StorageGCS) Filename(name string) (string, error) {
	return "", ErrNotAFilesystem
}

// ParseGCSURL splits gs://bucket/object/path into bucket and object
func ParseGCSURL(url string) (bucket, object string, err error) {
	rest, ok := strings.CutPrefix(url, "gs://")
	if !ok {
		return "", "", fmt.Errorf("Not a gs:// URL: %v", url)
	}
	bucket, object, _ = strings.Cut(rest, "/")
	if bucket == "" || object == "" {
		return "", "", fmt.Errorf("Invalid GCS URL %v", url)
	}
	return bucket, object, nil
}
