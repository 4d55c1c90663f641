// Package media turns the media references found in task data into local files.
package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"
	"sync"

	gcs "cloud.google.com/go/storage"
	"github.com/cyclopcam/labelconv/pkg/storage"
	"github.com/cyclopcam/logs"
	"github.com/cyclopcam/www"
	"github.com/google/uuid"
)

const (
	localFilesPrefix = "/data/local-files/"
	uploadPrefix     = "/data/upload/"
)

// ResolveOptions are per-request settings for fetching remote media
type ResolveOptions struct {
	Token    string // Sent as "Authorization: Token <token>" to Hostname
	Hostname string // eg https://labels.example.com. Used for references that start with /data/
}

// Resolver turns a media reference into the path of a local file
type Resolver interface {
	Resolve(ctx context.Context, ref string, opt ResolveOptions) (string, error)
}

type Config struct {
	LocalFilesRoot string // Root of /data/local-files/?d= references, and of plain relative paths
	UploadDir      string // Root of /data/upload/ references
	CacheDir       string // Downloaded files are stored here
}

// FileResolver resolves local paths, HTTP(S) URLs and gs:// URLs.
// Remote files are downloaded once into the cache directory.
type FileResolver struct {
	log    logs.Log
	config Config
	cache  *storage.StorageFS

	gcsLock   sync.Mutex
	gcsClient *gcs.Client
}

func NewResolver(log logs.Log, config Config) (*FileResolver, error) {
	if config.CacheDir == "" {
		dir, err := os.MkdirTemp("", "labelconv-media-")
		if err != nil {
			return nil, err
		}
		config.CacheDir = dir
	}
	cache, err := storage.NewStorageFS(log, config.CacheDir)
	if err != nil {
		return nil, err
	}
	return &FileResolver{
		log:    log,
		config: config,
		cache:  cache,
	}, nil
}

// Close releases the GCS client, if one was created
func (r *FileResolver) Close() {
	r.gcsLock.Lock()
	defer r.gcsLock.Unlock()
	if r.gcsClient != nil {
		r.gcsClient.Close()
		r.gcsClient = nil
	}
}

func (r *FileResolver) Resolve(ctx context.Context, ref string, opt ResolveOptions) (string, error) {
	p, err := r.resolve(ctx, ref, opt)
	if err != nil {
		var re *ResolveError
		if errors.As(err, &re) {
			return "", err
		}
		if errors.Is(err, storage.ErrInvalidName) {
			err = ErrPathTraversal
		}
		return "", &ResolveError{Ref: ref, Err: err}
	}
	return p, nil
}

func (r *FileResolver) resolve(ctx context.Context, ref string, opt ResolveOptions) (string, error) {
	if ref == "" {
		return "", errors.New("Empty reference")
	}

	if strings.HasPrefix(ref, "gs://") {
		return r.fetchGCS(ctx, ref)
	}

	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		u, err := url.Parse(ref)
		if err != nil {
			return "", err
		}
		// Our own server's URLs are resolved locally when we can
		if opt.Hostname != "" && strings.HasPrefix(ref, strings.TrimSuffix(opt.Hostname, "/")+"/") {
			if local, ok, err := r.resolveDataPath(u.RequestURI()); ok {
				return local, err
			}
			return r.download(ctx, ref, opt.Token)
		}
		return r.download(ctx, ref, "")
	}

	if local, ok, err := r.resolveDataPath(ref); ok {
		return local, err
	}

	if strings.HasPrefix(ref, "/data/") {
		if opt.Hostname == "" {
			return "", fmt.Errorf("%w: a hostname is needed to fetch %v", ErrNotConfigured, ref)
		}
		return r.download(ctx, strings.TrimSuffix(opt.Hostname, "/")+ref, opt.Token)
	}

	// Plain path
	if r.config.LocalFilesRoot != "" {
		return existing(storage.JoinUnder(r.config.LocalFilesRoot, ref))
	}
	return existing(ref, nil)
}

// resolveDataPath handles /data/local-files/ and /data/upload/ paths, when we have
// the directories that they refer to. ok is false if ref isn't one of those.
func (r *FileResolver) resolveDataPath(ref string) (local string, ok bool, err error) {
	if strings.HasPrefix(ref, localFilesPrefix) {
		u, err := url.Parse(ref)
		if err != nil {
			return "", true, err
		}
		d := u.Query().Get("d")
		if d == "" {
			return "", true, errors.New("Local file reference has no 'd' parameter")
		}
		if r.config.LocalFilesRoot == "" {
			return "", true, fmt.Errorf("%w: no local files root for %v", ErrNotConfigured, ref)
		}
		local, err = existing(storage.JoinUnder(r.config.LocalFilesRoot, d))
		return local, true, err
	}
	if strings.HasPrefix(ref, uploadPrefix) && r.config.UploadDir != "" {
		rel, err := url.PathUnescape(strings.TrimPrefix(ref, uploadPrefix))
		if err != nil {
			return "", true, err
		}
		local, err = existing(storage.JoinUnder(r.config.UploadDir, rel))
		return local, true, err
	}
	return "", false, nil
}

func existing(p string, err error) (string, error) {
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(p); err != nil {
		return "", err
	}
	return p, nil
}

// cacheName is stable for a given URL, so repeated references are only downloaded once
func cacheName(prefix, rawURL, filename string) string {
	id := uuid.NewSHA1(uuid.NameSpaceURL, []byte(rawURL))
	base := path.Base(filename)
	if base == "." || base == "/" || base == ".." {
		base = "file"
	}
	return prefix + "/" + id.String() + "/" + base
}

func (r *FileResolver) fromCache(name string) (string, bool) {
	fn, err := r.cache.Filename(name)
	if err != nil {
		return "", false
	}
	if _, err := os.Stat(fn); err != nil {
		return "", false
	}
	return fn, true
}

func (r *FileResolver) download(ctx context.Context, rawURL, token string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	name := cacheName("http", rawURL, u.Path)
	if fn, ok := r.fromCache(name); ok {
		return fn, nil
	}

	req, err := http.NewRequestWithContext(ctx, "GET", rawURL, nil)
	if err != nil {
		return "", err
	}
	if token != "" {
		req.Header.Set("Authorization", "Token "+token)
	}
	r.log.Infof("Downloading %v", rawURL)
	resp, err := www.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if err := storage.WriteFile(r.cache, name, resp.Body); err != nil {
		return "", err
	}
	return r.cache.Filename(name)
}

func (r *FileResolver) fetchGCS(ctx context.Context, ref string) (string, error) {
	bucket, object, err := storage.ParseGCSURL(ref)
	if err != nil {
		return "", err
	}
	name := cacheName("gcs", ref, object)
	if fn, ok := r.fromCache(name); ok {
		return fn, nil
	}

	client, err := r.gcs(ctx)
	if err != nil {
		return "", err
	}
	r.log.Infof("Fetching %v", ref)
	src := storage.NewStorageGCSWithClient(r.log, client, bucket, false)
	if err := storage.Copy(r.cache, name, src, object); err != nil {
		return "", err
	}
	return r.cache.Filename(name)
}

func (r *FileResolver) gcs(ctx context.Context) (*gcs.Client, error) {
	r.gcsLock.Lock()
	defer r.gcsLock.Unlock()
	if r.gcsClient == nil {
		c, err := storage.NewGCSClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("Failed to create GCS client: %w", err)
		}
		r.gcsClient = c
	}
	return r.gcsClient, nil
}

// Open resolves ref and opens the resulting file
func Open(ctx context.Context, r Resolver, ref string, opt ResolveOptions) (io.ReadCloser, string, error) {
	fn, err := r.Resolve(ctx, ref, opt)
	if err != nil {
		return nil, "", err
	}
	f, err := os.Open(fn)
	if err != nil {
		return nil, "", &ResolveError{Ref: ref, Err: err}
	}
	return f, fn, nil
}
