package export

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cyclopcam/labelconv/pkg/iox"
	"github.com/cyclopcam/labelconv/pkg/labelconfig"
	"github.com/cyclopcam/labelconv/pkg/media"
	"github.com/cyclopcam/labelconv/pkg/task"
)

// ErrNoMediaResolver is returned when a format needs media, but the run has no resolver
var ErrNoMediaResolver = errors.New("No media resolver configured")

func (r *Run) ResolveOptions() media.ResolveOptions {
	return media.ResolveOptions{
		Token:    r.Options.Token,
		Hostname: r.Options.Hostname,
	}
}

// ImageDir returns the directory for copied images
func (r *Run) ImageDir(outDir string) string {
	if r.Options.ImageDir != "" {
		return r.Options.ImageDir
	}
	return filepath.Join(outDir, "images")
}

// DataKey returns the task data key of the object that a result was made on.
// If the config doesn't tell us, we use the first image object, and then "image".
func (r *Run) DataKey(item *task.ResultItem) string {
	if c := r.Config.Get(item.FromName); c != nil {
		for _, in := range c.Inputs {
			if in.Name == item.ToName {
				return in.DataKey()
			}
		}
	}
	for _, in := range r.Config.Inputs() {
		if in.Kind == labelconfig.ObjectImage {
			return in.DataKey()
		}
	}
	return "image"
}

// ImageKey returns the data key of the task's image, from its first result,
// or from the config if the task has no results.
func (r *Run) ImageKey(t *task.Task) string {
	for _, results := range t.Results() {
		for i := range results {
			return r.DataKey(&results[i])
		}
	}
	return r.DataKey(&task.ResultItem{})
}

// ResolveMedia returns the local path of the media in t.Data[dataKey]
func (r *Run) ResolveMedia(ctx context.Context, t *task.Task, dataKey string) (string, error) {
	if r.Media == nil {
		return "", &media.ResolveError{Ref: t.DataString(dataKey), Err: ErrNoMediaResolver}
	}
	return r.Media.Resolve(ctx, t.DataString(dataKey), r.ResolveOptions())
}

// ImageSize returns the pixel dimensions of the task's image. The original size
// recorded on a result is preferred, because it avoids fetching the image.
func (r *Run) ImageSize(ctx context.Context, t *task.Task, dataKey string) (width, height int, err error) {
	for _, results := range t.Results() {
		for _, item := range results {
			if item.OriginalWidth > 0 && item.OriginalHeight > 0 {
				return item.OriginalWidth, item.OriginalHeight, nil
			}
		}
	}
	fn, err := r.ResolveMedia(ctx, t, dataKey)
	if err != nil {
		return 0, 0, err
	}
	return media.ImageSize(fn)
}

// CopyImage resolves the task's image and copies it to imageDir/name
func (r *Run) CopyImage(ctx context.Context, t *task.Task, dataKey, imageDir, name string) error {
	src, err := r.ResolveMedia(ctx, t, dataKey)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(imageDir, 0755); err != nil {
		return err
	}
	f, err := os.Open(src)
	if err != nil {
		return &media.ResolveError{Ref: t.DataString(dataKey), Err: err}
	}
	defer f.Close()
	return iox.WriteStreamToFile(filepath.Join(imageDir, name), f)
}

// UniqueFilenames hands out file names for task images, prefixing the
// task ID when two tasks have images with the same name.
type UniqueFilenames map[string]bool

func (u UniqueFilenames) Name(t *task.Task, dataKey string) string {
	name := t.ImageFilename(dataKey)
	if u[name] {
		name = fmt.Sprintf("%v-%v", t.ID, name)
	}
	u[name] = true
	return name
}

// MediaError decides whether a failure to fetch media is fatal.
// If the run skips missing media, the error is logged and nil is returned.
func (r *Run) MediaError(t *task.Task, err error) error {
	var re *media.ResolveError
	if r.Options.SkipMissingMedia && errors.As(err, &re) {
		r.Log.Warnf("Skipping task %v: %v", t.ID, err)
		return nil
	}
	return err
}
