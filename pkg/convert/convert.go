// Package convert runs a single conversion: it parses the labeling config,
// prepares a fresh export.Run, and hands the tasks to the requested encoder.
package convert

import (
	"context"
	"fmt"
	"os"

	"github.com/cyclopcam/labelconv/pkg/export"
	"github.com/cyclopcam/labelconv/pkg/export/coco"
	"github.com/cyclopcam/labelconv/pkg/export/tabular"
	"github.com/cyclopcam/labelconv/pkg/export/yolo"
	"github.com/cyclopcam/labelconv/pkg/labelconfig"
	"github.com/cyclopcam/labelconv/pkg/media"
	"github.com/cyclopcam/labelconv/pkg/preview"
	"github.com/cyclopcam/labelconv/pkg/task"
	"github.com/cyclopcam/labelconv/pkg/videointerp"
	"github.com/cyclopcam/logs"
)

// NewRegistry returns a registry holding every built-in encoder
func NewRegistry() (*export.Registry, error) {
	r := export.NewRegistry()
	for _, register := range []func(*export.Registry) error{yolo.Register, coco.Register, tabular.Register} {
		if err := register(r); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Converter is safe to share between goroutines, because every call to
// Convert creates its own run state.
type Converter struct {
	log      logs.Log
	registry *export.Registry
	media    media.Resolver
}

func NewConverter(log logs.Log, registry *export.Registry, resolver media.Resolver) *Converter {
	return &Converter{
		log:      log,
		registry: registry,
		media:    resolver,
	}
}

func (c *Converter) Formats() []export.Format {
	return c.registry.List()
}

// Convert writes tasks into outDir, in the given format
func (c *Converter) Convert(ctx context.Context, config string, tasks []task.Task, format export.Format, outDir string, options export.Options) error {
	enc, err := c.registry.Get(format)
	if err != nil {
		return err
	}
	cfg, err := labelconfig.Parse(config, c.log)
	if err != nil {
		return err
	}
	if options.Interpolate {
		tasks, err = interpolate(tasks)
		if err != nil {
			return err
		}
	}
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return fmt.Errorf("Failed to create output directory: %w", err)
	}
	run := export.NewRun(c.log, cfg, c.media, options)
	c.log.Infof("Converting %v tasks to %v in %v", len(tasks), format, outDir)
	return enc.Encode(ctx, run, tasks, outDir)
}

// Preview draws the annotations of every task over its image, writing one PNG per task into outDir
func (c *Converter) Preview(ctx context.Context, config string, tasks []task.Task, outDir string, options export.Options) (int, error) {
	cfg, err := labelconfig.Parse(config, c.log)
	if err != nil {
		return 0, err
	}
	if options.Interpolate {
		tasks, err = interpolate(tasks)
		if err != nil {
			return 0, err
		}
	}
	run := export.NewRun(c.log, cfg, c.media, options)
	return preview.RenderAll(ctx, run, tasks, outDir)
}

// ConvertFiles reads the config and tasks from disk, then converts them
func (c *Converter) ConvertFiles(ctx context.Context, configFile, tasksPath string, format export.Format, outDir string, options export.Options) error {
	config, err := os.ReadFile(configFile)
	if err != nil {
		return err
	}
	tasks, err := task.Load(tasksPath)
	if err != nil {
		return err
	}
	return c.Convert(ctx, string(config), tasks, format, outDir, options)
}

// interpolate expands video keyframes on copies of the tasks, leaving the caller's tasks untouched
func interpolate(tasks []task.Task) ([]task.Task, error) {
	out := make([]task.Task, len(tasks))
	for i := range tasks {
		t := tasks[i]
		t.Annotations = append([]task.Annotation(nil), t.Annotations...)
		t.Predictions = append([]task.Annotation(nil), t.Predictions...)
		if err := videointerp.InterpolateTask(&t); err != nil {
			return nil, err
		}
		out[i] = t
	}
	return out, nil
}
