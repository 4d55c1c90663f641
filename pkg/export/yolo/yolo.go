// Package yolo writes YOLO detection, oriented box and pose datasets.
package yolo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/cyclopcam/labelconv/pkg/category"
	"github.com/cyclopcam/labelconv/pkg/export"
	"github.com/cyclopcam/labelconv/pkg/iox"
	"github.com/cyclopcam/labelconv/pkg/task"
	"github.com/cyclopcam/logs"
	"gopkg.in/yaml.v3"
)

type Mode int

const (
	ModeBoxes     Mode = iota // class cx cy w h, or class x1 y1 x2 y2 ... for polygons
	ModeOBB                   // class x1 y1 x2 y2 x3 y3 x4 y4
	ModeKeypoints             // class cx cy w h (x y v)*K
)

// Encoder writes one labels/<image>.txt file per task
type Encoder struct {
	mode       Mode
	withImages bool
}

func New(mode Mode, withImages bool) *Encoder {
	return &Encoder{
		mode:       mode,
		withImages: withImages,
	}
}

// Register adds all YOLO variants to r
func Register(r *export.Registry) error {
	for _, mode := range []Mode{ModeBoxes, ModeOBB, ModeKeypoints} {
		for _, img := range []bool{false, true} {
			if err := r.Register(New(mode, img)); err != nil {
				return err
			}
		}
	}
	return nil
}

func (e *Encoder) Name() export.Format {
	var f export.Format
	switch e.mode {
	case ModeBoxes:
		f = export.FormatYOLO
	case ModeOBB:
		f = export.FormatYOLOOBB
	case ModeKeypoints:
		f = export.FormatYOLOKeypoints
	}
	if e.withImages {
		f += "_WITH_IMAGES"
	}
	return f
}

func (e *Encoder) Encode(ctx context.Context, run *export.Run, tasks []task.Task, outDir string) error {
	log := logs.NewPrefixLogger(run.Log, string(e.Name())+":")
	if e.mode == ModeKeypoints && len(run.KeypointOrder) == 0 {
		return &export.MissingKeypointOrderError{Format: e.Name()}
	}

	labelDir := filepath.Join(outDir, "labels")
	if err := os.MkdirAll(labelDir, 0755); err != nil {
		return err
	}
	imageDir := run.ImageDir(outDir)

	type labelFile struct {
		filename string
		lines    []line
	}
	files := []labelFile{}
	names := export.UniqueFilenames{}
	for i := range tasks {
		if err := ctx.Err(); err != nil {
			return err
		}
		t := &tasks[i]
		dataKey := run.ImageKey(t)

		lines, err := e.taskLines(run, log, t)
		if err != nil {
			return fmt.Errorf("Task %v: %w", t.ID, err)
		}
		for _, l := range lines {
			if _, err := run.Categories.Register(l.label); err != nil {
				return err
			}
		}

		filename := names.Name(t, dataKey)
		if e.withImages {
			if err := run.CopyImage(ctx, t, dataKey, imageDir, filename); err != nil {
				if err = run.MediaError(t, err); err != nil {
					return fmt.Errorf("Task %v: %w", t.ID, err)
				}
				continue
			}
		}
		stem := strings.TrimSuffix(filename, filepath.Ext(filename))
		files = append(files, labelFile{filepath.Join(labelDir, stem+".txt"), lines})
	}

	// Class ids are only final once the keypoint labels have collapsed into
	// their single trailing category.
	if e.mode == ModeKeypoints {
		if err := run.Categories.MergeKeypoints(run.Config, run.KeypointOrder); err != nil {
			return err
		}
	} else {
		run.Categories.Freeze()
	}

	for _, f := range files {
		err := iox.WriteFileAtomic(f.filename, func(w io.Writer) error {
			for _, l := range f.lines {
				id, ok := run.Categories.ID(l.label)
				if !ok {
					return fmt.Errorf("Label '%v' has no category", l.label)
				}
				if _, err := io.WriteString(w, formatLine(id, l.fields)+"\n"); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return err
		}
	}

	if err := e.writeClasses(run, outDir); err != nil {
		return err
	}
	log.Infof("Wrote %v label files and %v classes to %v", len(files), run.Categories.Len(), outDir)
	return nil
}

func formatLine(classID int, fields []float64) string {
	s := make([]string, 0, len(fields)+1)
	s = append(s, fmt.Sprintf("%v", classID))
	for _, f := range fields {
		s = append(s, export.FormatFloat(f))
	}
	return strings.Join(s, " ")
}

type note struct {
	Categories []category.Category `json:"categories"`
	Info       noteInfo            `json:"info"`
}

type noteInfo struct {
	Year        int      `json:"year"`
	Version     string   `json:"version"`
	Contributor string   `json:"contributor"`
	Keypoints   []string `json:"keypoints,omitempty"`
}

// dataset is the Ultralytics dataset descriptor
type dataset struct {
	Path     string         `yaml:"path"`
	Train    string         `yaml:"train"`
	Val      string         `yaml:"val"`
	Names    map[int]string `yaml:"names"`
	KptShape []int          `yaml:"kpt_shape,omitempty"`
}

func (e *Encoder) writeClasses(run *export.Run, outDir string) error {
	names := run.Categories.Names()
	if err := iox.WriteFileAtomic(filepath.Join(outDir, "classes.txt"), func(w io.Writer) error {
		for _, n := range names {
			if _, err := io.WriteString(w, n+"\n"); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		return err
	}

	n := note{
		Categories: run.Categories.Categories(),
		Info: noteInfo{
			Year:        currentYear(),
			Version:     "1.0",
			Contributor: "labelconv",
		},
	}
	if e.mode == ModeKeypoints {
		n.Info.Keypoints = run.KeypointOrder
	}
	js, err := json.MarshalIndent(&n, "", "  ")
	if err != nil {
		return err
	}
	if err := iox.WriteFile(filepath.Join(outDir, "notes.json"), js); err != nil {
		return err
	}

	ds := dataset{
		Path:  ".",
		Train: "images",
		Val:   "images",
		Names: map[int]string{},
	}
	for i, name := range names {
		ds.Names[i] = name
	}
	if e.mode == ModeKeypoints {
		ds.KptShape = []int{len(run.KeypointOrder), 3}
	}
	y, err := yaml.Marshal(&ds)
	if err != nil {
		return err
	}
	return iox.WriteFile(filepath.Join(outDir, "data.yaml"), y)
}
