// Package coco writes a COCO object detection / keypoint document.
package coco

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/cyclopcam/labelconv/pkg/category"
	"github.com/cyclopcam/labelconv/pkg/export"
	"github.com/cyclopcam/labelconv/pkg/iox"
	"github.com/cyclopcam/labelconv/pkg/task"
	"github.com/cyclopcam/logs"
)

// ResultFilename is the name of the document inside the output directory
const ResultFilename = "result.json"

type Document struct {
	Images      []Image      `json:"images"`
	Categories  []Category   `json:"categories"`
	Annotations []Annotation `json:"annotations"`
	Info        Info         `json:"info"`
}

type Image struct {
	ID       int    `json:"id"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	FileName string `json:"file_name"`
}

type Category struct {
	ID            int       `json:"id"`
	Name          string    `json:"name"`
	Supercategory string    `json:"supercategory,omitempty"`
	Keypoints     []string  `json:"keypoints,omitempty"`
	Skeleton      *[][2]int `json:"skeleton,omitempty"`
}

type Annotation struct {
	ID           int         `json:"id"`
	ImageID      int         `json:"image_id"`
	CategoryID   int         `json:"category_id"`
	Segmentation [][]float64 `json:"segmentation"`
	BBox         [4]float64  `json:"bbox"`
	Area         float64     `json:"area"`
	Ignore       int         `json:"ignore"`
	IsCrowd      int         `json:"iscrowd"`
	Keypoints    []int       `json:"keypoints,omitempty"`
	NumKeypoints *int        `json:"num_keypoints,omitempty"`

	label string // Category ids are only known once all tasks have been scanned
}

type Info struct {
	Year        int    `json:"year"`
	Version     string `json:"version"`
	Description string `json:"description"`
	Contributor string `json:"contributor"`
	DateCreated string `json:"date_created"`
}

type Encoder struct {
	withImages bool
}

func New(withImages bool) *Encoder {
	return &Encoder{withImages: withImages}
}

// Register adds both COCO variants to r
func Register(r *export.Registry) error {
	if err := r.Register(New(false)); err != nil {
		return err
	}
	return r.Register(New(true))
}

func (e *Encoder) Name() export.Format {
	if e.withImages {
		return export.FormatCOCOWithImages
	}
	return export.FormatCOCO
}

func (e *Encoder) Encode(ctx context.Context, run *export.Run, tasks []task.Task, outDir string) error {
	log := logs.NewPrefixLogger(run.Log, string(e.Name())+":")
	doc, err := e.Build(ctx, run, tasks, outDir)
	if err != nil {
		return err
	}
	js, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	if err := iox.WriteFile(filepath.Join(outDir, ResultFilename), js); err != nil {
		return err
	}
	log.Infof("Wrote %v images, %v annotations and %v categories", len(doc.Images), len(doc.Annotations), len(doc.Categories))
	return nil
}

// Build produces the document without writing it. Images are still copied
// when the encoder is a *_WITH_IMAGES variant.
func (e *Encoder) Build(ctx context.Context, run *export.Run, tasks []task.Task, outDir string) (*Document, error) {
	log := logs.NewPrefixLogger(run.Log, string(e.Name())+":")
	now := time.Now()
	doc := &Document{
		Images:      []Image{},
		Categories:  []Category{},
		Annotations: []Annotation{},
		Info: Info{
			Year:        now.Year(),
			Version:     "1.0",
			Description: "",
			Contributor: "labelconv",
			DateCreated: now.Format("2006-01-02 15:04:05.000000"),
		},
	}
	imageDir := run.ImageDir(outDir)
	names := export.UniqueFilenames{}

	for i := range tasks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		t := &tasks[i]
		dataKey := run.ImageKey(t)
		filename := names.Name(t, dataKey)

		width, height, err := run.ImageSize(ctx, t, dataKey)
		if err == nil && e.withImages {
			err = run.CopyImage(ctx, t, dataKey, imageDir, filename)
			filename = "images/" + filename
		}
		if err != nil {
			if err = run.MediaError(t, err); err != nil {
				return nil, fmt.Errorf("Task %v: %w", t.ID, err)
			}
			continue
		}

		img := Image{
			ID:       len(doc.Images),
			Width:    width,
			Height:   height,
			FileName: filename,
		}
		anns, err := taskAnnotations(run, log, t, img)
		if err != nil {
			return nil, fmt.Errorf("Task %v: %w", t.ID, err)
		}
		doc.Images = append(doc.Images, img)
		for _, a := range anns {
			a.ID = len(doc.Annotations)
			doc.Annotations = append(doc.Annotations, a)
		}
	}

	if err := run.Categories.MergeKeypoints(run.Config, run.KeypointOrder); err != nil {
		return nil, err
	}
	for i := range doc.Annotations {
		a := &doc.Annotations[i]
		id, ok := run.Categories.ID(a.label)
		if !ok {
			return nil, fmt.Errorf("Label '%v' has no category", a.label)
		}
		a.CategoryID = id
	}
	for _, c := range run.Categories.Categories() {
		doc.Categories = append(doc.Categories, toCategory(c))
	}
	return doc, nil
}

func toCategory(c category.Category) Category {
	out := Category{
		ID:            c.ID,
		Name:          c.Name,
		Supercategory: c.Supercategory,
		Keypoints:     c.Keypoints,
	}
	if c.Skeleton != nil {
		sk := c.Skeleton
		out.Skeleton = &sk
	}
	return out
}
