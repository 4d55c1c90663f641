// Package export defines the encoder interface that every output format
// implements, and the per-run state that encoders share.
package export

import (
	"context"
	"strconv"

	"github.com/cyclopcam/labelconv/pkg/category"
	"github.com/cyclopcam/labelconv/pkg/labelconfig"
	"github.com/cyclopcam/labelconv/pkg/media"
	"github.com/cyclopcam/labelconv/pkg/task"
	"github.com/cyclopcam/logs"
)

// Format is the name of an output format
type Format string

const (
	FormatYOLO                    Format = "YOLO"
	FormatYOLOWithImages          Format = "YOLO_WITH_IMAGES"
	FormatYOLOOBB                 Format = "YOLO_OBB"
	FormatYOLOOBBWithImages       Format = "YOLO_OBB_WITH_IMAGES"
	FormatYOLOKeypoints           Format = "YOLO_KEYPOINTS"
	FormatYOLOKeypointsWithImages Format = "YOLO_KEYPOINTS_WITH_IMAGES"
	FormatCOCO                    Format = "COCO"
	FormatCOCOWithImages          Format = "COCO_WITH_IMAGES"
	FormatCSV                     Format = "CSV"
	FormatTSV                     Format = "TSV"
	FormatJSONMin                 Format = "JSON_MIN"
)

// Encoder writes a set of tasks into outDir, in a single output format
type Encoder interface {
	Name() Format
	Encode(ctx context.Context, run *Run, tasks []task.Task, outDir string) error
}

type Options struct {
	Token            string // Auth token for fetching media from Hostname
	Hostname         string // Base URL of the labeling server, for /data/ references
	ImageDir         string // Where *_WITH_IMAGES formats put images. Defaults to <outDir>/images
	SkipMissingMedia bool   // Skip tasks whose media can't be resolved, instead of failing
	Interpolate      bool   // Expand video keyframes before encoding
}

// Run is the state of a single conversion. Nothing in here may be shared between runs.
type Run struct {
	Log           logs.Log
	Config        *labelconfig.ConfigModel
	Categories    *category.Registry
	KeypointOrder category.KeypointOrder
	Media         media.Resolver // May be nil, if the format doesn't need media
	Options       Options
}

// NewRun creates the category registry and keypoint order for a config
func NewRun(log logs.Log, cfg *labelconfig.ConfigModel, resolver media.Resolver, options Options) *Run {
	return &Run{
		Log:           log,
		Config:        cfg,
		Categories:    category.NewRegistry(),
		KeypointOrder: category.BuildKeypointOrder(cfg),
		Media:         resolver,
		Options:       options,
	}
}

// FormatFloat writes the shortest representation that round trips
func FormatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
