package yolo

import (
	"time"

	"github.com/cyclopcam/labelconv/pkg/export"
	"github.com/cyclopcam/labelconv/pkg/geom"
	"github.com/cyclopcam/labelconv/pkg/task"
	"github.com/cyclopcam/logs"
)

func currentYear() int {
	return time.Now().Year()
}

// line is one instance, before its label has been turned into a class id
type line struct {
	label  string
	fields []float64
}

type region struct {
	item   *task.ResultItem
	shape  export.Shape
	labels []string
}

// regions returns the results that carry image geometry, with their labels
func regions(run *export.Run, log logs.Log, t *task.Task) ([]region, error) {
	out := []region{}
	for _, results := range t.Results() {
		for i := range results {
			item := &results[i]
			labels, shape, err := run.RegionLabels(log, t, item)
			if err != nil {
				return nil, err
			}
			if len(labels) == 0 {
				continue
			}
			out = append(out, region{item: item, shape: shape, labels: labels})
		}
	}
	return out, nil
}

func (e *Encoder) taskLines(run *export.Run, log logs.Log, t *task.Task) ([]line, error) {
	regs, err := regions(run, log, t)
	if err != nil {
		return nil, err
	}
	if e.mode == ModeKeypoints {
		return keypointLines(run, regs), nil
	}
	lines := []line{}
	for _, r := range regs {
		if r.shape == export.ShapeKeypoint {
			continue
		}
		fields := e.geometry(log, r)
		if fields == nil {
			continue
		}
		for _, label := range r.labels {
			lines = append(lines, line{label, fields})
		}
	}
	return lines, nil
}

// geometry returns the numbers that follow the class id on a line.
// A nil result means the region is valid but can't be expressed in this mode.
func (e *Encoder) geometry(log logs.Log, r region) []float64 {
	item := r.item
	v := &item.Value
	if r.shape == export.ShapeRect {
		x, y, w, h, _ := v.Rect()
		if e.mode == ModeOBB {
			corners, ok := geom.OBBCorners(geom.OrientedRect{
				X:              x,
				Y:              y,
				Width:          w,
				Height:         h,
				Rotation:       v.Rotation(),
				OriginalWidth:  item.OriginalWidth,
				OriginalHeight: item.OriginalHeight,
			})
			if !ok {
				log.Warnf("Result %v has no original image size, so it can't be rotated. Skipping", item.ID)
				return nil
			}
			return geom.FlattenCorners(corners)
		}
		return geom.RectToYOLO(x, y, w, h).Fields()
	}
	pts, _ := v.Points()
	if e.mode == ModeOBB && len(pts) != 4 {
		log.Warnf("Polygon %v has %v points, but an oriented box needs 4. Skipping", item.ID, len(pts))
		return nil
	}
	return geom.PolygonToYOLO(pts)
}

// keypointLines emits one pose instance per box, with the keypoints whose
// parentID is that box. Keypoints without a parent box form a single instance,
// bounded by the keypoints themselves. That instance carries a keypoint label,
// which resolves to the merged keypoint category.
func keypointLines(run *export.Run, regs []region) []line {
	type child struct {
		parent string
		kp     geom.Keypoint
	}
	boxes := []region{}
	boxIDs := map[string]bool{}
	keypoints := []child{}
	for _, r := range regs {
		switch r.shape {
		case export.ShapeKeypoint:
			x, y, _ := r.item.Value.Keypoint()
			for _, label := range r.labels {
				keypoints = append(keypoints, child{r.item.ParentID, geom.Keypoint{Label: label, X: x, Y: y}})
			}
		case export.ShapeRect:
			boxes = append(boxes, r)
			boxIDs[r.item.ID] = true
		}
	}

	lines := []line{}
	for _, b := range boxes {
		mine := []geom.Keypoint{}
		for _, c := range keypoints {
			if c.parent == b.item.ID {
				mine = append(mine, c.kp)
			}
		}
		x, y, w, h, _ := b.item.Value.Rect()
		box := geom.RectToYOLO(x, y, w, h).Fields()
		kp := geom.FlattenTriples(geom.YOLOKeypoints(run.KeypointOrder, mine))
		for _, label := range b.labels {
			lines = append(lines, line{label, append(append([]float64{}, box...), kp...)})
		}
	}

	// Keypoints without a parent box (or whose parent doesn't exist)
	orphans := []geom.Keypoint{}
	pts := []geom.Point{}
	for _, c := range keypoints {
		if c.parent != "" && boxIDs[c.parent] {
			continue
		}
		orphans = append(orphans, c.kp)
		if run.KeypointOrder.Index(c.kp.Label) != -1 {
			pts = append(pts, geom.Point{X: c.kp.X, Y: c.kp.Y})
		}
	}
	if len(orphans) != 0 {
		env := geom.Envelope(pts)
		box := geom.RectToYOLO(env.X, env.Y, env.Width, env.Height).Fields()
		kp := geom.FlattenTriples(geom.YOLOKeypoints(run.KeypointOrder, orphans))
		lines = append(lines, line{orphans[0].Label, append(box, kp...)})
	}
	return lines
}
