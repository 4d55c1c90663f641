package coco

import (
	"github.com/cyclopcam/labelconv/pkg/export"
	"github.com/cyclopcam/labelconv/pkg/geom"
	"github.com/cyclopcam/labelconv/pkg/task"
	"github.com/cyclopcam/logs"
)

// imageDims prefers the size recorded on the result
func imageDims(item *task.ResultItem, img Image) (int, int) {
	if item.OriginalWidth > 0 && item.OriginalHeight > 0 {
		return item.OriginalWidth, item.OriginalHeight
	}
	return img.Width, img.Height
}

func bbox(r geom.Rect) [4]float64 {
	return [4]float64{r.X, r.Y, r.Width, r.Height}
}

// keypointGroup is a set of keypoints that make up one instance
type keypointGroup struct {
	label  string
	points []geom.Keypoint
}

func taskAnnotations(run *export.Run, log logs.Log, t *task.Task, img Image) ([]Annotation, error) {
	anns := []Annotation{}
	for _, results := range t.Results() {
		groups := []*keypointGroup{}
		byParent := map[string]*keypointGroup{}

		for i := range results {
			item := &results[i]
			labels, shape, err := run.RegionLabels(log, t, item)
			if err != nil {
				return nil, err
			}
			if len(labels) == 0 {
				continue
			}
			for _, label := range labels {
				if _, err := run.Categories.Register(label); err != nil {
					return nil, err
				}
			}
			iw, ih := imageDims(item, img)

			if shape == export.ShapeKeypoint {
				if len(run.KeypointOrder) == 0 {
					return nil, &export.MissingKeypointOrderError{Format: export.FormatCOCO}
				}
				x, y, _ := item.Value.Keypoint()
				// Keypoints without a parent form a single instance
				g := byParent[item.ParentID]
				if g == nil {
					g = &keypointGroup{label: labels[0]}
					groups = append(groups, g)
					byParent[item.ParentID] = g
				}
				for _, label := range labels {
					g.points = append(g.points, geom.Keypoint{Label: label, X: x, Y: y, OriginalWidth: iw, OriginalHeight: ih})
				}
				continue
			}

			a, err := regionAnnotation(item, iw, ih)
			if err != nil {
				return nil, err
			}
			for _, label := range labels {
				a.ImageID = img.ID
				a.label = label
				anns = append(anns, a)
			}
		}

		for _, g := range groups {
			kp := geom.ToCOCOKeypoints(run.KeypointOrder, g.points)
			n := kp.NumKeypoints
			anns = append(anns, Annotation{
				ImageID:      img.ID,
				Segmentation: [][]float64{},
				BBox:         bbox(kp.BBox),
				Area:         kp.BBox.Area(),
				Keypoints:    kp.Keypoints,
				NumKeypoints: &n,
				label:        g.label,
			})
		}
	}
	return anns, nil
}

// regionAnnotation converts a box or polygon into pixel space
func regionAnnotation(item *task.ResultItem, iw, ih int) (Annotation, error) {
	v := &item.Value
	if x, y, w, h, ok := v.Rect(); ok {
		box := geom.RectToPixels(x, y, w, h, iw, ih)
		if rot := v.Rotation(); rot != 0 {
			// A rotated box is exported as the axis-aligned box that contains it
			if corners, ok := geom.OBBCorners(geom.OrientedRect{X: x, Y: y, Width: w, Height: h, Rotation: rot, OriginalWidth: iw, OriginalHeight: ih}); ok {
				px := make([]geom.Point, 4)
				for i, c := range corners {
					px[i] = geom.Point{X: c.X * float64(iw), Y: c.Y * float64(ih)}
				}
				box = geom.Envelope(px)
			}
		}
		return Annotation{
			Segmentation: [][]float64{},
			BBox:         bbox(box),
			Area:         box.Area(),
		}, nil
	}
	if pts, ok := v.Points(); ok {
		px := geom.PolygonToPixels(pts, iw, ih)
		flat := make([]float64, 0, len(px)*2)
		for _, p := range px {
			flat = append(flat, p.X, p.Y)
		}
		return Annotation{
			Segmentation: [][]float64{flat},
			BBox:         bbox(geom.Envelope(px)),
			Area:         geom.PolygonArea(px),
		}, nil
	}
	return Annotation{}, &export.UnknownLabelTypeError{Type: item.Type, FromName: item.FromName}
}
