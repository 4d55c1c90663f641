package export

import (
	"strings"

	"github.com/cyclopcam/labelconv/pkg/task"
	"github.com/cyclopcam/logs"
)

// Shape is the kind of geometry carried by a region result
type Shape int

const (
	ShapeUnknown Shape = iota
	ShapeRect
	ShapePolygon
	ShapeKeypoint
)

// IsKeypointResult is true for results produced by a keypoint control
func IsKeypointResult(item *task.ResultItem) bool {
	t := strings.ToLower(item.Type)
	return t == "keypointlabels" || t == "keypoint"
}

// ResultShape inspects the fields of a result's value.
// An ellipse or brush stroke is ShapeUnknown, as is a box with missing fields.
func ResultShape(item *task.ResultItem) Shape {
	v := &item.Value
	if IsKeypointResult(item) {
		if _, _, ok := v.Keypoint(); ok {
			return ShapeKeypoint
		}
		return ShapeUnknown
	}
	if _, _, _, _, ok := v.Rect(); ok {
		return ShapeRect
	}
	if _, ok := v.Points(); ok {
		return ShapePolygon
	}
	return ShapeUnknown
}

// RegionLabels returns the labels of a region result, for the detection formats.
// Results from classification controls, or from controls that aren't in the
// config, return nil. A region with geometry that we can't encode is an
// UnknownLabelTypeError, even when it has no labels. A valid region with no
// labels is logged and returns nil.
func (r *Run) RegionLabels(log logs.Log, t *task.Task, item *task.ResultItem) ([]string, Shape, error) {
	ctrl := r.Config.Get(item.FromName)
	if ctrl == nil || ctrl.Kind.IsClassification() {
		return nil, ShapeUnknown, nil
	}
	shape := ResultShape(item)
	if shape == ShapeUnknown {
		return nil, shape, &UnknownLabelTypeError{Type: item.Type, FromName: item.FromName}
	}
	labels := item.Value.Labels(item.Type)
	if len(labels) == 0 {
		log.Infof("No label assigned to %v result %v in task %v, skipping", item.Type, item.ID, t.ID)
		return nil, shape, nil
	}
	return labels, shape, nil
}
