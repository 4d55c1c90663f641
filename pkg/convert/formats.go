package convert

import (
	"github.com/cyclopcam/labelconv/pkg/category"
	"github.com/cyclopcam/labelconv/pkg/export"
	"github.com/cyclopcam/labelconv/pkg/labelconfig"
)

// SupportedFormats lists the formats that make sense for a config.
// Tabular formats work for anything. Detection formats need image regions.
func SupportedFormats(cfg *labelconfig.ConfigModel) []export.Format {
	formats := []export.Format{export.FormatJSONMin, export.FormatCSV, export.FormatTSV}

	hasImage := func(c *labelconfig.ControlTagInfo) bool {
		for _, in := range c.Inputs {
			if in.Kind == labelconfig.ObjectImage {
				return true
			}
		}
		return false
	}
	var boxes, polygons, keypoints bool
	for _, c := range cfg.Controls() {
		if !hasImage(c) {
			continue
		}
		switch c.Kind {
		case labelconfig.ControlRectangle, labelconfig.ControlRectangleLabels, labelconfig.ControlLabels:
			boxes = true
		case labelconfig.ControlPolygon, labelconfig.ControlPolygonLabels:
			polygons = true
		case labelconfig.ControlKeyPoint, labelconfig.ControlKeyPointLabels:
			keypoints = true
		}
	}
	if boxes || polygons || keypoints {
		formats = append(formats, export.FormatCOCO, export.FormatCOCOWithImages)
	}
	if boxes || polygons {
		formats = append(formats, export.FormatYOLO, export.FormatYOLOWithImages)
	}
	if boxes {
		formats = append(formats, export.FormatYOLOOBB, export.FormatYOLOOBBWithImages)
	}
	if boxes && keypoints && len(category.BuildKeypointOrder(cfg)) != 0 {
		formats = append(formats, export.FormatYOLOKeypoints, export.FormatYOLOKeypointsWithImages)
	}
	return formats
}
