package labelconfig

// ControlKind is the type of a control ("output") tag, resolved once from the
// markup tag name when the configuration is parsed.
type ControlKind int

const (
	ControlOther ControlKind = iota // Any control tag we don't have special handling for
	ControlChoices
	ControlLabels
	ControlRectangle
	ControlRectangleLabels
	ControlPolygon
	ControlPolygonLabels
	ControlKeyPoint
	ControlKeyPointLabels
	ControlEllipse
	ControlEllipseLabels
	ControlBrush
	ControlBrushLabels
	ControlTextArea
	ControlRating
	ControlNumber
	ControlDateTime
	ControlTaxonomy
	ControlPairwise
	ControlRanker
	ControlRelations
	ControlVideoRectangle
	ControlTimelineLabels
	ControlHyperTextLabels
	ControlParagraphLabels
)

var controlKindTags = map[string]ControlKind{
	"Choices":         ControlChoices,
	"Labels":          ControlLabels,
	"Rectangle":       ControlRectangle,
	"RectangleLabels": ControlRectangleLabels,
	"Polygon":         ControlPolygon,
	"PolygonLabels":   ControlPolygonLabels,
	"KeyPoint":        ControlKeyPoint,
	"KeyPointLabels":  ControlKeyPointLabels,
	"Ellipse":         ControlEllipse,
	"EllipseLabels":   ControlEllipseLabels,
	"Brush":           ControlBrush,
	"BrushLabels":     ControlBrushLabels,
	"TextArea":        ControlTextArea,
	"Rating":          ControlRating,
	"Number":          ControlNumber,
	"DateTime":        ControlDateTime,
	"Taxonomy":        ControlTaxonomy,
	"Pairwise":        ControlPairwise,
	"Ranker":          ControlRanker,
	"Relations":       ControlRelations,
	"VideoRectangle":  ControlVideoRectangle,
	"TimelineLabels":  ControlTimelineLabels,
	"HyperTextLabels": ControlHyperTextLabels,
	"ParagraphLabels": ControlParagraphLabels,
}

// ParseControlKind maps a markup tag name to its ControlKind.
// Unknown tag names map to ControlOther.
func ParseControlKind(tag string) ControlKind {
	return controlKindTags[tag]
}

func (k ControlKind) String() string {
	for tag, kind := range controlKindTags {
		if kind == k {
			return tag
		}
	}
	return "Other"
}

// IsKeypoint is true for controls whose labels become keypoint names
func (k ControlKind) IsKeypoint() bool {
	return k == ControlKeyPoint || k == ControlKeyPointLabels
}

// IsClassification is true for controls whose results describe the whole data
// item rather than a region of it. Detection formats ignore these.
func (k ControlKind) IsClassification() bool {
	switch k {
	case ControlChoices, ControlTextArea, ControlRating, ControlNumber,
		ControlDateTime, ControlTaxonomy, ControlPairwise, ControlRanker,
		ControlRelations:
		return true
	}
	return false
}

// ObjectKind is the type of an object ("input") tag.
type ObjectKind int

const (
	ObjectOther ObjectKind = iota
	ObjectImage
	ObjectText
	ObjectHyperText
	ObjectParagraphs
	ObjectAudio
	ObjectVideo
	ObjectTimeSeries
	ObjectTable
	ObjectChat
	ObjectList
	ObjectPDF
)

var objectKindTags = map[string]ObjectKind{
	"Image":      ObjectImage,
	"Text":       ObjectText,
	"HyperText":  ObjectHyperText,
	"Paragraphs": ObjectParagraphs,
	"Audio":      ObjectAudio,
	"AudioPlus":  ObjectAudio,
	"Video":      ObjectVideo,
	"TimeSeries": ObjectTimeSeries,
	"Table":      ObjectTable,
	"Chat":       ObjectChat,
	"List":       ObjectList,
	"PDF":        ObjectPDF,
}

// ParseObjectKind maps a markup tag name to its ObjectKind.
func ParseObjectKind(tag string) ObjectKind {
	return objectKindTags[tag]
}

// Tags that look like output tags (they have name and toName), but don't produce results
var notControlTags = map[string]bool{
	"Filter": true,
}

// Tags that carry a label value, and attach to the nearest enclosing control tag
var labelTags = map[string]bool{
	"Label":    true,
	"Choice":   true,
	"Relation": true,
}
