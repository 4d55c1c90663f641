package geom

import "math"

// YOLOBox is a box in YOLO's normalized center form (all values 0..1)
type YOLOBox struct {
	XCenter float64
	YCenter float64
	Width   float64
	Height  float64
}

func (b YOLOBox) Fields() []float64 {
	return []float64{b.XCenter, b.YCenter, b.Width, b.Height}
}

// RectToYOLO converts a top-left percentage box into normalized center form
func RectToYOLO(x, y, width, height float64) YOLOBox {
	x /= 100
	y /= 100
	width /= 100
	height /= 100
	return YOLOBox{
		XCenter: x + width/2,
		YCenter: y + height/2,
		Width:   width,
		Height:  height,
	}
}

// OrientedRect is a rectangle rotated (in degrees, clockwise) about its top-left corner.
// X, Y, Width and Height are percentages. The original image dimensions are needed
// because rotation must happen in pixel space, where the axes have the same scale.
type OrientedRect struct {
	X              float64
	Y              float64
	Width          float64
	Height         float64
	Rotation       float64
	OriginalWidth  int
	OriginalHeight int
}

// OBBCorners returns the four normalized corners of the rectangle, in the order
// top-left, top-right, bottom-right, bottom-left (relative to the unrotated box).
// If the original image size is unknown, the box can't be represented, and ok is false.
func OBBCorners(r OrientedRect) (corners [4]Point, ok bool) {
	if r.OriginalWidth <= 0 || r.OriginalHeight <= 0 {
		return corners, false
	}
	iw := float64(r.OriginalWidth)
	ih := float64(r.OriginalHeight)
	x := r.X / 100 * iw
	y := r.Y / 100 * ih
	w := r.Width / 100 * iw
	h := r.Height / 100 * ih
	rad := r.Rotation * math.Pi / 180
	cos := math.Cos(rad)
	sin := math.Sin(rad)
	px := [4]Point{
		{x, y},
		{x + w*cos, y + w*sin},
		{x + w*cos - h*sin, y + w*sin + h*cos},
		{x - h*sin, y + h*cos},
	}
	for i, p := range px {
		corners[i] = Point{X: p.X / iw, Y: p.Y / ih}
	}
	return corners, true
}

// FlattenCorners turns corners into [x1,y1,x2,y2,...]
func FlattenCorners(corners [4]Point) []float64 {
	flat := make([]float64, 0, 8)
	for _, c := range corners {
		flat = append(flat, c.X, c.Y)
	}
	return flat
}

// PolygonToYOLO converts percentage points into a flat list of normalized coordinates
func PolygonToYOLO(points []Point) []float64 {
	flat := make([]float64, 0, len(points)*2)
	for _, p := range points {
		flat = append(flat, p.X/100, p.Y/100)
	}
	return flat
}

// PolygonToPixels scales percentage points to pixel space
func PolygonToPixels(points []Point, imageWidth, imageHeight int) []Point {
	px := make([]Point, len(points))
	for i, p := range points {
		px[i] = Point{
			X: p.X / 100 * float64(imageWidth),
			Y: p.Y / 100 * float64(imageHeight),
		}
	}
	return px
}

// RectToPixels scales a percentage box to pixel space
func RectToPixels(x, y, width, height float64, imageWidth, imageHeight int) Rect {
	iw := float64(imageWidth)
	ih := float64(imageHeight)
	return Rect{
		X:      x / 100 * iw,
		Y:      y / 100 * ih,
		Width:  width / 100 * iw,
		Height: height / 100 * ih,
	}
}

const (
	KeypointNotVisible = 0
	KeypointVisible    = 2
)

// Keypoint is a single labeled point in percentage space
type Keypoint struct {
	Label          string
	X              float64
	Y              float64
	OriginalWidth  int
	OriginalHeight int
}

// KeypointTriple is (x, y, visibility)
type KeypointTriple struct {
	X float64
	Y float64
	V int
}

// YOLOKeypoints returns one normalized triple per entry in order. Slots with no
// matching keypoint are (0, 0, 0). Visibility is binary.
func YOLOKeypoints(order []string, points []Keypoint) []KeypointTriple {
	byLabel := map[string]Keypoint{}
	for _, p := range points {
		byLabel[p.Label] = p
	}
	triples := make([]KeypointTriple, len(order))
	for i, label := range order {
		if p, ok := byLabel[label]; ok {
			triples[i] = KeypointTriple{X: p.X / 100, Y: p.Y / 100, V: KeypointVisible}
		}
	}
	return triples
}

// FlattenTriples turns triples into [x1,y1,v1,x2,y2,v2,...]
func FlattenTriples(triples []KeypointTriple) []float64 {
	flat := make([]float64, 0, len(triples)*3)
	for _, t := range triples {
		flat = append(flat, t.X, t.Y, float64(t.V))
	}
	return flat
}

// COCOKeypoints is a keypoint instance in COCO pixel form
type COCOKeypoints struct {
	Keypoints    []int // x1,y1,v1,x2,y2,v2,...
	NumKeypoints int   // Number of keypoints with v > 0
	BBox         Rect  // Envelope of the visible keypoints, or zero if none are visible
}

// ToCOCOKeypoints scales each keypoint by its own original image size, rounding
// to the nearest pixel, and lays them out in keypoint order.
func ToCOCOKeypoints(order []string, points []Keypoint) COCOKeypoints {
	out := COCOKeypoints{
		Keypoints: make([]int, 0, len(order)*3),
	}
	visible := []Point{}
	for _, label := range order {
		found := false
		for _, p := range points {
			if p.Label != label {
				continue
			}
			px := int(math.Round(p.X / 100 * float64(p.OriginalWidth)))
			py := int(math.Round(p.Y / 100 * float64(p.OriginalHeight)))
			out.Keypoints = append(out.Keypoints, px, py, KeypointVisible)
			visible = append(visible, Point{X: float64(px), Y: float64(py)})
			found = true
			break
		}
		if !found {
			out.Keypoints = append(out.Keypoints, 0, 0, KeypointNotVisible)
		}
	}
	out.NumKeypoints = len(visible)
	out.BBox = Envelope(visible)
	return out
}
