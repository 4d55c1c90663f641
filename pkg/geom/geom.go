// Package geom converts annotation geometry, which arrives in percentage-of-image
// units (0..100), into the coordinate conventions of the export formats.
package geom

import "math"

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Rect is an axis-aligned box with its origin at the top-left
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func (r Rect) X2() float64 {
	return r.X + r.Width
}

func (r Rect) Y2() float64 {
	return r.Y + r.Height
}

func (r Rect) Area() float64 {
	return r.Width * r.Height
}

func (r Rect) Center() Point {
	return Point{
		X: r.X + r.Width/2,
		Y: r.Y + r.Height/2,
	}
}

func (r Rect) Union(b Rect) Rect {
	x1 := min(r.X, b.X)
	y1 := min(r.Y, b.Y)
	x2 := max(r.X2(), b.X2())
	y2 := max(r.Y2(), b.Y2())
	return Rect{
		X:      x1,
		Y:      y1,
		Width:  x2 - x1,
		Height: y2 - y1,
	}
}

// Envelope returns the smallest Rect containing all points, or a zero Rect if there are no points
func Envelope(points []Point) Rect {
	if len(points) == 0 {
		return Rect{}
	}
	x1, y1 := points[0].X, points[0].Y
	x2, y2 := x1, y1
	for _, p := range points[1:] {
		x1 = min(x1, p.X)
		y1 = min(y1, p.Y)
		x2 = max(x2, p.X)
		y2 = max(y2, p.Y)
	}
	return Rect{X: x1, Y: y1, Width: x2 - x1, Height: y2 - y1}
}

// PolygonArea uses the shoelace formula. The winding order doesn't matter.
func PolygonArea(points []Point) float64 {
	a := 0.0
	for i := range points {
		j := (i + 1) % len(points)
		a += points[i].X*points[j].Y - points[j].X*points[i].Y
	}
	return math.Abs(a) / 2
}
