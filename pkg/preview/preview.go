// Package preview draws the regions of a task's annotations over its image,
// so that a conversion can be eyeballed before training on it.
package preview

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/cyclopcam/labelconv/pkg/export"
	"github.com/cyclopcam/labelconv/pkg/geom"
	"github.com/cyclopcam/labelconv/pkg/iox"
	"github.com/cyclopcam/labelconv/pkg/task"
	"github.com/fogleman/gg"
)

var palette = []color.RGBA{
	{230, 25, 75, 255},
	{60, 180, 75, 255},
	{0, 130, 200, 255},
	{245, 130, 48, 255},
	{145, 30, 180, 255},
	{70, 240, 240, 255},
	{240, 50, 230, 255},
	{210, 245, 60, 255},
}

const (
	lineWidth      = 3
	keypointRadius = 4
)

// Renderer assigns a stable color to each label, in order of first appearance
type Renderer struct {
	run    *export.Run
	colors map[string]color.RGBA
}

func NewRenderer(run *export.Run) *Renderer {
	return &Renderer{
		run:    run,
		colors: map[string]color.RGBA{},
	}
}

func (p *Renderer) color(label string) color.RGBA {
	if c, ok := p.colors[label]; ok {
		return c
	}
	c := palette[len(p.colors)%len(palette)]
	p.colors[label] = c
	return c
}

// Draw returns the task's image with every region of its non-cancelled annotations on top
func (p *Renderer) Draw(ctx context.Context, t *task.Task) (image.Image, error) {
	fn, err := p.run.ResolveMedia(ctx, t, p.run.ImageKey(t))
	if err != nil {
		return nil, err
	}
	img, err := gg.LoadImage(fn)
	if err != nil {
		return nil, err
	}
	dc := gg.NewContextForImage(img)
	for _, results := range t.Results() {
		for i := range results {
			p.drawItem(dc, &results[i])
		}
	}
	return dc.Image(), nil
}

func (p *Renderer) drawItem(dc *gg.Context, item *task.ResultItem) {
	w, h := dc.Width(), dc.Height()
	label := ""
	if labels := item.Value.Labels(item.Type); len(labels) != 0 {
		label = strings.Join(labels, ",")
	}
	c := p.color(label)
	dc.SetColor(c)
	dc.SetLineWidth(lineWidth)

	var outline []geom.Point
	switch export.ResultShape(item) {
	case export.ShapeRect:
		x, y, bw, bh, _ := item.Value.Rect()
		corners, _ := geom.OBBCorners(geom.OrientedRect{
			X:              x,
			Y:              y,
			Width:          bw,
			Height:         bh,
			Rotation:       item.Value.Rotation(),
			OriginalWidth:  w,
			OriginalHeight: h,
		})
		for _, cn := range corners {
			outline = append(outline, geom.Point{X: cn.X * float64(w), Y: cn.Y * float64(h)})
		}
	case export.ShapePolygon:
		points, _ := item.Value.Points()
		outline = geom.PolygonToPixels(points, w, h)
	case export.ShapeKeypoint:
		x, y, _ := item.Value.Keypoint()
		px := geom.PolygonToPixels([]geom.Point{{X: x, Y: y}}, w, h)[0]
		dc.DrawCircle(px.X, px.Y, keypointRadius)
		dc.Fill()
		return
	}
	if len(outline) == 0 {
		return
	}

	for i, pt := range outline {
		if i == 0 {
			dc.MoveTo(pt.X, pt.Y)
		} else {
			dc.LineTo(pt.X, pt.Y)
		}
	}
	dc.ClosePath()
	dc.Stroke()
	if label != "" {
		dc.DrawString(label, outline[0].X+lineWidth, outline[0].Y-lineWidth)
	}
}

// WriteFile draws the task and writes it to filename as a PNG
func (p *Renderer) WriteFile(ctx context.Context, t *task.Task, filename string) error {
	img, err := p.Draw(ctx, t)
	if err != nil {
		return err
	}
	return iox.WriteFileAtomic(filename, func(w io.Writer) error {
		return png.Encode(w, img)
	})
}

// RenderAll writes one PNG per task into outDir, and returns the number written.
// Tasks whose image can't be found are skipped if the run allows it.
func RenderAll(ctx context.Context, run *export.Run, tasks []task.Task, outDir string) (int, error) {
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return 0, err
	}
	p := NewRenderer(run)
	names := export.UniqueFilenames{}
	n := 0
	for i := range tasks {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		t := &tasks[i]
		name := names.Name(t, run.ImageKey(t))
		name = strings.TrimSuffix(name, filepath.Ext(name)) + ".png"
		if err := p.WriteFile(ctx, t, filepath.Join(outDir, name)); err != nil {
			if err = run.MediaError(t, err); err != nil {
				return n, err
			}
			continue
		}
		n++
	}
	run.Log.Infof("Wrote %v previews to %v", n, outDir)
	return n, nil
}
