package diag

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/fogleman/gg"
	"golang.org/x/image/tiff"

	"pcb-viafence/pkg/colorutil"
	"pcb-viafence/pkg/geometry"
)

// ErrNothingToRender is returned when no layer holds any geometry.
var ErrNothingToRender = errors.New("no geometry to render")

// RenderOptions configures how recorded layers are drawn.
type RenderOptions struct {
	Size        int     // Longest image side in pixels
	Padding     float64 // Border in pixels
	LineWidth   float64 // Stroke width in pixels
	PointRadius float64 // Point radius in board units; 0 draws PointPixels
	PointPixels float64 // Point radius in pixels when PointRadius is 0

	Background color.RGBA
	// Colors overrides the palette color for a layer label.
	Colors map[string]color.RGBA
}

// DefaultRenderOptions returns default rendering options.
func DefaultRenderOptions() RenderOptions {
	return RenderOptions{
		Size:        2048,
		Padding:     20,
		LineWidth:   1.5,
		PointPixels: 3,
		Background:  colorutil.Black,
	}
}

func (o RenderOptions) color(i int, label string) color.RGBA {
	if c, ok := o.Colors[label]; ok {
		return c
	}
	return colorutil.Cycle(i)
}

// bounds returns the bounding box of all geometry in layers.
func bounds(layers []Layer) (geometry.Rect, bool) {
	var pts []geometry.Point
	for _, l := range layers {
		for _, p := range l.Polygons {
			pts = append(pts, p...)
		}
		for _, p := range l.Paths {
			pts = append(pts, p...)
		}
		pts = append(pts, l.Points...)
	}
	if len(pts) == 0 {
		return geometry.Rect{}, false
	}
	return geometry.BoundingBox(pts), true
}

// Render draws layers in order, later layers on top. Polygons are filled
// translucent and outlined, paths are stroked and points drawn as discs.
// Board coordinates grow downwards, like image coordinates.
func Render(layers []Layer, opts RenderOptions) (image.Image, error) {
	box, ok := bounds(layers)
	if !ok {
		return nil, ErrNothingToRender
	}
	if opts.Size <= 0 {
		opts.Size = DefaultRenderOptions().Size
	}

	w := math.Max(float64(box.Width()), 1)
	h := math.Max(float64(box.Height()), 1)
	avail := float64(opts.Size) - 2*opts.Padding
	if avail <= 0 {
		return nil, fmt.Errorf("image size %d leaves no room inside padding %.0f", opts.Size, opts.Padding)
	}
	scale := avail / math.Max(w, h)

	width := int(math.Ceil(w*scale + 2*opts.Padding))
	height := int(math.Ceil(h*scale + 2*opts.Padding))
	dc := gg.NewContext(width, height)
	dc.SetRGBA(colorutil.ToFloat(opts.Background))
	dc.DrawRectangle(0, 0, float64(width), float64(height))
	dc.Fill()
	dc.SetFillRuleEvenOdd()

	dc.Translate(opts.Padding, opts.Padding)
	dc.Scale(scale, scale)
	dc.Translate(-float64(box.Min.X), -float64(box.Min.Y))

	dc.SetLineWidth(opts.LineWidth)
	radius := opts.PointRadius
	if radius <= 0 {
		radius = opts.PointPixels / scale
	}

	for i, l := range layers {
		c := opts.color(i, l.Label)

		for _, poly := range l.Polygons {
			if len(poly) < 3 {
				continue
			}
			tracePath(dc, geometry.Path(poly))
			dc.ClosePath()
			dc.SetRGBA(colorutil.ToFloat(colorutil.WithAlpha(colorutil.Darken(c, 0.5), 96)))
			dc.FillPreserve()
			dc.SetRGBA(colorutil.ToFloat(c))
			dc.Stroke()
		}

		dc.SetRGBA(colorutil.ToFloat(c))
		for _, p := range l.Paths {
			if len(p) < 2 {
				continue
			}
			tracePath(dc, p)
			dc.Stroke()
		}

		for _, p := range l.Points {
			dc.DrawCircle(float64(p.X), float64(p.Y), radius)
			dc.Fill()
		}
	}

	return dc.Image(), nil
}

func tracePath(dc *gg.Context, p geometry.Path) {
	dc.NewSubPath()
	dc.MoveTo(float64(p[0].X), float64(p[0].Y))
	for _, q := range p[1:] {
		dc.LineTo(float64(q.X), float64(q.Y))
	}
}

// SaveImage renders layers and writes the image to path. The format is
// chosen by extension: .png, or .tif/.tiff.
func SaveImage(path string, layers []Layer, opts RenderOptions) error {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".png" && ext != ".tif" && ext != ".tiff" {
		return fmt.Errorf("unsupported debug image format %q", ext)
	}

	img, err := Render(layers, opts)
	if err != nil {
		return err
	}

	if ext == ".png" {
		return gg.SavePNG(path, img)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := tiff.Encode(f, img, &tiff.Options{Compression: tiff.Deflate, Predictor: true}); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}
