// Package polyclip wraps the polygon operations the fence generator needs
// (round offset of open paths, union, difference and point containment)
// behind a small interface so the backing library can be swapped.
package polyclip

import (
	"fmt"

	clipper "github.com/ctessum/go.clipper"

	"pcb-viafence/internal/logging"
	"pcb-viafence/pkg/geometry"
)

// Clipper is the polygon capability used by the fence extractor.
type Clipper interface {
	// Offset expands open paths by delta using round joins and round ends.
	Offset(paths []geometry.Path, delta float64) []geometry.Polygon
	// Union merges polygons using the non-zero fill rule.
	Union(polys []geometry.Polygon) []geometry.Polygon
	// Difference removes clip polygons from subject.
	Difference(subject geometry.Polygon, clips []geometry.Polygon) []geometry.Polygon
	// Inside reports whether pt is strictly inside poly; points on the
	// boundary are not inside.
	Inside(pt geometry.Point, poly geometry.Polygon) bool
	// IsHole reports whether poly is oriented as a hole.
	IsHole(poly geometry.Polygon) bool
}

// Vatti implements Clipper with Angus Johnson's Clipper library.
type Vatti struct {
	// ArcTolerance is the maximum deviation of offset arcs from the true
	// circle, in internal units. Zero selects the library default.
	ArcTolerance float64
}

var _ Clipper = Vatti{}

// New returns the default Clipper implementation.
func New() Vatti {
	return Vatti{}
}

func (v Vatti) Offset(paths []geometry.Path, delta float64) (out []geometry.Polygon) {
	if len(paths) == 0 || delta <= 0 {
		return nil
	}
	defer recoverEmpty("offset", &out)

	co := clipper.NewClipperOffset()
	if v.ArcTolerance > 0 {
		co.ArcTolerance = v.ArcTolerance
	}
	for _, p := range paths {
		cp := toClipper(p.Compact())
		if len(cp) < 2 {
			continue
		}
		co.AddPath(cp, clipper.JtRound, clipper.EtOpenRound)
	}
	return fromClipperAll(co.Execute(delta))
}

func (v Vatti) Union(polys []geometry.Polygon) (out []geometry.Polygon) {
	if len(polys) == 0 {
		return nil
	}
	defer recoverEmpty("union", &out)

	c := clipper.NewClipper(clipper.IoNone)
	for _, p := range polys {
		c.AddPath(toClipper(geometry.Path(p)), clipper.PtSubject, true)
	}
	sol, ok := c.Execute1(clipper.CtUnion, clipper.PftNonZero, clipper.PftNonZero)
	if !ok {
		return nil
	}
	return fromClipperAll(sol)
}

func (v Vatti) Difference(subject geometry.Polygon, clips []geometry.Polygon) (out []geometry.Polygon) {
	if len(subject) < 3 {
		return nil
	}
	defer recoverEmpty("difference", &out)

	c := clipper.NewClipper(clipper.IoNone)
	c.AddPath(toClipper(geometry.Path(subject)), clipper.PtSubject, true)
	for _, p := range clips {
		c.AddPath(toClipper(geometry.Path(p)), clipper.PtClip, true)
	}
	sol, ok := c.Execute1(clipper.CtDifference, clipper.PftEvenOdd, clipper.PftEvenOdd)
	if !ok {
		return nil
	}
	return fromClipperAll(sol)
}

func (v Vatti) Inside(pt geometry.Point, poly geometry.Polygon) bool {
	ip := &clipper.IntPoint{X: clipper.CInt(pt.X), Y: clipper.CInt(pt.Y)}
	return clipper.PointInPolygon(ip, toClipper(geometry.Path(poly))) == 1
}

func (v Vatti) IsHole(poly geometry.Polygon) bool {
	return !clipper.Orientation(toClipper(geometry.Path(poly)))
}

func toClipper(p geometry.Path) clipper.Path {
	out := make(clipper.Path, len(p))
	for i, v := range p {
		out[i] = &clipper.IntPoint{X: clipper.CInt(v.X), Y: clipper.CInt(v.Y)}
	}
	return out
}

func fromClipper(p clipper.Path) geometry.Polygon {
	out := make(geometry.Polygon, len(p))
	for i, v := range p {
		out[i] = geometry.Point{X: int64(v.X), Y: int64(v.Y)}
	}
	return out
}

func fromClipperAll(ps clipper.Paths) []geometry.Polygon {
	out := make([]geometry.Polygon, 0, len(ps))
	for _, p := range ps {
		if len(p) < 3 {
			continue
		}
		out = append(out, fromClipper(p))
	}
	return out
}

// recoverEmpty turns a panic inside the clipping library into an empty
// result. Degenerate geometry must never abort a run.
func recoverEmpty(op string, out *[]geometry.Polygon) {
	if r := recover(); r != nil {
		logging.Logger().Warn("polygon operation failed", "op", op, "err", fmt.Sprint(r))
		*out = nil
	}
}
