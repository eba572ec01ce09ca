// Package arc converts circular track arcs into polylines whose chords stay
// within a maximum deviation (sagitta) of the true arc.
package arc

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"pcb-viafence/pkg/geometry"
)

// ErrCollinear is returned when the three arc points do not define a circle.
var ErrCollinear = errors.New("arc points are collinear")

// Limits bounds the number of chords used for a single arc.
type Limits struct {
	Floor   int // Minimum segment count, avoids single-chord arcs
	Ceiling int // Maximum segment count for huge radii/angles
}

// DefaultLimits returns the limits used by the fence generator.
func DefaultLimits() Limits {
	return Limits{
		Floor:   16,
		Ceiling: 200,
	}
}

func (l Limits) clamp(n int) int {
	if l.Ceiling > 0 && n > l.Ceiling {
		n = l.Ceiling
	}
	if n < l.Floor {
		n = l.Floor
	}
	return n
}

// SegmentCount returns the smallest number of chords for which the sagitta
// radius*(1-cos(angle/(2n))) does not exceed maxDeviation, clamped to lim.
// Degenerate input (radius <= 0, angle <= 0) returns lim.Floor.
func SegmentCount(radius, angle, maxDeviation float64, lim Limits) int {
	if radius <= 0 || angle <= 0 {
		return lim.Floor
	}

	// Tiny arcs would otherwise get a deviation bound larger than themselves.
	dev := math.Min(maxDeviation, radius*0.5)
	if dev <= 0 || dev >= radius {
		return lim.Floor
	}

	cos := math.Max(-1, math.Min(1, 1-dev/radius))
	perSegment := 2 * math.Acos(cos)
	if perSegment <= 0 || math.IsNaN(perSegment) {
		return lim.Floor
	}
	return lim.clamp(int(math.Ceil(angle / perSegment)))
}

// Sweep returns the signed angle from a1 to a2, taking the shorter direction
// when the raw difference exceeds pi.
func Sweep(a1, a2 float64) float64 {
	d := a2 - a1
	switch {
	case d > math.Pi:
		d -= 2 * math.Pi
	case d < -math.Pi:
		d += 2 * math.Pi
	}
	return d
}

// CircleFrom3 returns the circle passing through three points.
func CircleFrom3(p1, p2, p3 geometry.Point2D) (geometry.Point2D, float64, error) {
	// 2(x2-x1)cx + 2(y2-y1)cy = x2²+y2²-x1²-y1², likewise for p3.
	a := mat.NewDense(2, 2, []float64{
		2 * (p2.X - p1.X), 2 * (p2.Y - p1.Y),
		2 * (p3.X - p1.X), 2 * (p3.Y - p1.Y),
	})
	b := mat.NewVecDense(2, []float64{
		p2.X*p2.X + p2.Y*p2.Y - p1.X*p1.X - p1.Y*p1.Y,
		p3.X*p3.X + p3.Y*p3.Y - p1.X*p1.X - p1.Y*p1.Y,
	})

	scale := math.Max(p1.Distance(p2), p1.Distance(p3))
	if scale == 0 || math.Abs(mat.Det(a)) <= 1e-12*scale*scale {
		return geometry.Point2D{}, 0, ErrCollinear
	}

	var c mat.VecDense
	if err := c.SolveVec(a, b); err != nil {
		var cond mat.Condition
		if !errors.As(err, &cond) {
			return geometry.Point2D{}, 0, fmt.Errorf("solve arc center: %w", err)
		}
	}
	center := geometry.Point2D{X: c.AtVec(0), Y: c.AtVec(1)}
	return center, center.Distance(p1), nil
}

// Discretize turns the arc through start, mid and end into a polyline. The
// first and last vertices are exactly start and end so that the result joins
// neighbouring tracks vertex-for-vertex.
func Discretize(start, mid, end geometry.Point, maxDeviation float64, lim Limits) (geometry.Path, error) {
	if start == end {
		return nil, fmt.Errorf("arc %v: %w", start, geometry.ErrShortPath)
	}
	center, radius, err := CircleFrom3(start.ToFloat(), mid.ToFloat(), end.ToFloat())
	if err != nil {
		// A flat arc is just a straight track.
		if errors.Is(err, ErrCollinear) {
			return geometry.Path{start, end}, nil
		}
		return nil, err
	}

	a1 := geometry.Slope(center, start.ToFloat())
	a2 := geometry.Slope(center, end.ToFloat())
	am := geometry.Slope(center, mid.ToFloat())
	sweep := Sweep(a1, a2)

	// Arcs longer than a half circle: the midpoint decides the direction.
	if !withinSweep(a1, sweep, am) {
		sweep -= math.Copysign(2*math.Pi, sweep)
	}

	n := SegmentCount(radius, math.Abs(sweep), maxDeviation, lim)
	step := sweep / float64(n)

	path := make(geometry.Path, 0, n+1)
	path = append(path, start)
	for i := 1; i < n; i++ {
		sin, cos := math.Sincos(a1 + step*float64(i))
		p := geometry.Point2D{X: center.X + radius*cos, Y: center.Y + radius*sin}
		path = append(path, p.Round())
	}
	path = append(path, end)
	return path.Compact(), nil
}

// withinSweep reports whether angle a lies on the arc starting at a1 and
// sweeping by sweep radians.
func withinSweep(a1, sweep, a float64) bool {
	d := math.Mod(a-a1, 2*math.Pi)
	if sweep >= 0 {
		if d < 0 {
			d += 2 * math.Pi
		}
		return d <= sweep
	}
	if d > 0 {
		d -= 2 * math.Pi
	}
	return d >= sweep
}
