package via

import (
	"math"

	"pcb-viafence/pkg/geometry"
)

// endClearance keeps shifted positions off the fixed end points.
const endClearance = 1.0

// Deviation returns by how many degrees the path deviates from a straight
// line at vertex i. i must be an interior vertex.
func Deviation(path geometry.Path, i int) float64 {
	v := path[i].ToFloat()
	toNext := geometry.Slope(v, path[i+1].ToFloat())
	toPrev := geometry.Slope(v, path[i-1].ToFloat())
	dev := math.Abs(math.Abs(toNext-toPrev) - math.Pi)
	return dev * 180 / math.Pi
}

// BendPoints returns the indices of interior vertices deviating from a
// straight line by more than tolDeg degrees.
func BendPoints(path geometry.Path, tolDeg float64) []int {
	var idx []int
	for i := 1; i < len(path)-1; i++ {
		if Deviation(path, i) > tolDeg {
			idx = append(idx, i)
		}
	}
	return idx
}

// FilterSharpJunctions drops bends deviating by sharpDeg degrees or more.
// Those are the inward kinks of a fence at tight trace junctions, where a
// via would sit too close to the trace.
func FilterSharpJunctions(path geometry.Path, idx []int, sharpDeg float64) []int {
	out := make([]int, 0, len(idx))
	for _, i := range idx {
		if i <= 0 || i >= len(path)-1 {
			out = append(out, i)
			continue
		}
		if Deviation(path, i) < sharpDeg {
			out = append(out, i)
		}
	}
	return out
}

// FixedPoints returns the anchor indices of a path: its first vertex, the
// given bends and its last vertex.
func FixedPoints(path geometry.Path, bends []int) []int {
	if len(path) == 0 {
		return nil
	}
	fixed := make([]int, 0, len(bends)+2)
	fixed = append(fixed, 0)
	fixed = append(fixed, bends...)
	return append(fixed, len(path)-1)
}

// DistributeAlongPath spaces points evenly along path, never closer than
// pitch. Without a shift the n-1 interior points at k·L/n are returned,
// where n = floor(L/pitch); the end vertices are not included. With a
// shift s the points sit at s + k·L/n, stopping short of the path end.
func DistributeAlongPath(path geometry.Path, pitch, shift float64) []geometry.Point {
	if pitch <= 0 {
		return nil
	}
	cum, err := geometry.CumulativeDistance(path)
	if err != nil {
		return nil
	}
	total := cum[len(cum)-1]
	n := int(math.Floor(total / pitch))
	if n < 1 {
		return nil
	}
	step := total / float64(n)

	var pts []geometry.Point
	if shift <= 0 {
		for k := 1; k < n; k++ {
			pts = append(pts, geometry.Interpolate(cum, path, float64(k)*step).Round())
		}
		return pts
	}
	for k := 0; k < n; k++ {
		d := shift + float64(k)*step
		if d >= total-endClearance {
			break
		}
		if d <= endClearance {
			continue
		}
		pts = append(pts, geometry.Interpolate(cum, path, d).Round())
	}
	return pts
}

// PlaceAlong returns the via positions for a single fence path. Unshifted
// rows get a via at every fixed point plus the evenly spaced vias between
// them; shifted rows only get the spaced vias, offset by shift.
func PlaceAlong(path geometry.Path, p Params, shift float64) []geometry.Point {
	if len(path) < 2 {
		return nil
	}
	bends := FilterSharpJunctions(path, BendPoints(path, p.AngleTolerance), p.SharpJunction)
	fixed := FixedPoints(path, bends)

	var pts []geometry.Point
	if shift <= 0 {
		for _, i := range fixed {
			pts = append(pts, path[i])
		}
	}
	for k := 0; k+1 < len(fixed); k++ {
		if fixed[k] == fixed[k+1] {
			continue
		}
		sub := path.SubPath(fixed[k], fixed[k+1])
		pts = append(pts, DistributeAlongPath(sub, p.Pitch, shift)...)
	}
	return pts
}
