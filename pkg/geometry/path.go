package geometry

import (
	"errors"
	"math"
	"sort"
)

// ErrShortPath is returned for paths that have fewer than two vertices.
var ErrShortPath = errors.New("path needs at least two vertices")

// Path is an ordered, open sequence of vertices.
type Path []Point

// Length returns the Euclidean distance between two points.
func Length(a, b Point2D) float64 {
	return math.Hypot(b.X-a.X, b.Y-a.Y)
}

// Slope returns the angle of the vector a->b in (-pi, pi].
func Slope(a, b Point2D) float64 {
	return math.Atan2(b.Y-a.Y, b.X-a.X)
}

// Length returns the total length of the path.
func (p Path) Length() float64 {
	var total float64
	for i := 1; i < len(p); i++ {
		total += p[i-1].Distance(p[i])
	}
	return total
}

// IsZeroLength reports whether the path has no extent: fewer than two
// vertices or all vertices equal.
func (p Path) IsZeroLength() bool {
	for i := 1; i < len(p); i++ {
		if p[i] != p[0] {
			return false
		}
	}
	return true
}

// Compact returns a copy of the path with consecutive duplicate vertices
// removed.
func (p Path) Compact() Path {
	out := make(Path, 0, len(p))
	for i, v := range p {
		if i > 0 && v == out[len(out)-1] {
			continue
		}
		out = append(out, v)
	}
	return out
}

// SubPath returns the vertices from index from to index to inclusive. When
// to < from the path is treated as a ring and the range wraps around.
func (p Path) SubPath(from, to int) Path {
	n := len(p)
	if n == 0 {
		return nil
	}
	if to < from {
		to += n
	}
	out := make(Path, 0, to-from+1)
	for i := from; i <= to; i++ {
		out = append(out, p[i%n])
	}
	return out
}

// CumulativeDistance returns the distance travelled along the path at each
// vertex. cum[0] is always 0.
func CumulativeDistance(path Path) ([]float64, error) {
	if len(path) < 2 {
		return nil, ErrShortPath
	}
	cum := make([]float64, len(path))
	for i := 1; i < len(path); i++ {
		cum[i] = cum[i-1] + path[i-1].Distance(path[i])
	}
	return cum, nil
}

// Interpolate returns the position at the given distance along the path.
// Distances outside [0, total] are clamped and NaN yields the last vertex.
// A zero-length segment yields its start vertex.
func Interpolate(cum []float64, path Path, distance float64) Point2D {
	n := min(len(cum), len(path))
	if n == 0 {
		return Point2D{}
	}
	if n == 1 || distance <= 0 {
		return path[0].ToFloat()
	}
	total := cum[n-1]
	if !(distance < total) {
		return path[n-1].ToFloat()
	}

	// First index whose cumulative value reaches the distance.
	i := sort.SearchFloat64s(cum[:n], distance)
	if i == 0 {
		return path[0].ToFloat()
	}
	a, b := path[i-1].ToFloat(), path[i].ToFloat()
	segStart, segEnd := cum[i-1], cum[i]
	if segEnd <= segStart {
		return a
	}
	t := (distance - segStart) / (segEnd - segStart)
	t = math.Max(0, math.Min(1, t))
	return Point2D{
		X: a.X + t*(b.X-a.X),
		Y: a.Y + t*(b.Y-a.Y),
	}
}
