package geometry

import "math"

// Polygon is a closed ring of vertices. The edge from the last vertex back
// to the first is implicit.
type Polygon []Point

// Edge is a polygon edge given by the indices of its two vertices.
type Edge struct {
	From, To int
}

// Edges returns every edge of the ring, including the closing edge.
func (p Polygon) Edges() []Edge {
	n := len(p)
	if n < 2 {
		return nil
	}
	edges := make([]Edge, n)
	for i := range p {
		edges[i] = Edge{From: i, To: (i + 1) % n}
	}
	return edges
}

// SignedArea returns the shoelace area; positive for counter-clockwise rings
// in a Y-up frame.
func (p Polygon) SignedArea() float64 {
	n := len(p)
	if n < 3 {
		return 0
	}
	var a float64
	for i := range p {
		j := (i + 1) % n
		a += float64(p[i].X)*float64(p[j].Y) - float64(p[j].X)*float64(p[i].Y)
	}
	return a / 2
}

// Ring returns the polygon as an open path that starts and ends on vertex 0.
func (p Polygon) Ring() Path {
	if len(p) == 0 {
		return nil
	}
	out := make(Path, 0, len(p)+1)
	out = append(out, p...)
	return append(out, p[0])
}

// PointOnSegment reports whether p lies exactly on the segment a-b. The test
// is exact: the cross product must be zero and p must lie in the bounding box
// of the segment.
func PointOnSegment(p, a, b Point) bool {
	cross := (b.Y-p.Y)*(a.X-p.X) - (b.X-p.X)*(a.Y-p.Y)
	if cross != 0 {
		return false
	}
	return between(p.X, a.X, b.X) && between(p.Y, a.Y, b.Y)
}

func between(v, a, b int64) bool {
	return (a <= v && v <= b) || (b <= v && v <= a)
}

// SegmentDistance returns the distance from p to the closest point of the
// segment a-b (clamped projection).
func SegmentDistance(p, a, b Point2D) float64 {
	dx := b.X - a.X
	dy := b.Y - a.Y
	if dx == 0 && dy == 0 {
		return p.Distance(a)
	}
	t := ((p.X-a.X)*dx + (p.Y-a.Y)*dy) / (dx*dx + dy*dy)
	t = math.Max(0, math.Min(1, t))
	return math.Hypot(p.X-(a.X+t*dx), p.Y-(a.Y+t*dy))
}
