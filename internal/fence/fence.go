// Package fence turns trace centerlines into open fence paths: the offset
// outline of the traces, cut flush at every trace end and split into one
// path per side.
package fence

import (
	"math"

	"pcb-viafence/internal/diag"
	"pcb-viafence/internal/logging"
	"pcb-viafence/internal/polyclip"
	"pcb-viafence/pkg/geometry"
)

// Diagnostic layer labels.
const (
	LabelOffset  = "offset"
	LabelTrimmed = "trimmed"
	LabelStamps  = "stamps"
	LabelLeaves  = "leaves"
	LabelFence   = "fence"
)

// stampRatio is the distance of the chamfer corners of the trim stamp,
// tan(22.5°) rounded as in the board tooling this replaces.
const stampRatio = 0.414

// stampScale sizes the trim stamp relative to the offset so it swallows the
// whole round end cap.
const stampScale = 1.1

// FencePath is one side of a via fence.
type FencePath struct {
	Path geometry.Path
	// Closed is set when the path is a full ring (looped traces or holes);
	// its first and last vertices are equal.
	Closed bool
}

// Leaf is a trace end that is not shared with any other trace.
type Leaf struct {
	Pos geometry.Point
	// Slope is the direction from the leaf towards its neighbour vertex.
	Slope float64
}

// Extractor builds fence paths from trace paths.
type Extractor struct {
	Clip polyclip.Clipper
	Sink diag.Sink
}

// NewExtractor returns an Extractor using the default clipping backend.
func NewExtractor(sink diag.Sink) *Extractor {
	return &Extractor{Clip: polyclip.New(), Sink: diag.OrNop(sink)}
}

// Extract offsets paths by offset and returns the fence paths around them.
// Degenerate input yields fewer (or no) fence paths, never an error.
func (e *Extractor) Extract(paths []geometry.Path, offset float64) []FencePath {
	clip := e.Clip
	if clip == nil {
		clip = polyclip.New()
	}
	sink := diag.OrNop(e.Sink)

	paths = CleanPaths(paths)
	if len(paths) == 0 || offset <= 0 {
		return nil
	}

	polys := clip.Offset(paths, offset)
	sink.Polygons(LabelOffset, polys)

	var fences []FencePath
	for i, poly := range polys {
		if clip.IsHole(poly) {
			fences = append(fences, FencePath{Path: poly.Ring(), Closed: true})
			continue
		}

		local := PathsInside(clip, paths, poly)
		if len(local) == 0 {
			logging.Logger().Debug("offset polygon encloses no paths", "polygon", i)
			continue
		}

		leaves := LeafVertices(local)
		if len(leaves) == 0 {
			// Looped traces: the outline has no ends to cut.
			fences = append(fences, FencePath{Path: poly.Ring(), Closed: true})
			continue
		}

		stamps := clip.Union(TrimStamps(leaves, stampScale*offset))
		sink.Polygons(LabelStamps, stamps)
		trimmed := largest(clip.Difference(poly, stamps))
		if trimmed == nil {
			logging.Logger().Debug("trimming removed offset polygon", "polygon", i)
			continue
		}
		sink.Polygons(LabelTrimmed, []geometry.Polygon{trimmed})
		sink.Points(LabelLeaves, leafPoints(leaves))

		butts := ButtEdges(trimmed, leaves, stamps, stampScale*offset)
		for _, p := range SplitAtEdges(trimmed, butts) {
			fences = append(fences, FencePath{Path: p})
		}
	}

	out := make([]geometry.Path, len(fences))
	for i, f := range fences {
		out[i] = f.Path
	}
	sink.Paths(LabelFence, out)
	return fences
}

// CleanPaths drops zero-length paths and removes repeated vertices.
func CleanPaths(paths []geometry.Path) []geometry.Path {
	out := make([]geometry.Path, 0, len(paths))
	for _, p := range paths {
		if p.IsZeroLength() {
			continue
		}
		out = append(out, p.Compact())
	}
	return out
}

// PathsInside returns the paths whose every vertex lies strictly inside poly.
func PathsInside(clip polyclip.Clipper, paths []geometry.Path, poly geometry.Polygon) []geometry.Path {
	var out []geometry.Path
	for _, p := range paths {
		inside := true
		for _, v := range p {
			if !clip.Inside(v, poly) {
				inside = false
				break
			}
		}
		if inside {
			out = append(out, p)
		}
	}
	return out
}

// LeafVertices returns the path endpoints that occur exactly once among all
// vertices of all paths, with the direction from each leaf into its path.
func LeafVertices(paths []geometry.Path) []Leaf {
	count := make(map[geometry.Point]int)
	for _, p := range paths {
		for _, v := range p {
			count[v]++
		}
	}

	var leaves []Leaf
	for _, p := range paths {
		if len(p) < 2 {
			continue
		}
		ends := [2]struct{ leaf, next geometry.Point }{
			{p[0], p[1]},
			{p[len(p)-1], p[len(p)-2]},
		}
		for _, end := range ends {
			if count[end.leaf] != 1 {
				continue
			}
			leaves = append(leaves, Leaf{
				Pos:   end.leaf,
				Slope: geometry.Slope(end.leaf.ToFloat(), end.next.ToFloat()),
			})
		}
	}
	return leaves
}

// TrimStamps builds one flag-shaped heptagon per leaf. Each stamp has a
// straight edge through the leaf, perpendicular to the trace, and extends
// radius away from the trace so it covers the round end cap.
func TrimStamps(leaves []Leaf, radius float64) []geometry.Polygon {
	c := stampRatio * radius
	shape := []geometry.Point2D{
		{X: 0, Y: -radius}, {X: 0, Y: 0}, {X: 0, Y: radius},
		{X: -c, Y: radius}, {X: -radius, Y: c},
		{X: -radius, Y: -c}, {X: -c, Y: -radius},
	}

	stamps := make([]geometry.Polygon, 0, len(leaves))
	for _, l := range leaves {
		pos := l.Pos.ToFloat()
		tf := geometry.Translation(pos.X, pos.Y).Compose(geometry.Rotation(l.Slope))
		stamp := make(geometry.Polygon, len(shape))
		for i, v := range shape {
			stamp[i] = tf.Apply(v).Round()
		}
		stamps = append(stamps, stamp)
	}
	return stamps
}

// buttSnap is how far (in internal units) a vertex may sit from a leaf's
// cut line and still count as part of the cut. Rounding of the trim stamp
// can leave diagonal cuts a unit off.
const buttSnap = 2.0

// ButtEdges returns the polygon edges created by the trim at each leaf, in
// ring order. An edge qualifies when a leaf lies exactly on it, when both
// of its vertices lie on the leaf's cut line within reach of the leaf, or
// when the whole edge runs along the boundary of the trim stamps. The last
// case catches the steps the stamp union leaves where neighbouring traces
// end at slightly different positions.
func ButtEdges(poly geometry.Polygon, leaves []Leaf, stamps []geometry.Polygon, reach float64) []geometry.Edge {
	var out []geometry.Edge
	for _, e := range poly.Edges() {
		a, b := poly[e.From], poly[e.To]
		if onStampEdge(a, b, stamps) {
			out = append(out, e)
			continue
		}
		for _, l := range leaves {
			if geometry.PointOnSegment(l.Pos, a, b) || (onCutLine(l, a, reach) && onCutLine(l, b, reach)) {
				out = append(out, e)
				break
			}
		}
	}
	return out
}

// onStampEdge reports whether both ends and the midpoint of a-b lie within
// buttSnap of the stamp outlines.
func onStampEdge(a, b geometry.Point, stamps []geometry.Polygon) bool {
	if len(stamps) == 0 {
		return false
	}
	fa, fb := a.ToFloat(), b.ToFloat()
	mid := geometry.Point2D{X: (fa.X + fb.X) / 2, Y: (fa.Y + fb.Y) / 2}
	for _, p := range []geometry.Point2D{fa, mid, fb} {
		if !nearOutline(p, stamps) {
			return false
		}
	}
	return true
}

func nearOutline(p geometry.Point2D, polys []geometry.Polygon) bool {
	for _, poly := range polys {
		for _, e := range poly.Edges() {
			if geometry.SegmentDistance(p, poly[e.From].ToFloat(), poly[e.To].ToFloat()) <= buttSnap {
				return true
			}
		}
	}
	return false
}

func onCutLine(l Leaf, p geometry.Point, reach float64) bool {
	sin, cos := math.Sincos(l.Slope)
	dx := float64(p.X - l.Pos.X)
	dy := float64(p.Y - l.Pos.Y)
	across := dx*cos + dy*sin
	along := -dx*sin + dy*cos
	return math.Abs(across) <= buttSnap && math.Abs(along) <= reach
}

// SplitAtEdges opens the polygon ring at every butt edge and returns the
// open paths running between consecutive butt edges.
func SplitAtEdges(poly geometry.Polygon, butts []geometry.Edge) []geometry.Path {
	ring := geometry.Path(poly)
	var out []geometry.Path
	for k := range butts {
		from := butts[k].To
		to := butts[(k+1)%len(butts)].From
		if from == to {
			continue
		}
		out = append(out, ring.SubPath(from, to))
	}
	return out
}

func largest(polys []geometry.Polygon) geometry.Polygon {
	var best geometry.Polygon
	var bestArea float64
	for _, p := range polys {
		if a := math.Abs(p.SignedArea()); a > bestArea {
			best, bestArea = p, a
		}
	}
	return best
}

func leafPoints(leaves []Leaf) []geometry.Point {
	pts := make([]geometry.Point, len(leaves))
	for i, l := range leaves {
		pts[i] = l.Pos
	}
	return pts
}
