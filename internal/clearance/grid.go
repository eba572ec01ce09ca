package clearance

import (
	"math"
	"slices"

	"pcb-viafence/pkg/geometry"
)

// maxCellsPerItem bounds how many cells a single item is copied into.
// Larger items are kept in a list that every query returns.
const maxCellsPerItem = 4096

type cellKey struct{ x, y int64 }

// Grid is a uniform bucket index over item bounding boxes. Items are
// inserted with their bounding box already grown by their interaction
// reach, so a point query only has to look at one cell.
type Grid struct {
	size     float64
	cells    map[cellKey][]int
	oversize []int
}

// NewGrid creates a grid with the given cell size in internal units.
func NewGrid(size float64) *Grid {
	if !(size >= 1) {
		size = 1
	}
	return &Grid{size: size, cells: make(map[cellKey][]int)}
}

func (g *Grid) key(x, y int64) cellKey {
	return cellKey{
		x: int64(math.Floor(float64(x) / g.size)),
		y: int64(math.Floor(float64(y) / g.size)),
	}
}

// Insert adds item id covering bounds.
func (g *Grid) Insert(id int, bounds geometry.Rect) {
	if bounds.Empty() {
		return
	}
	lo, hi := g.key(bounds.Min.X, bounds.Min.Y), g.key(bounds.Max.X, bounds.Max.Y)
	if (hi.x-lo.x+1)*(hi.y-lo.y+1) > maxCellsPerItem {
		g.oversize = append(g.oversize, id)
		return
	}
	for x := lo.x; x <= hi.x; x++ {
		for y := lo.y; y <= hi.y; y++ {
			k := cellKey{x, y}
			g.cells[k] = append(g.cells[k], id)
		}
	}
}

// Query returns the ids of items whose bounds may contain p, in ascending
// order.
func (g *Grid) Query(p geometry.Point) []int {
	hits := g.cells[g.key(p.X, p.Y)]
	if len(g.oversize) == 0 {
		return hits
	}
	out := make([]int, 0, len(hits)+len(g.oversize))
	out = append(out, hits...)
	out = append(out, g.oversize...)
	slices.Sort(out)
	return out
}
