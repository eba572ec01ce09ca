package via

import (
	"context"
	"math"
	"sync"

	"pcb-viafence/internal/fence"
	"pcb-viafence/internal/logging"
	"pcb-viafence/pkg/geometry"
)

// Distributor generates via candidates for every fence row.
type Distributor struct {
	Params    Params
	Extractor *fence.Extractor
}

// NewDistributor returns a Distributor for params. A nil extractor selects
// the default one.
func NewDistributor(p Params, ex *fence.Extractor) *Distributor {
	if ex == nil {
		ex = fence.NewExtractor(nil)
	}
	return &Distributor{Params: p, Extractor: ex}
}

// RowResult is the output of one fence row.
type RowResult struct {
	Row        int
	Offset     float64
	FencePaths int
	Candidates []Candidate
}

// Row extracts the fence paths at the row's offset and places vias on them.
func (d *Distributor) Row(paths []geometry.Path, row int) RowResult {
	offset := d.Params.RowOffset(row)
	shift := d.Params.RowShift(row)

	fences := d.Extractor.Extract(paths, offset)
	res := RowResult{Row: row, Offset: offset, FencePaths: len(fences)}
	for _, f := range fences {
		pts := PlaceAlong(f.Path, d.Params, shift)
		if f.Closed {
			pts = dropSeam(f.Path, pts)
		}
		for _, pt := range pts {
			res.Candidates = append(res.Candidates, Candidate{Point: pt, Row: row})
		}
	}

	logging.Logger().Debug("fence row placed",
		"row", row, "offset", offset, "shift", shift,
		"fence_paths", res.FencePaths, "candidates", len(res.Candidates))
	return res
}

// dropSeam removes the repeated via at the seam of a closed ring, where the
// first and last vertex are the same point.
func dropSeam(ring geometry.Path, pts []geometry.Point) []geometry.Point {
	if len(ring) == 0 {
		return pts
	}
	seam := ring[0]
	seen := false
	out := pts[:0]
	for _, p := range pts {
		if p == seam {
			if seen {
				continue
			}
			seen = true
		}
		out = append(out, p)
	}
	return out
}

// Generate runs every row concurrently and returns the rows in order. Rows
// not yet started when ctx is cancelled are skipped and ctx.Err() is
// returned.
func (d *Distributor) Generate(ctx context.Context, paths []geometry.Path) ([]RowResult, error) {
	rows := max(d.Params.Rows, 1)
	results := make([]RowResult, rows)

	var wg sync.WaitGroup
	for r := 0; r < rows; r++ {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		go func(r int) {
			defer wg.Done()
			if ctx.Err() != nil {
				return
			}
			results[r] = d.Row(paths, r)
		}(r)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// Flatten concatenates the candidates of all rows in row order.
func Flatten(rows []RowResult) []Candidate {
	var out []Candidate
	for _, r := range rows {
		out = append(out, r.Candidates...)
	}
	return out
}

// Dedupe removes candidates with identical coordinates. The first
// occurrence wins, so earlier rows take precedence.
func Dedupe(cands []Candidate) []Candidate {
	seen := make(map[geometry.Point]struct{}, len(cands))
	out := make([]Candidate, 0, len(cands))
	for _, c := range cands {
		if _, ok := seen[c.Point]; ok {
			continue
		}
		seen[c.Point] = struct{}{}
		out = append(out, c)
	}
	return out
}

// DedupeWithin drops candidates within tol of an already kept candidate.
// Kept candidates are bucketed into tol-sized cells so each check only
// looks at neighbouring cells.
func DedupeWithin(cands []Candidate, tol float64) []Candidate {
	if tol <= 0 {
		return Dedupe(cands)
	}
	buckets := make(map[cell][]geometry.Point)
	out := make([]Candidate, 0, len(cands))
	for _, c := range cands {
		home := cellOf(c.Point, tol)
		if tooClose(buckets, home, c.Point, tol) {
			continue
		}
		buckets[home] = append(buckets[home], c.Point)
		out = append(out, c)
	}
	return out
}

type cell struct{ x, y int64 }

func cellOf(p geometry.Point, size float64) cell {
	return cell{
		x: int64(math.Floor(float64(p.X) / size)),
		y: int64(math.Floor(float64(p.Y) / size)),
	}
}

func tooClose(buckets map[cell][]geometry.Point, home cell, p geometry.Point, tol float64) bool {
	for dx := int64(-1); dx <= 1; dx++ {
		for dy := int64(-1); dy <= 1; dy++ {
			for _, q := range buckets[cell{home.x + dx, home.y + dy}] {
				if p.Distance(q) <= tol {
					return true
				}
			}
		}
	}
	return false
}
