package clearance

import (
	"runtime"
	"sync"

	"pcb-viafence/internal/logging"
	"pcb-viafence/internal/via"
	"pcb-viafence/pkg/geometry"
)

// chunkSize is the number of candidates one worker checks at a time.
const chunkSize = 256

// Reason explains why a candidate was rejected.
type Reason int

const (
	Accepted Reason = iota
	RejectPad
	RejectSameNetTrack
	RejectDiffNetTrack
	RejectExistingVia
)

func (r Reason) String() string {
	switch r {
	case Accepted:
		return "accepted"
	case RejectPad:
		return "pad"
	case RejectSameNetTrack:
		return "same_net_track"
	case RejectDiffNetTrack:
		return "diff_net_track"
	case RejectExistingVia:
		return "existing_via"
	default:
		return "unknown"
	}
}

// Stats counts filter outcomes.
type Stats struct {
	Tested       int `json:"tested"`
	Accepted     int `json:"accepted"`
	Pad          int `json:"pad"`
	SameNetTrack int `json:"same_net_track"`
	DiffNetTrack int `json:"diff_net_track"`
	ExistingVia  int `json:"existing_via"`
}

// Rejected returns the number of rejected candidates.
func (s Stats) Rejected() int {
	return s.Pad + s.SameNetTrack + s.DiffNetTrack + s.ExistingVia
}

func (s *Stats) add(r Reason) {
	s.Tested++
	switch r {
	case Accepted:
		s.Accepted++
	case RejectPad:
		s.Pad++
	case RejectSameNetTrack:
		s.SameNetTrack++
	case RejectDiffNetTrack:
		s.DiffNetTrack++
	case RejectExistingVia:
		s.ExistingVia++
	}
}

// Filter checks candidates against a read-only snapshot of board copper.
// It is safe for concurrent use once built.
type Filter struct {
	Ctx Context

	pads   []Pad
	tracks []Track
	vias   []Via

	padGrid   *Grid
	trackGrid *Grid
	viaGrid   *Grid
}

// NewFilter indexes pads, tracks and existing vias for ctx.
func NewFilter(ctx Context, pads []Pad, tracks []Track, vias []Via) *Filter {
	f := &Filter{Ctx: ctx, pads: pads, tracks: tracks, vias: vias}
	d := ctx.ViaDiameter

	// Cell size follows the largest point-like reach so pads and vias
	// usually land in a handful of cells.
	size := 2 * (d + ctx.Clearance)
	for _, p := range pads {
		size = max(size, 2*padReach(d, p, ctx.Clearance))
	}
	for _, v := range vias {
		size = max(size, 2*viaReach(d, v, ctx.Clearance))
	}

	f.padGrid = NewGrid(size)
	for i, p := range pads {
		f.padGrid.Insert(i, expand(padReach(d, p, ctx.Clearance), p.Center))
	}
	f.trackGrid = NewGrid(size)
	for i, t := range tracks {
		reach := trackReach(d, t, ctx.TrackClearance(t))
		f.trackGrid.Insert(i, expand(reach, t.Start, t.End))
	}
	f.viaGrid = NewGrid(size)
	for i, v := range vias {
		f.viaGrid.Insert(i, expand(viaReach(d, v, ctx.Clearance), v.Center))
	}
	return f
}

// Check tests one position. Pads are checked first, then tracks in board
// order (the first overlapping track decides between same-net and
// different-net), then existing vias.
func (f *Filter) Check(c geometry.Point) Reason {
	d := f.Ctx.ViaDiameter
	for _, i := range f.padGrid.Query(c) {
		if PadOverlaps(c, d, f.pads[i], f.Ctx.Clearance) {
			return RejectPad
		}
	}
	for _, i := range f.trackGrid.Query(c) {
		t := f.tracks[i]
		if !TrackOverlaps(c, d, t, f.Ctx.TrackClearance(t)) {
			continue
		}
		if t.NetCode == f.Ctx.NetCode {
			return RejectSameNetTrack
		}
		return RejectDiffNetTrack
	}
	for _, i := range f.viaGrid.Query(c) {
		if ViaOverlaps(c, d, f.vias[i], f.Ctx.Clearance) {
			return RejectExistingVia
		}
	}
	return Accepted
}

// Apply returns the candidates that collide with nothing, in input order,
// and the rejection counts. Large inputs are checked in parallel.
// Candidates are only checked against the board snapshot, never against
// each other; spacing between new vias is left to via.DedupeWithin.
func (f *Filter) Apply(cands []via.Candidate) ([]via.Candidate, Stats) {
	reasons := make([]Reason, len(cands))

	workers := runtime.GOMAXPROCS(0)
	if len(cands) <= chunkSize || workers < 2 {
		for i, c := range cands {
			reasons[i] = f.Check(c.Point)
		}
	} else {
		chunks := make(chan int)
		var wg sync.WaitGroup
		for w := 0; w < workers; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for start := range chunks {
					end := min(start+chunkSize, len(cands))
					for i := start; i < end; i++ {
						reasons[i] = f.Check(cands[i].Point)
					}
				}
			}()
		}
		for start := 0; start < len(cands); start += chunkSize {
			chunks <- start
		}
		close(chunks)
		wg.Wait()
	}

	log := logging.Logger()
	var stats Stats
	accepted := make([]via.Candidate, 0, len(cands))
	for i, c := range cands {
		r := reasons[i]
		stats.add(r)
		if r == Accepted {
			accepted = append(accepted, c)
			continue
		}
		log.Debug("via rejected", "x", c.Point.X, "y", c.Point.Y, "row", c.Row, "reason", r.String())
	}

	log.Info("clearance filter",
		"tested", stats.Tested, "accepted", stats.Accepted,
		"pad", stats.Pad, "same_net_track", stats.SameNetTrack,
		"diff_net_track", stats.DiffNetTrack, "existing_via", stats.ExistingVia,
		"pads", len(f.pads), "tracks", len(f.tracks), "vias", len(f.vias))
	return accepted, stats
}
