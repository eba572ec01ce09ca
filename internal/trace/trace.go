// Package trace selects the board items a fence is built around and turns
// them into paths: straight tracks, discretized arcs and graphic lines.
package trace

import (
	"fmt"

	"pcb-viafence/internal/arc"
	"pcb-viafence/internal/board"
	"pcb-viafence/internal/logging"
	"pcb-viafence/pkg/geometry"
)

// Source indicates which board item a trace came from.
type Source int

const (
	// SourceTrack is a straight copper track.
	SourceTrack Source = iota
	// SourceArc is a copper arc, discretized into chords.
	SourceArc
	// SourceDrawing is a graphic line used as a fence guide.
	SourceDrawing
)

func (s Source) String() string {
	switch s {
	case SourceTrack:
		return "Track"
	case SourceArc:
		return "Arc"
	case SourceDrawing:
		return "Drawing"
	default:
		return "Unknown"
	}
}

// Trace is one selected board item as a path.
type Trace struct {
	Path   geometry.Path `json:"path"`
	Layer  string        `json:"layer"`
	Width  float64       `json:"width,omitempty"`
	Net    int           `json:"net,omitempty"`
	Source Source        `json:"source"`
}

// Bounds returns the bounding rectangle of the trace copper.
func (t Trace) Bounds() geometry.Rect {
	// Expand bounds by half trace width
	hw := int64(t.Width/2) + 1
	return geometry.BoundingBox(t.Path).Inset(-hw)
}

// Extent returns the rectangle covering the copper of all traces.
func Extent(traces []Trace) geometry.Rect {
	r := geometry.BoundingBox(nil)
	for _, t := range traces {
		r = r.Union(t.Bounds())
	}
	return r
}

// Options configures trace selection.
type Options struct {
	NetFilter       string // Net wildcard; empty selects no nets
	Layer           string // Only items on this layer; empty for all
	IncludeDrawings bool   // Add graphic lines
	IncludeSelected bool   // Add tracks and arcs marked selected

	ArcMaxDeviation float64 // Chord deviation in internal units; 0 uses DefaultArcDeviationMM
	ArcLimits       arc.Limits
}

// DefaultArcDeviationMM is the chord deviation used when none is set.
const DefaultArcDeviationMM = 0.1

// DefaultOptions returns default selection options.
func DefaultOptions() Options {
	return Options{
		IncludeSelected: true,
		ArcLimits:       arc.DefaultLimits(),
	}
}

// Select returns the traces of b chosen by opts: tracks and arcs on nets
// matching the net filter, selected tracks and arcs, and graphic lines,
// restricted to one layer if requested.
func Select(b *board.Board, opts Options) ([]Trace, error) {
	prof, err := b.Profile()
	if err != nil {
		return nil, err
	}
	dev := opts.ArcMaxDeviation
	if dev <= 0 {
		dev = prof.FromMM(DefaultArcDeviationMM)
	}
	lim := opts.ArcLimits
	if lim.Floor <= 0 {
		lim = arc.DefaultLimits()
	}

	nets := make(map[int]bool)
	if opts.NetFilter != "" {
		matched, err := MatchingNets(b, opts.NetFilter)
		if err != nil {
			return nil, err
		}
		for _, n := range matched {
			nets[n.Code] = true
		}
	}

	onLayer := func(layer string) bool {
		return opts.Layer == "" || layer == opts.Layer
	}

	var traces []Trace
	for _, t := range b.Tracks {
		if !(nets[t.Net] || (opts.IncludeSelected && t.Selected)) || !onLayer(t.Layer) {
			continue
		}
		traces = append(traces, Trace{
			Path:   geometry.Path{t.Start, t.End},
			Layer:  t.Layer,
			Width:  t.Width,
			Net:    t.Net,
			Source: SourceTrack,
		})
	}

	for i, a := range b.Arcs {
		if !(nets[a.Net] || (opts.IncludeSelected && a.Selected)) || !onLayer(a.Layer) {
			continue
		}
		path, err := arc.Discretize(a.Start, a.Mid, a.End, dev, lim)
		if err != nil {
			logging.Logger().Warn("skipping arc", "arc", i, "err", err)
			continue
		}
		traces = append(traces, Trace{
			Path:   path,
			Layer:  a.Layer,
			Width:  a.Width,
			Net:    a.Net,
			Source: SourceArc,
		})
	}

	if opts.IncludeDrawings {
		for _, d := range b.Drawings {
			if !onLayer(d.Layer) {
				continue
			}
			traces = append(traces, Trace{
				Path:   geometry.Path{d.Start, d.End},
				Layer:  d.Layer,
				Width:  d.Width,
				Source: SourceDrawing,
			})
		}
	}

	logging.Logger().Debug("traces selected",
		"filter", opts.NetFilter, "layer", opts.Layer, "nets", len(nets), "traces", len(traces))
	return traces, nil
}

// Paths returns the non-degenerate paths of traces.
func Paths(traces []Trace) []geometry.Path {
	paths := make([]geometry.Path, 0, len(traces))
	for _, t := range traces {
		if t.Path.IsZeroLength() {
			continue
		}
		paths = append(paths, t.Path)
	}
	return paths
}

// Summary describes a selection for log output.
func Summary(traces []Trace) string {
	var counts [3]int
	for _, t := range traces {
		if int(t.Source) < len(counts) {
			counts[t.Source]++
		}
	}
	return fmt.Sprintf("%d tracks, %d arcs, %d drawings",
		counts[SourceTrack], counts[SourceArc], counts[SourceDrawing])
}
