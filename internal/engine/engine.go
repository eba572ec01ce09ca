// Package engine runs the whole fence pipeline: fence extraction per row,
// via placement, deduplication and the clearance filter. It is a pure
// function of its input; placing the resulting vias on a board is left to
// the caller.
package engine

import (
	"context"
	"fmt"
	"log/slog"

	"pcb-viafence/internal/clearance"
	"pcb-viafence/internal/diag"
	"pcb-viafence/internal/fence"
	"pcb-viafence/internal/logging"
	"pcb-viafence/internal/via"
	"pcb-viafence/pkg/geometry"
)

// Diagnostic layer labels written by Generate, in addition to the fence
// extractor's layers.
const (
	LabelCandidates = "candidates"
	LabelVias       = "vias"
)

// nearDuplicate is the fraction of the via diameter below which two
// candidates from different rows or fence sides count as the same via.
const nearDuplicate = 1.05

// Input is everything one fence run needs. Sizes are in board internal
// units.
type Input struct {
	Paths  []geometry.Path
	Params via.Params

	// Context describes the vias being placed and the design rules.
	Context clearance.Context
	Pads    []clearance.Pad
	Tracks  []clearance.Track
	Vias    []clearance.Via

	// SkipClearance returns the deduplicated candidates without checking
	// them against existing copper.
	SkipClearance bool

	Sink diag.Sink
}

// Result is the outcome of a fence run.
type Result struct {
	// Vias are the accepted positions in row order.
	Vias []via.Candidate `json:"vias"`
	// Candidates is the number of positions tested after deduplication.
	Candidates int `json:"candidates"`
	// Generated is the number of raw positions over all rows.
	Generated int `json:"generated"`
	// Raw holds every position of every row before deduplication and the
	// clearance filter.
	Raw        []via.Candidate `json:"raw,omitempty"`
	Stats      clearance.Stats `json:"stats"`
	FencePaths int             `json:"fence_paths"`
	Rows       []RowSummary    `json:"rows"`
}

// RowSummary describes one fence row of a run.
type RowSummary struct {
	Row        int     `json:"row"`
	Offset     float64 `json:"offset"`
	FencePaths int     `json:"fence_paths"`
	Candidates int     `json:"candidates"`
}

// SetLogger installs the logger used by all fence packages. nil restores
// the silent default.
func SetLogger(l *slog.Logger) { logging.SetLogger(l) }

// Logger returns the logger used by all fence packages.
func Logger() *slog.Logger { return logging.Logger() }

// Validate checks in for parameters no run can work with. The returned
// error wraps a *via.ConfigError.
func Validate(in Input) error {
	if err := in.Params.Validate(); err != nil {
		return fmt.Errorf("fence parameters: %w", err)
	}
	if in.SkipClearance {
		return nil
	}
	switch {
	case !(in.Context.ViaDiameter > 0):
		return fmt.Errorf("clearance context: %w",
			&via.ConfigError{Field: "via_diameter", Reason: "must be positive"})
	case in.Context.Clearance < 0:
		return fmt.Errorf("clearance context: %w",
			&via.ConfigError{Field: "clearance", Reason: "must not be negative"})
	case in.Context.ViaDrill < 0 || in.Context.ViaDrill > in.Context.ViaDiameter:
		return fmt.Errorf("clearance context: %w",
			&via.ConfigError{Field: "via_drill", Reason: "must be between 0 and the via diameter"})
	}
	return nil
}

// Generate validates in and runs the fence pipeline. Invalid parameters
// and cancellation are the only errors; degenerate geometry just yields
// fewer vias.
func Generate(ctx context.Context, in Input) (*Result, error) {
	if err := Validate(in); err != nil {
		return nil, err
	}
	log := logging.Logger()
	sink := diag.OrNop(in.Sink)

	dist := via.NewDistributor(in.Params, fence.NewExtractor(sink))
	rows, err := dist.Generate(ctx, in.Paths)
	if err != nil {
		return nil, err
	}

	res := &Result{Rows: make([]RowSummary, len(rows))}
	for i, r := range rows {
		res.FencePaths += r.FencePaths
		res.Generated += len(r.Candidates)
		res.Rows[i] = RowSummary{Row: r.Row, Offset: r.Offset, FencePaths: r.FencePaths, Candidates: len(r.Candidates)}
	}

	res.Raw = via.Flatten(rows)
	cands := via.Dedupe(res.Raw)
	if in.Context.ViaDiameter > 0 {
		cands = via.DedupeWithin(cands, nearDuplicate*in.Context.ViaDiameter)
	}
	res.Candidates = len(cands)
	sink.Points(LabelCandidates, via.Points(cands))

	if in.SkipClearance {
		res.Vias = cands
		res.Stats = clearance.Stats{Tested: len(cands), Accepted: len(cands)}
	} else {
		f := clearance.NewFilter(in.Context, in.Pads, in.Tracks, in.Vias)
		res.Vias, res.Stats = f.Apply(cands)
	}
	sink.Points(LabelVias, via.Points(res.Vias))

	log.Info("fence generated",
		"paths", len(in.Paths), "rows", len(rows), "fence_paths", res.FencePaths,
		"generated", res.Generated, "candidates", res.Candidates, "vias", len(res.Vias))
	return res, nil
}
