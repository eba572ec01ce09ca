// Package via places fence via candidates along fence paths: fixed vias at
// the path ends and bends, evenly spaced vias in between, repeated for every
// requested row.
package via

import (
	"errors"
	"fmt"

	"pcb-viafence/pkg/geometry"
)

// Candidate is a proposed via position. Row is the 0-based fence row it was
// generated for; odd rows are shifted by half the pitch.
type Candidate struct {
	Point geometry.Point `json:"point"`
	Row   int            `json:"row"`
}

// Points returns the candidate positions.
func Points(cands []Candidate) []geometry.Point {
	pts := make([]geometry.Point, len(cands))
	for i, c := range cands {
		pts[i] = c.Point
	}
	return pts
}

// ErrInvalidParams is wrapped by every ConfigError.
var ErrInvalidParams = errors.New("invalid fence parameters")

// ConfigError reports a parameter that makes fence generation impossible.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ConfigError) Unwrap() error { return ErrInvalidParams }

// Params holds parameters for fence via placement.
// See params.go for defaults and unit conversion.
type Params struct {
	// Physical sizes (millimetres)
	PitchMM      float64
	OffsetMM     float64
	RowSpacingMM float64 // 0 selects 1.5 × pitch

	// Sizes in board internal units, calculated by WithUnits
	Pitch      float64
	Offset     float64
	RowSpacing float64

	Rows int

	// Angles (degrees)
	AngleTolerance float64 // Minimum deviation from straight for a bend
	SharpJunction  float64 // Bends deviating this much or more are not anchors

	// Internal units per millimetre
	UnitsPerMM float64
}

// RowOffset returns the lateral offset of the given row.
func (p Params) RowOffset(row int) float64 {
	return p.Offset + float64(row)*p.RowSpacing
}

// RowShift returns the longitudinal shift applied to the given row.
func (p Params) RowShift(row int) float64 {
	if row%2 == 1 {
		return p.Pitch / 2
	}
	return 0
}
