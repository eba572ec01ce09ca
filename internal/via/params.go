package via

import "math"

// DefaultParams returns default fence parameters.
// Sizes are physical; call WithUnits before generating.
func DefaultParams() Params {
	return Params{
		PitchMM:      1.3,
		OffsetMM:     1.3,
		RowSpacingMM: 0, // 1.5 × pitch
		Rows:         1,

		// Shallow corners come from arc discretization, not from real bends.
		AngleTolerance: 20,
		// Beyond this the fence kinks inward towards the trace.
		SharpJunction: 85,
	}
}

// WithUnits returns a copy of params with internal-unit sizes calculated
// from the board's units per millimetre.
func (p Params) WithUnits(unitsPerMM float64) Params {
	p.UnitsPerMM = unitsPerMM
	if unitsPerMM > 0 {
		p.Pitch = math.Round(p.PitchMM * unitsPerMM)
		p.Offset = math.Round(p.OffsetMM * unitsPerMM)
		if p.RowSpacingMM > 0 {
			p.RowSpacing = math.Round(p.RowSpacingMM * unitsPerMM)
		} else {
			p.RowSpacing = math.Round(1.5 * p.Pitch)
		}
	}
	return p
}

// WithPitch returns a copy of params with a custom pitch in millimetres.
func (p Params) WithPitch(mm float64) Params {
	p.PitchMM = mm
	return p.recalc()
}

// WithOffset returns a copy of params with a custom offset in millimetres.
func (p Params) WithOffset(mm float64) Params {
	p.OffsetMM = mm
	return p.recalc()
}

// WithRows returns a copy of params with a custom row count and row spacing
// in millimetres. A spacing of 0 selects 1.5 × pitch.
func (p Params) WithRows(rows int, spacingMM float64) Params {
	p.Rows = rows
	p.RowSpacingMM = spacingMM
	return p.recalc()
}

// WithAngles returns a copy of params with custom bend tolerance and sharp
// junction threshold in degrees.
func (p Params) WithAngles(toleranceDeg, sharpDeg float64) Params {
	p.AngleTolerance = toleranceDeg
	p.SharpJunction = sharpDeg
	return p
}

// recalc refreshes internal-unit sizes if units are set.
func (p Params) recalc() Params {
	if p.UnitsPerMM > 0 {
		return p.WithUnits(p.UnitsPerMM)
	}
	return p
}

// Validate rejects parameters for which no sane fence geometry exists.
func (p Params) Validate() error {
	switch {
	case !(p.Pitch > 0):
		return &ConfigError{Field: "pitch", Reason: "must be positive (set units first)"}
	case !(p.Offset > 0):
		return &ConfigError{Field: "offset", Reason: "must be positive (set units first)"}
	case p.Rows < 1:
		return &ConfigError{Field: "rows", Reason: "at least one row is required"}
	case p.Rows > 1 && !(p.RowSpacing > 0):
		return &ConfigError{Field: "row_spacing", Reason: "must be positive for multiple rows"}
	case !(p.AngleTolerance > 0 && p.AngleTolerance < 180):
		return &ConfigError{Field: "angle_tolerance", Reason: "must be within (0, 180) degrees"}
	case !(p.SharpJunction > 0 && p.SharpJunction <= 180):
		return &ConfigError{Field: "sharp_junction", Reason: "must be within (0, 180] degrees"}
	}
	return nil
}
