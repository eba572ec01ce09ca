// Package config reads and writes the TOML fence configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"pcb-viafence/internal/arc"
	"pcb-viafence/internal/board"
	"pcb-viafence/internal/trace"
	"pcb-viafence/internal/via"
)

// Config holds all fence settings. Sizes are in millimetres, angles in
// degrees.
type Config struct {
	Fence     FenceConfig     `toml:"fence"`
	Via       ViaConfig       `toml:"via"`
	Selection SelectionConfig `toml:"selection"`
	Clearance ClearanceConfig `toml:"clearance"`
	Arc       ArcConfig       `toml:"arc"`
}

// FenceConfig sets the fence geometry.
type FenceConfig struct {
	OffsetMM          float64 `toml:"offset_mm"`
	PitchMM           float64 `toml:"pitch_mm"`
	Rows              int     `toml:"rows"`
	RowSpacingMM      float64 `toml:"row_spacing_mm"` // 0 = 1.5 × pitch
	AngleToleranceDeg float64 `toml:"angle_tolerance_deg"`
	SharpJunctionDeg  float64 `toml:"sharp_junction_deg"`
}

// ViaConfig describes the vias to place. Zero sizes use the board rules.
type ViaConfig struct {
	SizeMM  float64 `toml:"size_mm"`
	DrillMM float64 `toml:"drill_mm"`
	Net     string  `toml:"net"`
}

// SelectionConfig chooses the traces to fence.
type SelectionConfig struct {
	NetFilter       string `toml:"net_filter"`
	Layer           string `toml:"layer"`
	IncludeDrawings bool   `toml:"include_drawings"`
	IncludeSelected bool   `toml:"include_selected"`
}

// ClearanceConfig controls the clearance filter.
type ClearanceConfig struct {
	Enabled        bool    `toml:"enabled"`
	SameNetFloorMM float64 `toml:"same_net_floor_mm"`
}

// ArcConfig controls arc discretization.
type ArcConfig struct {
	MaxDeviationMM float64 `toml:"max_deviation_mm"`
	MinSegments    int     `toml:"min_segments"`
	MaxSegments    int     `toml:"max_segments"`
}

// Default returns the default configuration.
func Default() Config {
	p := via.DefaultParams()
	lim := arc.DefaultLimits()
	return Config{
		Fence: FenceConfig{
			OffsetMM:          p.OffsetMM,
			PitchMM:           p.PitchMM,
			Rows:              p.Rows,
			RowSpacingMM:      p.RowSpacingMM,
			AngleToleranceDeg: p.AngleTolerance,
			SharpJunctionDeg:  p.SharpJunction,
		},
		Via: ViaConfig{Net: "GND"},
		Selection: SelectionConfig{
			IncludeSelected: true,
		},
		Clearance: ClearanceConfig{
			Enabled:        true,
			SameNetFloorMM: 0.5,
		},
		Arc: ArcConfig{
			MaxDeviationMM: trace.DefaultArcDeviationMM,
			MinSegments:    lim.Floor,
			MaxSegments:    lim.Ceiling,
		},
	}
}

// Load reads a configuration file. Keys missing from the file keep their
// default values; unknown keys are an error.
func Load(path string) (Config, error) {
	c := Default()
	md, err := toml.DecodeFile(path, &c)
	if err != nil {
		return Config{}, fmt.Errorf("load config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		sort.Strings(keys)
		return Config{}, fmt.Errorf("load config %s: unknown keys %s", path, strings.Join(keys, ", "))
	}
	if err := c.Validate(); err != nil {
		return Config{}, fmt.Errorf("load config %s: %w", path, err)
	}
	return c, nil
}

// Save writes the configuration to path.
func (c Config) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := toml.NewEncoder(f).Encode(c); err != nil {
		f.Close()
		return fmt.Errorf("save config %s: %w", path, err)
	}
	return f.Close()
}

// Validate checks the settings that Params does not cover.
func (c Config) Validate() error {
	var errs []error
	if c.Via.SizeMM < 0 || c.Via.DrillMM < 0 {
		errs = append(errs, &via.ConfigError{Field: "via", Reason: "sizes must not be negative"})
	}
	if c.Via.SizeMM > 0 && c.Via.DrillMM >= c.Via.SizeMM {
		errs = append(errs, &via.ConfigError{Field: "via.drill_mm", Reason: "must be smaller than size_mm"})
	}
	if c.Clearance.SameNetFloorMM < 0 {
		errs = append(errs, &via.ConfigError{Field: "clearance.same_net_floor_mm", Reason: "must not be negative"})
	}
	if c.Arc.MaxDeviationMM <= 0 {
		errs = append(errs, &via.ConfigError{Field: "arc.max_deviation_mm", Reason: "must be positive"})
	}
	if c.Arc.MinSegments < 1 || c.Arc.MaxSegments < c.Arc.MinSegments {
		errs = append(errs, &via.ConfigError{Field: "arc", Reason: "need 1 <= min_segments <= max_segments"})
	}
	if err := c.Params(board.KiCad6UnitsPerMM).Validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Params returns the fence parameters in the given board units.
func (c Config) Params(unitsPerMM float64) via.Params {
	p := via.DefaultParams()
	p.PitchMM = c.Fence.PitchMM
	p.OffsetMM = c.Fence.OffsetMM
	p.Rows = c.Fence.Rows
	p.RowSpacingMM = c.Fence.RowSpacingMM
	p = p.WithAngles(c.Fence.AngleToleranceDeg, c.Fence.SharpJunctionDeg)
	return p.WithUnits(unitsPerMM)
}

// ArcLimits returns the arc segment limits.
func (c Config) ArcLimits() arc.Limits {
	return arc.Limits{Floor: c.Arc.MinSegments, Ceiling: c.Arc.MaxSegments}
}

// TraceOptions returns the trace selection options for a board using prof.
func (c Config) TraceOptions(prof board.UnitProfile) trace.Options {
	opts := trace.DefaultOptions()
	opts.NetFilter = c.Selection.NetFilter
	opts.Layer = c.Selection.Layer
	opts.IncludeDrawings = c.Selection.IncludeDrawings
	opts.IncludeSelected = c.Selection.IncludeSelected
	opts.ArcMaxDeviation = prof.FromMM(c.Arc.MaxDeviationMM)
	if lim := c.ArcLimits(); lim.Floor > 0 {
		opts.ArcLimits = lim
	}
	return opts
}

// ApplyVia overrides the via size and drill rules with configured values.
func (c Config) ApplyVia(rules *board.Rules, prof board.UnitProfile) {
	if c.Via.SizeMM > 0 {
		rules.ViaDiameter = prof.FromMM(c.Via.SizeMM)
	}
	if c.Via.DrillMM > 0 {
		rules.ViaDrill = prof.FromMM(c.Via.DrillMM)
	}
}
