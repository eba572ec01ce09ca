package board

import (
	"fmt"
	"math"
	"sort"
)

// UnitProfile converts between millimetres and a host's internal units.
// One profile exists per host generation; it is picked once when a board is
// loaded.
type UnitProfile interface {
	Name() string
	UnitsPerMM() float64
	FromMM(mm float64) float64
	ToMM(units float64) float64
	Validate() error
}

// BaseProfile provides a common implementation of UnitProfile.
type BaseProfile struct {
	ProfileName string   `json:"name"`
	Scale       float64  `json:"units_per_mm"`
	Aliases     []string `json:"aliases,omitempty"`
}

func (p *BaseProfile) Name() string {
	return p.ProfileName
}

func (p *BaseProfile) UnitsPerMM() float64 {
	return p.Scale
}

// FromMM converts millimetres to internal units, rounded to whole units.
func (p *BaseProfile) FromMM(mm float64) float64 {
	return math.Round(mm * p.Scale)
}

func (p *BaseProfile) ToMM(units float64) float64 {
	return units / p.Scale
}

func (p *BaseProfile) Validate() error {
	if p.ProfileName == "" {
		return fmt.Errorf("unit profile name is required")
	}
	if !(p.Scale > 0) {
		return fmt.Errorf("unit profile %s: units per mm must be positive", p.ProfileName)
	}
	return nil
}

// Registry of known unit profiles, keyed by name and alias.
var registry = make(map[string]UnitProfile)

// Register adds a unit profile to the registry under its name and aliases.
// It panics if the profile is invalid.
func Register(p *BaseProfile) {
	if err := p.Validate(); err != nil {
		panic(err)
	}
	registry[p.Name()] = p
	for _, a := range p.Aliases {
		registry[a] = p
	}
}

// GetProfile returns a unit profile by name or alias.
func GetProfile(name string) (UnitProfile, error) {
	if p, ok := registry[name]; ok {
		return p, nil
	}
	return nil, fmt.Errorf("unknown unit profile %q (known: %v)", name, ListProfiles())
}

// ListProfiles returns all registered profile names and aliases, sorted.
func ListProfiles() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func init() {
	// Register built-in unit profiles
	Register(KiCad5Profile())
	Register(KiCad6Profile())
}
