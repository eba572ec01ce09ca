// Package board provides the board snapshot the fence generator works on:
// nets, copper, graphic lines and design rules, plus the unit profile of the
// host the snapshot came from.
package board

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"pcb-viafence/internal/arc"
	"pcb-viafence/internal/clearance"
	"pcb-viafence/internal/via"
	"pcb-viafence/pkg/geometry"
)

// FormatVersion is the snapshot format written by Save.
const FormatVersion = 1

// Net is a named electrical net. Code 0 is the unconnected net.
type Net struct {
	Code int    `json:"code"`
	Name string `json:"name"`
}

// Track is a straight copper segment.
type Track struct {
	Start geometry.Point `json:"start"`
	End   geometry.Point `json:"end"`
	Width float64        `json:"width"`
	Layer string         `json:"layer"`
	Net   int            `json:"net"`

	// Selected marks items picked by hand in the editor.
	Selected bool `json:"selected,omitempty"`
}

// Arc is a circular copper track through Start, Mid and End.
type Arc struct {
	Start geometry.Point `json:"start"`
	Mid   geometry.Point `json:"mid"`
	End   geometry.Point `json:"end"`
	Width float64        `json:"width"`
	Layer string         `json:"layer"`
	Net   int            `json:"net"`

	Selected bool `json:"selected,omitempty"`
}

// Drawing is a graphic line, usable as a fence guide.
type Drawing struct {
	Start geometry.Point `json:"start"`
	End   geometry.Point `json:"end"`
	Width float64        `json:"width"`
	Layer string         `json:"layer"`
}

// Pad is a component pad.
type Pad struct {
	Position geometry.Point `json:"position"`
	Width    float64        `json:"width"`
	Height   float64        `json:"height"`
	Net      int            `json:"net"`
	Ref      string         `json:"ref,omitempty"`
}

// Via is a through via. Generated marks vias placed by the fence generator
// so a later run can remove them again.
type Via struct {
	Position  geometry.Point `json:"position"`
	Diameter  float64        `json:"diameter"`
	Drill     float64        `json:"drill"`
	Net       int            `json:"net"`
	Generated bool           `json:"generated,omitempty"`
}

// Rules holds the board design rules in internal units.
type Rules struct {
	Clearance   float64 `json:"clearance"`
	ViaDiameter float64 `json:"via_diameter"`
	ViaDrill    float64 `json:"via_drill"`
}

// Board is a snapshot of a PCB.
type Board struct {
	Version  int       `json:"version"`
	Name     string    `json:"name"`
	Units    string    `json:"units"`
	Layers   []string  `json:"layers,omitempty"`
	Nets     []Net     `json:"nets"`
	Tracks   []Track   `json:"tracks,omitempty"`
	Arcs     []Arc     `json:"arcs,omitempty"`
	Drawings []Drawing `json:"drawings,omitempty"`
	Pads     []Pad     `json:"pads,omitempty"`
	Vias     []Via     `json:"vias,omitempty"`
	Rules    Rules     `json:"rules"`
}

// Profile returns the unit profile named by the board.
func (b *Board) Profile() (UnitProfile, error) {
	name := b.Units
	if name == "" {
		name = DefaultProfile
	}
	return GetProfile(name)
}

// Validate checks the snapshot for references and values no run can use.
func (b *Board) Validate() error {
	if _, err := b.Profile(); err != nil {
		return err
	}
	codes := make(map[int]bool, len(b.Nets))
	for _, n := range b.Nets {
		if codes[n.Code] {
			return fmt.Errorf("duplicate net code %d", n.Code)
		}
		codes[n.Code] = true
	}
	known := func(code int) bool { return code == 0 || codes[code] }
	for i, t := range b.Tracks {
		if t.Width < 0 {
			return fmt.Errorf("track %d: negative width", i)
		}
		if !known(t.Net) {
			return fmt.Errorf("track %d: unknown net %d", i, t.Net)
		}
	}
	for i, a := range b.Arcs {
		if !known(a.Net) {
			return fmt.Errorf("arc %d: unknown net %d", i, a.Net)
		}
	}
	for i, p := range b.Pads {
		if p.Width < 0 || p.Height < 0 {
			return fmt.Errorf("pad %d: negative size", i)
		}
	}
	for i, v := range b.Vias {
		if v.Diameter <= 0 {
			return fmt.Errorf("via %d: diameter must be positive", i)
		}
	}
	if b.Rules.Clearance < 0 {
		return fmt.Errorf("clearance must not be negative")
	}
	return nil
}

// Save saves the board to a JSON file.
func (b *Board) Save(path string) error {
	if b.Version == 0 {
		b.Version = FormatVersion
	}
	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Load loads a board from a JSON file.
func Load(path string) (*Board, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var b Board
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("parse board %s: %w", path, err)
	}

	if err := b.Validate(); err != nil {
		return nil, fmt.Errorf("invalid board %s: %w", path, err)
	}

	return &b, nil
}

// NetNames returns the names of all connected nets in net code order.
func (b *Board) NetNames() []string {
	nets := make([]Net, 0, len(b.Nets))
	for _, n := range b.Nets {
		if n.Code != 0 {
			nets = append(nets, n)
		}
	}
	sort.Slice(nets, func(i, j int) bool { return nets[i].Code < nets[j].Code })
	names := make([]string, len(nets))
	for i, n := range nets {
		names[i] = n.Name
	}
	return names
}

// NetByName looks up a net by its exact name.
func (b *Board) NetByName(name string) (Net, bool) {
	for _, n := range b.Nets {
		if n.Name == name {
			return n, true
		}
	}
	return Net{}, false
}

// ClearanceContext builds the filter context for vias on netCode, using the
// board rules. sameNetFloorMM is the minimum clearance to tracks of the
// same net.
func (b *Board) ClearanceContext(netCode int, sameNetFloorMM float64) (clearance.Context, error) {
	prof, err := b.Profile()
	if err != nil {
		return clearance.Context{}, err
	}
	if b.Rules.ViaDiameter <= 0 {
		return clearance.Context{}, fmt.Errorf("board %s: via diameter rule is not set", b.Name)
	}
	return clearance.Context{
		ViaDiameter:  b.Rules.ViaDiameter,
		ViaDrill:     b.Rules.ViaDrill,
		Clearance:    b.Rules.Clearance,
		SameNetFloor: prof.FromMM(sameNetFloorMM),
		NetCode:      netCode,
	}, nil
}

// Copper converts the board's pads, tracks and vias for the clearance
// filter. Arcs are included as chords within maxDeviation of the true arc.
func (b *Board) Copper(maxDeviation float64, lim arc.Limits) ([]clearance.Pad, []clearance.Track, []clearance.Via) {
	pads := make([]clearance.Pad, len(b.Pads))
	for i, p := range b.Pads {
		pads[i] = clearance.Pad{Center: p.Position, Width: p.Width, Height: p.Height, NetCode: p.Net}
	}

	tracks := make([]clearance.Track, 0, len(b.Tracks))
	for _, t := range b.Tracks {
		tracks = append(tracks, clearance.Track{Start: t.Start, End: t.End, Width: t.Width, NetCode: t.Net})
	}
	for _, a := range b.Arcs {
		path, err := arc.Discretize(a.Start, a.Mid, a.End, maxDeviation, lim)
		if err != nil {
			continue
		}
		for i := 1; i < len(path); i++ {
			tracks = append(tracks, clearance.Track{Start: path[i-1], End: path[i], Width: a.Width, NetCode: a.Net})
		}
	}

	vias := make([]clearance.Via, len(b.Vias))
	for i, v := range b.Vias {
		vias[i] = clearance.Via{Center: v.Position, Diameter: v.Diameter, NetCode: v.Net}
	}
	return pads, tracks, vias
}

// AddVias places a generated through via at every candidate, sized by ctx.
func (b *Board) AddVias(cands []via.Candidate, ctx clearance.Context) {
	for _, c := range cands {
		b.Vias = append(b.Vias, Via{
			Position:  c.Point,
			Diameter:  ctx.ViaDiameter,
			Drill:     ctx.ViaDrill,
			Net:       ctx.NetCode,
			Generated: true,
		})
	}
}

// RemoveGeneratedVias deletes vias placed by an earlier run and returns how
// many were removed.
func (b *Board) RemoveGeneratedVias() int {
	kept := b.Vias[:0]
	for _, v := range b.Vias {
		if !v.Generated {
			kept = append(kept, v)
		}
	}
	removed := len(b.Vias) - len(kept)
	b.Vias = kept
	return removed
}
