// Package clearance rejects via candidates that would collide with existing
// board copper: pads, tracks and vias.
package clearance

import (
	"math"

	"pcb-viafence/pkg/geometry"
)

// Extra margins, as a fraction of the new via's diameter. Tracks get more
// because arc-derived tracks are chords of the true copper.
const (
	trackTolerance = 0.10
	padTolerance   = 0.05
	viaTolerance   = 0.05
)

// Context carries the board-wide numbers the filter works with. All lengths
// are in board internal units.
type Context struct {
	ViaDiameter  float64
	ViaDrill     float64
	Clearance    float64 // DRC clearance between different nets
	SameNetFloor float64 // Minimum clearance to tracks of the fence net
	NetCode      int     // Net the new vias belong to
}

// SameNetClearance is the clearance kept from tracks on the fence's own net:
// half the DRC clearance, but never below the floor.
func (c Context) SameNetClearance() float64 {
	return math.Max(c.SameNetFloor, math.Floor(c.Clearance/2))
}

// TrackClearance returns the clearance that applies to t.
func (c Context) TrackClearance(t Track) float64 {
	if t.NetCode == c.NetCode {
		return c.SameNetClearance()
	}
	return c.Clearance
}

// Pad is a component pad, approximated by the circle around its bounding box.
type Pad struct {
	Center  geometry.Point `json:"center"`
	Width   float64        `json:"width"`
	Height  float64        `json:"height"`
	NetCode int            `json:"net"`
}

// Radius returns the half-diagonal of the pad's bounding box.
func (p Pad) Radius() float64 {
	return math.Hypot(p.Width/2, p.Height/2)
}

// Track is a straight copper segment.
type Track struct {
	Start   geometry.Point `json:"start"`
	End     geometry.Point `json:"end"`
	Width   float64        `json:"width"`
	NetCode int            `json:"net"`
}

// Via is an existing via on the board.
type Via struct {
	Center   geometry.Point `json:"center"`
	Diameter float64        `json:"diameter"`
	NetCode  int            `json:"net"`
}

// TrackOverlaps reports whether a via of diameter d at c comes closer to t
// than clearance.
func TrackOverlaps(c geometry.Point, d float64, t Track, clearance float64) bool {
	dist := geometry.SegmentDistance(c.ToFloat(), t.Start.ToFloat(), t.End.ToFloat())
	return dist < trackReach(d, t, clearance)
}

// PadOverlaps reports whether a via of diameter d at c comes closer to p
// than clearance.
func PadOverlaps(c geometry.Point, d float64, p Pad, clearance float64) bool {
	return c.Distance(p.Center) < padReach(d, p, clearance)
}

// ViaOverlaps reports whether a via of diameter d at c comes closer to the
// existing via v than clearance.
func ViaOverlaps(c geometry.Point, d float64, v Via, clearance float64) bool {
	return c.Distance(v.Center) < viaReach(d, v, clearance)
}

func trackReach(d float64, t Track, clearance float64) float64 {
	return t.Width/2 + d/2 + clearance + trackTolerance*d
}

func padReach(d float64, p Pad, clearance float64) float64 {
	return p.Radius() + d/2 + clearance + padTolerance*d
}

func viaReach(d float64, v Via, clearance float64) float64 {
	return d/2 + v.Diameter/2 + clearance + viaTolerance*d
}

// expand returns the bounding box of pts grown by reach on every side.
func expand(reach float64, pts ...geometry.Point) geometry.Rect {
	r := int64(math.Ceil(reach))
	return geometry.BoundingBox(pts).Inset(-r)
}
