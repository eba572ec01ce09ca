// Package geometry provides basic geometric types used throughout the application.
//
// Board coordinates are integers in the host's internal unit (nanometres for
// KiCad 6 and later). Interpolated positions are carried as Point2D until
// they are rounded back onto the integer grid.
package geometry

import (
	"fmt"
	"math"
)

// Point is a board coordinate in internal units.
type Point struct {
	X int64 `json:"x"`
	Y int64 `json:"y"`
}

// Pt creates a new Point.
func Pt(x, y int64) Point {
	return Point{X: x, Y: y}
}

// ToFloat converts to Point2D.
func (p Point) ToFloat() Point2D {
	return Point2D{X: float64(p.X), Y: float64(p.Y)}
}

// Distance returns the Euclidean distance to another point.
func (p Point) Distance(other Point) float64 {
	return math.Hypot(float64(p.X-other.X), float64(p.Y-other.Y))
}

func (p Point) String() string {
	return fmt.Sprintf("(%d, %d)", p.X, p.Y)
}

// Point2D represents a 2D point with floating-point coordinates.
type Point2D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Distance returns the Euclidean distance to another point.
func (p Point2D) Distance(other Point2D) float64 {
	dx := p.X - other.X
	dy := p.Y - other.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// Round snaps the point to the nearest integer board coordinate.
func (p Point2D) Round() Point {
	return Point{X: int64(math.Round(p.X)), Y: int64(math.Round(p.Y))}
}

// Rect is an axis-aligned rectangle in internal units. Max is inclusive.
type Rect struct {
	Min Point `json:"min"`
	Max Point `json:"max"`
}

// Width returns the horizontal extent.
func (r Rect) Width() int64 { return r.Max.X - r.Min.X }

// Height returns the vertical extent.
func (r Rect) Height() int64 { return r.Max.Y - r.Min.Y }

// Empty reports whether the rectangle has no extent in either direction.
func (r Rect) Empty() bool {
	return r.Max.X < r.Min.X || r.Max.Y < r.Min.Y
}

// Inset grows (negative d) or shrinks (positive d) the rectangle on all sides.
func (r Rect) Inset(d int64) Rect {
	return Rect{
		Min: Point{X: r.Min.X + d, Y: r.Min.Y + d},
		Max: Point{X: r.Max.X - d, Y: r.Max.Y - d},
	}
}

// Union returns the smallest rectangle containing both rectangles.
func (r Rect) Union(other Rect) Rect {
	if r.Empty() {
		return other
	}
	if other.Empty() {
		return r
	}
	return Rect{
		Min: Point{X: min(r.Min.X, other.Min.X), Y: min(r.Min.Y, other.Min.Y)},
		Max: Point{X: max(r.Max.X, other.Max.X), Y: max(r.Max.Y, other.Max.Y)},
	}
}

// AffineTransform represents a 2x3 affine transformation matrix.
// [a b tx]
// [c d ty]
type AffineTransform struct {
	A, B, TX float64
	C, D, TY float64
}

// Translation returns a translation transform.
func Translation(tx, ty float64) AffineTransform {
	return AffineTransform{A: 1, D: 1, TX: tx, TY: ty}
}

// Rotation returns a rotation transform around the origin.
func Rotation(radians float64) AffineTransform {
	sin, cos := math.Sincos(radians)
	return AffineTransform{A: cos, B: -sin, C: sin, D: cos}
}

// Apply applies the transform to a point.
func (t AffineTransform) Apply(p Point2D) Point2D {
	return Point2D{
		X: t.A*p.X + t.B*p.Y + t.TX,
		Y: t.C*p.X + t.D*p.Y + t.TY,
	}
}

// Compose returns this transform composed with another (this * other).
// The result applies other first.
func (t AffineTransform) Compose(other AffineTransform) AffineTransform {
	return AffineTransform{
		A:  t.A*other.A + t.B*other.C,
		B:  t.A*other.B + t.B*other.D,
		TX: t.A*other.TX + t.B*other.TY + t.TX,
		C:  t.C*other.A + t.D*other.C,
		D:  t.C*other.B + t.D*other.D,
		TY: t.C*other.TX + t.D*other.TY + t.TY,
	}
}

// BoundingBox computes the axis-aligned bounding box of a set of points.
// An empty input yields an empty Rect (Min > Max).
func BoundingBox(points []Point) Rect {
	if len(points) == 0 {
		return Rect{Min: Point{X: 1, Y: 1}}
	}
	r := Rect{Min: points[0], Max: points[0]}
	for _, p := range points[1:] {
		if p.X < r.Min.X {
			r.Min.X = p.X
		}
		if p.X > r.Max.X {
			r.Max.X = p.X
		}
		if p.Y < r.Min.Y {
			r.Min.Y = p.Y
		}
		if p.Y > r.Max.Y {
			r.Max.Y = p.Y
		}
	}
	return r
}
