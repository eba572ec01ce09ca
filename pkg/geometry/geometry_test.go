package geometry

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPathLength(t *testing.T) {
	p := Path{Pt(0, 0), Pt(3, 4), Pt(3, 10)}
	assert.InDelta(t, 11, p.Length(), 1e-9)
	assert.False(t, p.IsZeroLength())
	assert.True(t, Path{Pt(1, 1), Pt(1, 1)}.IsZeroLength())
}

func TestSubPathWraps(t *testing.T) {
	p := Path{Pt(0, 0), Pt(1, 0), Pt(2, 0), Pt(3, 0)}
	assert.Equal(t, Path{Pt(1, 0), Pt(2, 0)}, p.SubPath(1, 2))
	assert.Equal(t, Path{Pt(3, 0), Pt(0, 0), Pt(1, 0)}, p.SubPath(3, 1))
}

func TestInterpolate(t *testing.T) {
	p := Path{Pt(0, 0), Pt(100, 0), Pt(100, 100)}
	cum, err := CumulativeDistance(p)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 100, 200}, cum)

	tests := []struct {
		d    float64
		want Point2D
	}{
		{-5, Point2D{0, 0}},
		{0, Point2D{0, 0}},
		{50, Point2D{50, 0}},
		{100, Point2D{100, 0}},
		{150, Point2D{100, 50}},
		{250, Point2D{100, 100}},
	}
	for _, tt := range tests {
		got := Interpolate(cum, p, tt.d)
		assert.InDelta(t, tt.want.X, got.X, 1e-9, "d=%v", tt.d)
		assert.InDelta(t, tt.want.Y, got.Y, 1e-9, "d=%v", tt.d)
	}
}

func TestInterpolate_ZeroLengthSegment(t *testing.T) {
	p := Path{Pt(0, 0), Pt(0, 0), Pt(10, 0)}
	cum, err := CumulativeDistance(p)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0, 10}, cum)

	assert.Equal(t, Point2D{0, 0}, Interpolate(cum, p, 0))
	got := Interpolate(cum, p, 4)
	assert.InDelta(t, 4, got.X, 1e-9)
	assert.InDelta(t, 0, got.Y, 1e-9)
	assert.Equal(t, Point2D{10, 0}, Interpolate(cum, p, 10))
}

func TestInterpolate_NaN(t *testing.T) {
	p := Path{Pt(0, 0), Pt(100, 0), Pt(100, 100)}
	cum, err := CumulativeDistance(p)
	require.NoError(t, err)
	assert.Equal(t, Point2D{100, 100}, Interpolate(cum, p, math.NaN()))
}

func TestCumulativeDistance_Short(t *testing.T) {
	_, err := CumulativeDistance(Path{Pt(1, 1)})
	assert.ErrorIs(t, err, ErrShortPath)
}

func TestSlope(t *testing.T) {
	assert.InDelta(t, math.Pi/2, Slope(Point2D{0, 0}, Point2D{0, 10}), 1e-12)
	assert.InDelta(t, math.Pi, Slope(Point2D{0, 0}, Point2D{-10, 0}), 1e-12)
}

func TestPointOnSegment(t *testing.T) {
	a, b := Pt(0, -10), Pt(0, 10)
	assert.True(t, PointOnSegment(Pt(0, 0), a, b))
	assert.True(t, PointOnSegment(Pt(0, 10), a, b))
	assert.False(t, PointOnSegment(Pt(1, 0), a, b))
	assert.False(t, PointOnSegment(Pt(0, 11), a, b))
}

func TestSegmentDistance(t *testing.T) {
	a, b := Point2D{0, 0}, Point2D{10, 0}
	assert.InDelta(t, 5, SegmentDistance(Point2D{5, 5}, a, b), 1e-12)
	assert.InDelta(t, 5, SegmentDistance(Point2D{-3, 4}, a, b), 1e-12)
	assert.InDelta(t, 5, SegmentDistance(Point2D{3, 4}, a, a), 1e-12)
}

func TestPolygonAreaAndRing(t *testing.T) {
	sq := Polygon{Pt(0, 0), Pt(10, 0), Pt(10, 10), Pt(0, 10)}
	assert.InDelta(t, 100, sq.SignedArea(), 1e-12)
	assert.Len(t, sq.Edges(), 4)
	ring := sq.Ring()
	assert.Len(t, ring, 5)
	assert.Equal(t, ring[0], ring[4])
}

func TestAffineCompose(t *testing.T) {
	tf := Translation(10, 0).Compose(Rotation(math.Pi / 2))
	got := tf.Apply(Point2D{1, 0})
	assert.InDelta(t, 10, got.X, 1e-12)
	assert.InDelta(t, 1, got.Y, 1e-12)
}

func TestBoundingBox(t *testing.T) {
	r := BoundingBox([]Point{Pt(3, -2), Pt(-1, 5), Pt(0, 0)})
	assert.Equal(t, Rect{Min: Pt(-1, -2), Max: Pt(3, 5)}, r)
	assert.True(t, BoundingBox(nil).Empty())

	u := r.Union(Rect{Min: Pt(10, 10), Max: Pt(12, 11)})
	assert.Equal(t, Rect{Min: Pt(-1, -2), Max: Pt(12, 11)}, u)
	assert.Equal(t, r, BoundingBox(nil).Union(r))
	assert.Equal(t, r, r.Union(BoundingBox(nil)))
}
