package via

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pcb-viafence/pkg/geometry"
)

func testParams() Params {
	p := DefaultParams()
	p.Pitch = 1000
	p.Offset = 500
	p.RowSpacing = 1500
	p.Rows = 1
	return p
}

func TestDistributeAlongPath_StraightInteriorCount(t *testing.T) {
	tests := []struct {
		length, pitch float64
	}{
		{10000, 1000},
		{10500, 1000},
		{9999, 1000},
		{50000, 1300},
		{2500, 1000},
	}
	for _, tt := range tests {
		path := geometry.Path{geometry.Pt(0, 0), geometry.Pt(int64(tt.length), 0)}
		pts := DistributeAlongPath(path, tt.pitch, 0)

		n := int(math.Floor(tt.length / tt.pitch))
		require.Len(t, pts, n-1, "length %v pitch %v", tt.length, tt.pitch)

		step := tt.length / float64(n)
		assert.GreaterOrEqual(t, step, tt.pitch)
		for k, p := range pts {
			assert.InDelta(t, float64(k+1)*step, float64(p.X), 1, "length %v point %d", tt.length, k)
			assert.Equal(t, int64(0), p.Y)
			assert.Greater(t, p.X, int64(0))
			assert.Less(t, p.X, int64(tt.length))
		}
	}
}

func TestDistributeAlongPath_ShortPath(t *testing.T) {
	path := geometry.Path{geometry.Pt(0, 0), geometry.Pt(900, 0)}
	assert.Empty(t, DistributeAlongPath(path, 1000, 0))
	assert.Empty(t, DistributeAlongPath(path, 1000, 500))
	assert.Empty(t, DistributeAlongPath(geometry.Path{geometry.Pt(0, 0)}, 1000, 0))
}

func TestDistributeAlongPath_Shifted(t *testing.T) {
	path := geometry.Path{geometry.Pt(0, 0), geometry.Pt(10000, 0)}
	pts := DistributeAlongPath(path, 1000, 500)

	var want []geometry.Point
	for x := int64(500); x < 10000; x += 1000 {
		want = append(want, geometry.Pt(x, 0))
	}
	if diff := cmp.Diff(want, pts); diff != "" {
		t.Errorf("shifted row mismatch (-want +got):\n%s", diff)
	}
}

func TestPlaceAlong_StraightIncludesEnds(t *testing.T) {
	path := geometry.Path{geometry.Pt(0, 0), geometry.Pt(10000, 0)}
	pts := PlaceAlong(path, testParams(), 0)

	require.Len(t, pts, 11)
	assert.Equal(t, geometry.Pt(0, 0), pts[0])
	assert.Equal(t, geometry.Pt(10000, 0), pts[1])
	assert.Equal(t, geometry.Pt(1000, 0), pts[2])
	assert.Equal(t, geometry.Pt(9000, 0), pts[10])
}

func TestPlaceAlong_BrickShift(t *testing.T) {
	path := geometry.Path{geometry.Pt(0, 0), geometry.Pt(0, 8000)}
	p := testParams()

	row0 := PlaceAlong(path, p, p.RowShift(0))
	row1 := PlaceAlong(path, p, p.RowShift(1))
	require.NotEmpty(t, row0)
	require.NotEmpty(t, row1)

	first := func(pts []geometry.Point) float64 {
		d := math.Inf(1)
		for _, pt := range pts {
			d = math.Min(d, pt.Distance(path[0]))
		}
		return d
	}
	assert.InDelta(t, first(row0)+p.Pitch/2, first(row1), 1)
}

func TestBendPoints(t *testing.T) {
	// 45 degree turns at vertices 1 and 3, straight through vertex 2.
	path := geometry.Path{
		geometry.Pt(0, 0), geometry.Pt(1000, 0), geometry.Pt(1707, 707),
		geometry.Pt(2414, 1414), geometry.Pt(2414, 3000),
	}
	assert.Equal(t, []int{1, 3}, BendPoints(path, 20))
	assert.InDelta(t, 45, Deviation(path, 1), 0.1)
	assert.InDelta(t, 0, Deviation(path, 2), 0.1)

	// Shallow discretized arc vertices are not bends.
	assert.Empty(t, BendPoints(path[:3], 50))
}

func TestFilterSharpJunctions_NearReversal(t *testing.T) {
	// 170 degree turn at vertex 1.
	a := 170 * math.Pi / 180
	tip := geometry.Point2D{X: 1000 + 1000*math.Cos(a), Y: 1000 * math.Sin(a)}.Round()
	path := geometry.Path{geometry.Pt(0, 0), geometry.Pt(1000, 0), tip}

	bends := BendPoints(path, 20)
	require.Equal(t, []int{1}, bends)
	assert.InDelta(t, 170, Deviation(path, 1), 0.5)

	filtered := FilterSharpJunctions(path, bends, 85)
	assert.Empty(t, filtered)
	assert.Equal(t, []int{0, 2}, FixedPoints(path, filtered))
}

func TestFilterSharpJunctions_KeepsModerateBends(t *testing.T) {
	path := geometry.Path{
		geometry.Pt(0, 0), geometry.Pt(1000, 0), geometry.Pt(1707, 707),
		geometry.Pt(1707, 2000), geometry.Pt(0, 2000),
	}
	bends := BendPoints(path, 20)
	assert.Equal(t, []int{1, 2, 3}, bends)
	// The 45 degree bends are kept, the 90 degree corner is dropped.
	assert.Equal(t, []int{1, 2}, FilterSharpJunctions(path, bends, 85))
	assert.InDelta(t, 90, Deviation(path, 3), 0.1)
}

func TestDedupe(t *testing.T) {
	cands := []Candidate{
		{Point: geometry.Pt(0, 0), Row: 0},
		{Point: geometry.Pt(10, 0), Row: 0},
		{Point: geometry.Pt(0, 0), Row: 1},
		{Point: geometry.Pt(12, 0), Row: 1},
	}
	got := Dedupe(cands)
	want := []Candidate{
		{Point: geometry.Pt(0, 0), Row: 0},
		{Point: geometry.Pt(10, 0), Row: 0},
		{Point: geometry.Pt(12, 0), Row: 1},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Dedupe mismatch (-want +got):\n%s", diff)
	}

	got = DedupeWithin(cands, 5)
	assert.Equal(t, want[:2], got)
}

func TestDedupeWithin_AcrossCells(t *testing.T) {
	cands := []Candidate{
		{Point: geometry.Pt(99, 0)},
		{Point: geometry.Pt(101, 0)},
		{Point: geometry.Pt(300, 0)},
	}
	got := DedupeWithin(cands, 100)
	assert.Equal(t, []geometry.Point{geometry.Pt(99, 0), geometry.Pt(300, 0)}, Points(got))
}

func TestDedupeWithin_ExactTolerance(t *testing.T) {
	cands := []Candidate{
		{Point: geometry.Pt(0, 0)},
		{Point: geometry.Pt(100, 0)},
		{Point: geometry.Pt(201, 0)},
	}
	got := DedupeWithin(cands, 100)
	assert.Equal(t, []geometry.Point{geometry.Pt(0, 0), geometry.Pt(201, 0)}, Points(got))
}

func TestParamsWithUnits(t *testing.T) {
	p := DefaultParams().WithUnits(1e6)
	assert.Equal(t, 1300000.0, p.Pitch)
	assert.Equal(t, 1300000.0, p.Offset)
	assert.Equal(t, 1950000.0, p.RowSpacing)
	require.NoError(t, p.Validate())

	p = p.WithRows(3, 2).WithPitch(1)
	assert.Equal(t, 3, p.Rows)
	assert.Equal(t, 2000000.0, p.RowSpacing)
	assert.Equal(t, 1000000.0, p.Pitch)
	assert.Equal(t, 1300000.0+2*2000000.0, p.RowOffset(2))
	assert.Equal(t, 0.0, p.RowShift(2))
	assert.Equal(t, 500000.0, p.RowShift(1))
}

func TestParamsValidate(t *testing.T) {
	tests := []struct {
		name  string
		mod   func(*Params)
		field string
	}{
		{"zero pitch", func(p *Params) { p.Pitch = 0 }, "pitch"},
		{"negative offset", func(p *Params) { p.Offset = -1 }, "offset"},
		{"no rows", func(p *Params) { p.Rows = 0 }, "rows"},
		{"rows without spacing", func(p *Params) { p.Rows = 2; p.RowSpacing = 0 }, "row_spacing"},
		{"tolerance out of range", func(p *Params) { p.AngleTolerance = 0 }, "angle_tolerance"},
		{"NaN pitch", func(p *Params) { p.Pitch = math.NaN() }, "pitch"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := testParams()
			tt.mod(&p)
			err := p.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidParams)
			var ce *ConfigError
			require.True(t, errors.As(err, &ce))
			assert.Equal(t, tt.field, ce.Field)
		})
	}
	assert.NoError(t, testParams().Validate())
}

func TestDistributor_TwoRowsStraightTrace(t *testing.T) {
	paths := []geometry.Path{{geometry.Pt(0, 0), geometry.Pt(10000, 0)}}

	single := NewDistributor(testParams(), nil)
	rows, err := single.Generate(context.Background(), paths)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 2, rows[0].FencePaths)
	one := Dedupe(Flatten(rows))
	require.Len(t, one, 22)
	for _, c := range one {
		assert.Equal(t, int64(500), abs(c.Point.Y))
	}

	p := testParams()
	p.Rows = 2
	double := NewDistributor(p, nil)
	rows, err = double.Generate(context.Background(), paths)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, 2000.0, rows[1].Offset)

	two := Dedupe(Flatten(rows))
	assert.GreaterOrEqual(t, float64(len(two)), 1.5*float64(len(one)))

	var row1 []Candidate
	for _, c := range two {
		if c.Row == 1 {
			row1 = append(row1, c)
		}
	}
	require.Len(t, row1, 20)
	for _, c := range row1 {
		assert.Equal(t, int64(2000), abs(c.Point.Y))
		assert.Equal(t, int64(500), c.Point.X%1000)
	}
}

func TestDistributor_ClosedRingSeam(t *testing.T) {
	loop := geometry.Path{
		geometry.Pt(0, 0), geometry.Pt(10000, 0), geometry.Pt(10000, 10000),
		geometry.Pt(0, 10000), geometry.Pt(0, 0),
	}
	res := NewDistributor(testParams(), nil).Row([]geometry.Path{loop}, 0)
	require.Equal(t, 2, res.FencePaths)

	seen := map[geometry.Point]int{}
	for _, c := range res.Candidates {
		seen[c.Point]++
	}
	for p, n := range seen {
		assert.Equal(t, 1, n, "via %v placed %d times", p, n)
	}
}

func TestDistributor_StaggeredPairKeepsOffset(t *testing.T) {
	paths := []geometry.Path{
		{geometry.Pt(0, 0), geometry.Pt(30000, 0)},
		{geometry.Pt(200, 1000), geometry.Pt(30200, 1000)},
	}
	p := testParams()
	p.Offset = 1300
	res := NewDistributor(p, nil).Row(paths, 0)
	assert.Equal(t, 2, res.FencePaths)
	require.NotEmpty(t, res.Candidates)
	for _, c := range res.Candidates {
		for _, tr := range paths {
			d := geometry.SegmentDistance(c.Point.ToFloat(), tr[0].ToFloat(), tr[1].ToFloat())
			assert.GreaterOrEqual(t, d, 1297.0, "via %v too close to %v", c.Point, tr)
		}
	}
}

func TestDistributor_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d := NewDistributor(testParams(), nil)
	_, err := d.Generate(ctx, []geometry.Path{{geometry.Pt(0, 0), geometry.Pt(10000, 0)}})
	assert.ErrorIs(t, err, context.Canceled)
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
