package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pcb-viafence/internal/clearance"
	"pcb-viafence/internal/diag"
	"pcb-viafence/internal/fence"
	"pcb-viafence/internal/via"
	"pcb-viafence/pkg/geometry"
)

func straightInput() Input {
	p := via.DefaultParams()
	p.Pitch = 1000
	p.Offset = 500
	p.RowSpacing = 1500
	return Input{
		Paths:  []geometry.Path{{geometry.Pt(0, 0), geometry.Pt(10000, 0)}},
		Params: p,
		Context: clearance.Context{
			ViaDiameter: 300,
			ViaDrill:    150,
			Clearance:   100,
			NetCode:     2,
		},
		Tracks: []clearance.Track{
			{Start: geometry.Pt(0, 0), End: geometry.Pt(10000, 0), Width: 200, NetCode: 1},
		},
	}
}

func TestGenerate_StraightTrace(t *testing.T) {
	in := straightInput()
	rec := diag.NewRecorder()
	in.Sink = rec

	res, err := Generate(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, 2, res.FencePaths)
	assert.Equal(t, 22, res.Candidates)
	assert.Equal(t, clearance.Stats{Tested: 22, Accepted: 22}, res.Stats)
	require.Len(t, res.Vias, 22)
	for _, v := range res.Vias {
		assert.Equal(t, int64(500), abs(v.Point.Y))
		assert.Equal(t, 0, v.Row)
	}
	require.Len(t, res.Rows, 1)
	assert.Equal(t, 500.0, res.Rows[0].Offset)

	for _, label := range []string{fence.LabelOffset, fence.LabelFence, LabelCandidates, LabelVias} {
		_, ok := rec.Layer(label)
		assert.True(t, ok, label)
	}
	vias, _ := rec.Layer(LabelVias)
	assert.Len(t, vias.Points, 22)
}

func TestGenerate_PadBlocksOneVia(t *testing.T) {
	in := straightInput()
	in.Pads = []clearance.Pad{{Center: geometry.Pt(5000, 500), Width: 400, Height: 400, NetCode: 3}}

	res, err := Generate(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, 22, res.Stats.Tested)
	assert.Equal(t, 1, res.Stats.Pad)
	assert.Equal(t, 21, res.Stats.Accepted)
	assert.Len(t, res.Vias, 21)

	// The blocked position is still part of the raw output.
	assert.Len(t, res.Raw, res.Generated)
	assert.Contains(t, via.Points(res.Raw), geometry.Pt(5000, 500))
	assert.NotContains(t, via.Points(res.Vias), geometry.Pt(5000, 500))
}

func TestGenerate_TwoRows(t *testing.T) {
	in := straightInput()
	single, err := Generate(context.Background(), in)
	require.NoError(t, err)

	in.Params.Rows = 2
	double, err := Generate(context.Background(), in)
	require.NoError(t, err)

	assert.GreaterOrEqual(t, float64(len(double.Vias)), 1.5*float64(len(single.Vias)))
	require.Len(t, double.Rows, 2)
	assert.Equal(t, 2000.0, double.Rows[1].Offset)
	assert.Equal(t, 4, double.FencePaths)
}

func TestGenerate_SkipClearance(t *testing.T) {
	in := straightInput()
	in.Context = clearance.Context{}
	in.SkipClearance = true
	in.Pads = []clearance.Pad{{Center: geometry.Pt(5000, 500), Width: 400, Height: 400}}

	res, err := Generate(context.Background(), in)
	require.NoError(t, err)
	assert.Len(t, res.Vias, 22)
	assert.Equal(t, 0, res.Stats.Rejected())
}

func TestGenerate_NoPaths(t *testing.T) {
	in := straightInput()
	in.Paths = nil
	res, err := Generate(context.Background(), in)
	require.NoError(t, err)
	assert.Empty(t, res.Vias)
	assert.Equal(t, 0, res.FencePaths)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		edit  func(*Input)
		field string
	}{
		{"pitch", func(in *Input) { in.Params.Pitch = 0 }, "pitch"},
		{"rows", func(in *Input) { in.Params.Rows = 0 }, "rows"},
		{"via diameter", func(in *Input) { in.Context.ViaDiameter = 0 }, "via_diameter"},
		{"negative clearance", func(in *Input) { in.Context.Clearance = -1 }, "clearance"},
		{"drill too large", func(in *Input) { in.Context.ViaDrill = 400 }, "via_drill"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := straightInput()
			tt.edit(&in)
			err := Validate(in)
			require.Error(t, err)
			assert.True(t, errors.Is(err, via.ErrInvalidParams))
			var ce *via.ConfigError
			require.True(t, errors.As(err, &ce))
			assert.Equal(t, tt.field, ce.Field)

			_, err = Generate(context.Background(), in)
			assert.ErrorIs(t, err, via.ErrInvalidParams)
		})
	}

	in := straightInput()
	in.Context.ViaDiameter = 0
	in.SkipClearance = true
	assert.NoError(t, Validate(in))
}

func TestGenerate_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Generate(ctx, straightInput())
	assert.ErrorIs(t, err, context.Canceled)
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
