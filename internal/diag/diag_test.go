package diag

import (
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/tiff"

	"pcb-viafence/pkg/colorutil"
	"pcb-viafence/pkg/geometry"
)

func TestRecorder(t *testing.T) {
	r := NewRecorder()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r.Points("vias", []geometry.Point{geometry.Pt(int64(i), 0)})
		}(i)
	}
	wg.Wait()
	r.Paths("fence", []geometry.Path{{geometry.Pt(0, 0), geometry.Pt(1, 1)}})

	layers := r.Layers()
	require.Len(t, layers, 2)
	assert.Equal(t, "vias", layers[0].Label)
	assert.Len(t, layers[0].Points, 8)

	l, ok := r.Layer("fence")
	require.True(t, ok)
	assert.Len(t, l.Paths, 1)
	_, ok = r.Layer("missing")
	assert.False(t, ok)
}

func TestOrNop(t *testing.T) {
	assert.Equal(t, Nop{}, OrNop(nil))
	r := NewRecorder()
	assert.Same(t, r, OrNop(r))
}

func testLayers() []Layer {
	return []Layer{
		{Label: "offset", Polygons: []geometry.Polygon{{
			geometry.Pt(0, -500), geometry.Pt(10000, -500), geometry.Pt(10000, 500), geometry.Pt(0, 500),
		}}},
		{Label: "fence", Paths: []geometry.Path{{geometry.Pt(0, 500), geometry.Pt(10000, 500)}}},
		{Label: "vias", Points: []geometry.Point{geometry.Pt(5000, 500)}},
	}
}

func TestRender(t *testing.T) {
	opts := DefaultRenderOptions()
	opts.Size = 200
	opts.Padding = 10
	opts.Colors = map[string]color.RGBA{"vias": colorutil.Red}

	img, err := Render(testLayers(), opts)
	require.NoError(t, err)
	b := img.Bounds()
	assert.InDelta(t, 200, b.Dx(), 1)
	assert.InDelta(t, 38, b.Dy(), 1)

	// Corner is background.
	r, g, bl, _ := img.At(0, 0).RGBA()
	assert.Equal(t, []uint32{0, 0, 0}, []uint32{r, g, bl})

	// Via disc in its override color, on top of the fence line.
	r, g, bl, _ = img.At(100, 28).RGBA()
	assert.Greater(t, r, g)
	assert.Greater(t, r, bl)
}

func TestRender_Empty(t *testing.T) {
	_, err := Render([]Layer{{Label: "empty"}}, DefaultRenderOptions())
	assert.ErrorIs(t, err, ErrNothingToRender)
}

func TestSaveImage(t *testing.T) {
	dir := t.TempDir()
	opts := DefaultRenderOptions()
	opts.Size = 128

	pngPath := filepath.Join(dir, "fence.png")
	require.NoError(t, SaveImage(pngPath, testLayers(), opts))
	f, err := os.Open(pngPath)
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)
	assert.InDelta(t, 128, img.Bounds().Dx(), 1)

	tifPath := filepath.Join(dir, "fence.tif")
	require.NoError(t, SaveImage(tifPath, testLayers(), opts))
	tf, err := os.Open(tifPath)
	require.NoError(t, err)
	defer tf.Close()
	timg, err := tiff.Decode(tf)
	require.NoError(t, err)
	assert.Equal(t, img.Bounds(), timg.Bounds())

	assert.Error(t, SaveImage(filepath.Join(dir, "fence.bmp"), testLayers(), opts))
}

func TestDumpRoundTrip(t *testing.T) {
	paths := []geometry.Path{{geometry.Pt(0, 0), geometry.Pt(10000, 0)}}
	vias := []geometry.Point{geometry.Pt(0, 500), geometry.Pt(1000, 500)}
	d := NewDump(paths, 500, 1000, vias)

	path := filepath.Join(t.TempDir(), "dump.json")
	require.NoError(t, d.Save(path))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	for _, key := range []string{`"pathList"`, `"viaOffset"`, `"viaPitch"`, `"viaPoints"`} {
		assert.Contains(t, string(raw), key)
	}

	loaded, err := LoadDump(path)
	require.NoError(t, err)
	if diff := cmp.Diff(d, loaded); diff != "" {
		t.Errorf("dump mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, paths, loaded.Paths())
}
