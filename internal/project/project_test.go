package project

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveLoad(t *testing.T) {
	dir := t.TempDir()
	projPath := filepath.Join(dir, "rf.vfproj")

	p := New("rf")
	p.SetBoard(projPath, filepath.Join(dir, "boards", "rf.json"))
	p.Settings = Settings{NetFilter: "RF*", Rows: 2}
	require.NoError(t, p.Save(projPath))

	loaded, err := Load(projPath)
	require.NoError(t, err)
	assert.Equal(t, "rf", loaded.Name)
	assert.Equal(t, filepath.Join("boards", "rf.json"), loaded.BoardPath)
	assert.Equal(t, filepath.Join(dir, "boards", "rf.json"), loaded.GetBoardPath(projPath))
	assert.Equal(t, p.Settings, loaded.Settings)
	assert.Equal(t, filepath.Join(dir, "rf_vias.json"), loaded.GetOutputPath(projPath))
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "missing.vfproj"))
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.vfproj")
	require.NoError(t, os.WriteFile(bad, []byte("{"), 0644))
	_, err = Load(bad)
	assert.Error(t, err)

	noBoard := filepath.Join(dir, "empty.vfproj")
	require.NoError(t, os.WriteFile(noBoard, []byte(`{"version":1,"name":"x"}`), 0644))
	_, err = Load(noBoard)
	assert.ErrorContains(t, err, "no board")
}

func TestAbsolutePaths(t *testing.T) {
	dir := t.TempDir()
	p := New("abs")
	p.BoardPath = filepath.Join(dir, "board.json")
	p.OutputPath = filepath.Join(dir, "out.json")

	projPath := filepath.Join(dir, "sub", "abs.vfproj")
	assert.Equal(t, p.BoardPath, p.GetBoardPath(projPath))
	assert.Equal(t, p.OutputPath, p.GetOutputPath(projPath))
	assert.Equal(t, "", p.GetConfigPath(projPath))
}

func TestConfig(t *testing.T) {
	dir := t.TempDir()
	projPath := filepath.Join(dir, "p.vfproj")
	p := New("p")

	c, err := p.Config(projPath)
	require.NoError(t, err)
	assert.Equal(t, 1, c.Fence.Rows)

	cfgPath := filepath.Join(dir, "fence.toml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("[fence]\npitch_mm = 2.0\n[via]\nnet = \"AGND\"\n"), 0644))
	p.SetConfig(projPath, cfgPath)
	p.Settings = Settings{Rows: 3, Layer: "B.Cu"}

	c, err = p.Config(projPath)
	require.NoError(t, err)
	assert.Equal(t, 2.0, c.Fence.PitchMM)
	assert.Equal(t, 3, c.Fence.Rows)
	assert.Equal(t, "B.Cu", c.Selection.Layer)
	assert.Equal(t, "AGND", c.Via.Net)

	p.ConfigPath = "missing.toml"
	_, err = p.Config(projPath)
	assert.Error(t, err)
}
