package diag

import (
	"encoding/json"
	"fmt"
	"os"

	"pcb-viafence/pkg/geometry"
)

// Dump is the debug record of one fence run: the input paths, the first
// row's offset and the pitch, and the resulting via positions. Coordinates
// are written as [x, y] pairs in board units.
type Dump struct {
	PathList  [][][2]int64 `json:"pathList"`
	ViaOffset float64      `json:"viaOffset"`
	ViaPitch  float64      `json:"viaPitch"`
	ViaPoints [][2]int64   `json:"viaPoints"`
}

// NewDump builds a debug record.
func NewDump(paths []geometry.Path, offset, pitch float64, vias []geometry.Point) Dump {
	d := Dump{
		PathList:  make([][][2]int64, len(paths)),
		ViaOffset: offset,
		ViaPitch:  pitch,
		ViaPoints: pairs(vias),
	}
	for i, p := range paths {
		d.PathList[i] = pairs(p)
	}
	return d
}

func pairs(pts []geometry.Point) [][2]int64 {
	out := make([][2]int64, len(pts))
	for i, p := range pts {
		out[i] = [2]int64{p.X, p.Y}
	}
	return out
}

// Paths returns the recorded input paths.
func (d Dump) Paths() []geometry.Path {
	out := make([]geometry.Path, len(d.PathList))
	for i, p := range d.PathList {
		out[i] = make(geometry.Path, len(p))
		for j, xy := range p {
			out[i][j] = geometry.Pt(xy[0], xy[1])
		}
	}
	return out
}

// Save writes the record as indented JSON.
func (d Dump) Save(path string) error {
	data, err := json.MarshalIndent(d, "", "    ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// LoadDump reads a record written by Save.
func LoadDump(path string) (Dump, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Dump{}, err
	}
	var d Dump
	if err := json.Unmarshal(data, &d); err != nil {
		return Dump{}, fmt.Errorf("parse debug dump %s: %w", path, err)
	}
	return d, nil
}
