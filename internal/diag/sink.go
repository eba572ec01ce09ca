// Package diag collects intermediate fence geometry for debugging. Nothing
// reported here influences the generated vias.
package diag

import (
	"sync"

	"pcb-viafence/pkg/geometry"
)

// Sink receives intermediate geometry. Implementations must be safe for
// concurrent use because rows are generated in parallel.
type Sink interface {
	Polygons(label string, polys []geometry.Polygon)
	Paths(label string, paths []geometry.Path)
	Points(label string, pts []geometry.Point)
}

// Nop discards everything.
type Nop struct{}

func (Nop) Polygons(string, []geometry.Polygon) {}
func (Nop) Paths(string, []geometry.Path)       {}
func (Nop) Points(string, []geometry.Point)     {}

// OrNop returns s, or Nop when s is nil.
func OrNop(s Sink) Sink {
	if s == nil {
		return Nop{}
	}
	return s
}

// Layer is one labelled group of recorded geometry.
type Layer struct {
	Label    string             `json:"label"`
	Polygons []geometry.Polygon `json:"polygons,omitempty"`
	Paths    []geometry.Path    `json:"paths,omitempty"`
	Points   []geometry.Point   `json:"points,omitempty"`
}

// Recorder is a Sink that keeps everything it receives, grouped by label in
// first-seen order.
type Recorder struct {
	mu     sync.Mutex
	layers []*Layer
	index  map[string]*Layer
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{index: make(map[string]*Layer)}
}

func (r *Recorder) layer(label string) *Layer {
	if l, ok := r.index[label]; ok {
		return l
	}
	l := &Layer{Label: label}
	r.index[label] = l
	r.layers = append(r.layers, l)
	return l
}

func (r *Recorder) Polygons(label string, polys []geometry.Polygon) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l := r.layer(label)
	l.Polygons = append(l.Polygons, polys...)
}

func (r *Recorder) Paths(label string, paths []geometry.Path) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l := r.layer(label)
	l.Paths = append(l.Paths, paths...)
}

func (r *Recorder) Points(label string, pts []geometry.Point) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l := r.layer(label)
	l.Points = append(l.Points, pts...)
}

// Layers returns a snapshot of the recorded layers.
func (r *Recorder) Layers() []Layer {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Layer, len(r.layers))
	for i, l := range r.layers {
		out[i] = *l
	}
	return out
}

// Layer returns the layer with the given label.
func (r *Recorder) Layer(label string) (Layer, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.index[label]
	if !ok {
		return Layer{}, false
	}
	return *l, true
}
