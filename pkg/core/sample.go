// pkg/core/sample.go
package core

import (
	"time"

	"gonum.org/v1/gonum/spatial/r3"
)

// Recording describes one playback of a trajectory against a marker set.
// Storage backends key every sample they receive on it.
type Recording struct {
	ID           uint
	Name         string
	Source       string // trajectory file
	MarkerSet    string // marker set name, empty when built from labels
	DataRate     float64
	Units        string
	NumFrames    int
	MarkerLabels []string
	StartTime    time.Time
	Properties   map[string]string
}

// MarkerDefinition is the per-marker metadata a backend stores once.
type MarkerDefinition struct {
	Index   int
	ID      int
	Name    string
	Kind    Kind
	Color   Color
	Virtual bool
}

// DefinitionsFromSet lists one MarkerDefinition per non-empty slot.
func DefinitionsFromSet(ms *MarkerSet) []MarkerDefinition {
	defs := make([]MarkerDefinition, 0, len(ms.Markers))
	for i, m := range ms.Markers {
		if m.Kind == KindNone {
			continue
		}
		defs = append(defs, MarkerDefinition{
			Index:   i,
			ID:      m.ID,
			Name:    m.Name,
			Kind:    m.Kind,
			Color:   m.Color,
			Virtual: m.IsVirtual(),
		})
	}
	return defs
}

// MarkerSample is one resolved marker at one frame. Position is NaN when
// the marker is occluded.
type MarkerSample struct {
	Frame    int
	Time     float64
	Marker   int // index in the marker set
	Name     string
	Color    Color
	Position r3.Vec
	Occluded bool
}

// FrameSample groups the samples of one frame.
type FrameSample struct {
	Frame   int
	Time    float64
	Markers []MarkerSample
}

// Visible returns the samples that carry coordinates.
func (f FrameSample) Visible() []MarkerSample {
	out := make([]MarkerSample, 0, len(f.Markers))
	for _, s := range f.Markers {
		if !s.Occluded {
			out = append(out, s)
		}
	}
	return out
}
