// pkg/core/trajectory.go
package core

import (
	"fmt"
	"math"
)

// Units accepted by MarkerTrajectory.Normalize.
const (
	UnitsMillimetres = "mm"
	UnitsMetres      = "m"
)

// MarkerTrajectory is a fully loaded capture: one row per frame laid out as
// [time, m0.x, m0.y, m0.z, m1.x, ...]. Slot 0 is elapsed time.
// Occluded coordinates are NaN.
type MarkerTrajectory struct {
	Filename      string // source file name declared in the header
	FormatVersion string
	AxisOrder     string

	DataRate           float64
	CameraRate         float64
	NumFrames          int
	NumMarkers         int
	Units              string
	OrigDataRate       float64
	OrigDataStartFrame int
	OrigNumFrames      int

	// Markers holds the declared labels, parallel to the coordinate blocks.
	Markers   []string
	Positions [][]float64
}

// FrameCount returns the number of frames actually held.
func (t *MarkerTrajectory) FrameCount() int {
	return len(t.Positions)
}

// RowWidth is the expected length of every frame row.
func (t *MarkerTrajectory) RowWidth() int {
	return 1 + 3*t.NumMarkers
}

// Frame returns the raw row for frame f, or nil when f is out of range.
func (t *MarkerTrajectory) Frame(f int) []float64 {
	if f < 0 || f >= len(t.Positions) {
		return nil
	}
	return t.Positions[f]
}

// Time returns the elapsed time recorded for frame f, NaN when unavailable.
func (t *MarkerTrajectory) Time(f int) float64 {
	row := t.Frame(f)
	if len(row) == 0 {
		return math.NaN()
	}
	return row[0]
}

// LabelIndex returns the trajectory slot of the marker labelled name.
func (t *MarkerTrajectory) LabelIndex(name string) (int, error) {
	for i, label := range t.Markers {
		if label == name {
			return i, nil
		}
	}
	return -1, fmt.Errorf("marker label %q: %w", name, ErrNotFound)
}

// Normalize converts coordinates to metres in place. The time slot is left
// untouched. Calling it on a trajectory already in metres is a no-op.
func (t *MarkerTrajectory) Normalize() error {
	var scale float64
	switch t.Units {
	case UnitsMetres:
		return nil
	case UnitsMillimetres:
		scale = 1e-3
	default:
		return fmt.Errorf("normalize %q: %w", t.Units, ErrUnsupportedUnits)
	}

	for _, row := range t.Positions {
		for i := 1; i < len(row); i++ {
			row[i] *= scale
		}
	}
	t.Units = UnitsMetres
	return nil
}
