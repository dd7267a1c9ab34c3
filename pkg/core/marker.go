// pkg/core/marker.go
package core

import "gonum.org/v1/gonum/spatial/r3"

// NoMarker is the reference value for an axis a marker does not use.
// A 0 reference in a 1-based source file loads as NoMarker.
const NoMarker = -1

// Kind selects how a marker's position is obtained.
type Kind uint8

const (
	// KindNone is an empty marker slot. Referencing it is an error.
	KindNone Kind = iota
	// KindPhysical markers read their position straight from the trajectory.
	KindPhysical
	// KindOnePointMeasured adds a fixed offset to the origin marker.
	KindOnePointMeasured
	// KindTwoPointsMeasured places offsets along the origin→long-axis direction,
	// and in the full local frame when a plane-axis marker is declared.
	KindTwoPointsMeasured
	// KindThreePointsMeasured places offsets in the orthonormal frame built from
	// the origin, long-axis and plane-axis markers.
	KindThreePointsMeasured
	// KindTwoPointsRatio interpolates between origin and long-axis marker.
	KindTwoPointsRatio
	// KindThreePointsRatio combines the unnormalised local frame axes by weight.
	KindThreePointsRatio
)

var kindNames = map[Kind]string{
	KindNone:                "empty",
	KindPhysical:            "physical",
	KindOnePointMeasured:    "one-point-measured",
	KindTwoPointsMeasured:   "two-points-measured",
	KindThreePointsMeasured: "three-points-measured",
	KindTwoPointsRatio:      "two-points-ratio",
	KindThreePointsRatio:    "three-points-ratio",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// Marker is a tracked or derived point of a marker set.
//
// Markers reference each other by index into MarkerSet.Markers, never by
// pointer, so a Marker is a plain value and copying a set copies its markers.
// Only the fields relevant to Kind are meaningful.
type Marker struct {
	// ID is the marker's slot in a trajectory frame. It is not necessarily
	// the marker's index inside its MarkerSet.
	ID            int
	Name          string
	Color         Color
	PhysicalColor Color
	Size          float64
	Optional      bool

	Kind Kind

	OriginMarker    int
	LongAxisMarker  int
	PlaneAxisMarker int

	// Offset is expressed in metres in the marker's local frame (measured kinds).
	Offset r3.Vec
	// Weights are dimensionless (ratio kinds). Two-points-ratio uses Weights[0].
	Weights [3]float64
}

// NewPhysicalMarker returns a marker read directly from trajectory slot id.
func NewPhysicalMarker(id int, name string) Marker {
	return Marker{
		ID:              id,
		Name:            name,
		Kind:            KindPhysical,
		OriginMarker:    NoMarker,
		LongAxisMarker:  NoMarker,
		PlaneAxisMarker: NoMarker,
	}
}

// NewOnePointMeasured returns a marker at origin + offset.
func NewOnePointMeasured(origin int, offset r3.Vec) Marker {
	return Marker{
		Kind:            KindOnePointMeasured,
		OriginMarker:    origin,
		LongAxisMarker:  NoMarker,
		PlaneAxisMarker: NoMarker,
		Offset:          offset,
	}
}

// NewTwoPointsMeasured returns a measured marker on the origin/long-axis line.
// plane may be NoMarker.
func NewTwoPointsMeasured(origin, long, plane int, offset r3.Vec) Marker {
	return Marker{
		Kind:            KindTwoPointsMeasured,
		OriginMarker:    origin,
		LongAxisMarker:  long,
		PlaneAxisMarker: plane,
		Offset:          offset,
	}
}

// NewThreePointsMeasured returns a marker at offset in the local orthonormal frame.
func NewThreePointsMeasured(origin, long, plane int, offset r3.Vec) Marker {
	return Marker{
		Kind:            KindThreePointsMeasured,
		OriginMarker:    origin,
		LongAxisMarker:  long,
		PlaneAxisMarker: plane,
		Offset:          offset,
	}
}

// NewTwoPointsRatio returns a marker at origin + weight·(long − origin).
func NewTwoPointsRatio(origin, long int, weight float64) Marker {
	return Marker{
		Kind:            KindTwoPointsRatio,
		OriginMarker:    origin,
		LongAxisMarker:  long,
		PlaneAxisMarker: NoMarker,
		Weights:         [3]float64{weight, 0, 0},
	}
}

// NewThreePointsRatio returns a marker combining the raw local frame axes by weights.
func NewThreePointsRatio(origin, long, plane int, weights [3]float64) Marker {
	return Marker{
		Kind:            KindThreePointsRatio,
		OriginMarker:    origin,
		LongAxisMarker:  long,
		PlaneAxisMarker: plane,
		Weights:         weights,
	}
}

// IsVirtual reports whether the marker is derived from other markers.
func (m Marker) IsVirtual() bool {
	return m.Kind != KindPhysical && m.Kind != KindNone
}

// Weight is the interpolation factor of a two-points-ratio marker.
func (m Marker) Weight() float64 {
	return m.Weights[0]
}

// References lists the marker indices this marker's position depends on,
// in resolution order.
func (m Marker) References() []int {
	switch m.Kind {
	case KindOnePointMeasured:
		return []int{m.OriginMarker}
	case KindTwoPointsRatio:
		return []int{m.OriginMarker, m.LongAxisMarker}
	case KindTwoPointsMeasured:
		if m.PlaneAxisMarker == NoMarker {
			return []int{m.OriginMarker, m.LongAxisMarker}
		}
		return []int{m.OriginMarker, m.LongAxisMarker, m.PlaneAxisMarker}
	case KindThreePointsMeasured, KindThreePointsRatio:
		return []int{m.OriginMarker, m.LongAxisMarker, m.PlaneAxisMarker}
	default:
		return nil
	}
}
