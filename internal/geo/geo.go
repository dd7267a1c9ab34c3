// Package geo holds the vector primitives the marker resolver is built on,
// plus conversions between lab-frame positions and storable geometries.
package geo

import (
	"math"

	geom "github.com/peterstace/simplefeatures/geom"
	"gonum.org/v1/gonum/spatial/r3"
)

// Positions are expressed in a lab-local Cartesian frame (metres after
// normalisation). There is no geodetic reference, so stored points carry no SRID.

// Cross returns the cross product lhs × rhs.
func Cross(lhs, rhs r3.Vec) r3.Vec {
	return r3.Cross(lhs, rhs)
}

// Normalize scales v to unit length.
// A zero vector has no direction; the result is NaN in every component.
func Normalize(v r3.Vec) r3.Vec {
	n := r3.Norm(v)
	return r3.Vec{X: v.X / n, Y: v.Y / n, Z: v.Z / n}
}

// Project returns the projection of v onto u: (u·v / u·u) u.
// Projecting onto a zero u yields NaN.
func Project(u, v r3.Vec) r3.Vec {
	return r3.Scale(r3.Dot(u, v)/r3.Dot(u, u), u)
}

// HasNaN reports whether any component of v is NaN.
func HasNaN(v r3.Vec) bool {
	return math.IsNaN(v.X) || math.IsNaN(v.Y) || math.IsNaN(v.Z)
}

// NaN returns a vector with every component set to NaN.
func NaN() r3.Vec {
	return r3.Vec{X: math.NaN(), Y: math.NaN(), Z: math.NaN()}
}

// PointZ converts a lab-frame position into a 3D point geometry.
// Positions containing NaN (occluded markers) become an empty XYZ point.
func PointZ(v r3.Vec) geom.Point {
	if HasNaN(v) {
		return geom.NewEmptyPoint(geom.DimXYZ)
	}
	p, err := geom.NewPoint(
		geom.Coordinates{
			XY:   geom.XY{X: v.X, Y: v.Y},
			Z:    v.Z,
			Type: geom.CoordinatesType(geom.DimXYZ),
		},
	)
	if err != nil {
		return geom.NewEmptyPoint(geom.DimXYZ)
	}
	return p
}

// VecFromPoint is the inverse of PointZ. Empty points map to NaN.
func VecFromPoint(p geom.Point) r3.Vec {
	c, ok := p.Coordinates()
	if !ok {
		return NaN()
	}
	return r3.Vec{X: c.X, Y: c.Y, Z: c.Z}
}
