// pkg/core/resolve.go
package core

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/libmocap/mocap/internal/geo"
)

// Position resolves the marker at list index i for frame f.
func (ms *MarkerSet) Position(traj *MarkerTrajectory, i, f int) (r3.Vec, error) {
	r := newResolver(ms, traj, f)
	if err := r.checkFrame(indexName(ms, i)); err != nil {
		return r3.Vec{}, err
	}
	return r.resolveIndex(i, indexName(ms, i))
}

// Resolve computes the marker's position at frame f. NaN coordinates of
// occluded physical markers propagate into every derived marker.
func (m Marker) Resolve(ms *MarkerSet, traj *MarkerTrajectory, f int) (r3.Vec, error) {
	r := newResolver(ms, traj, f)
	if err := r.checkFrame(m.Name); err != nil {
		return r3.Vec{}, err
	}
	if m.Kind == KindNone {
		return r3.Vec{}, r.fail(NullMarkerReference, m.Name, NoMarker)
	}
	return r.resolveMarker(m, 1)
}

// resolver holds the state of one resolve call: the markers currently on the
// reference path and the positions already computed.
type resolver struct {
	set      *MarkerSet
	traj     *MarkerTrajectory
	frame    int
	opts     ResolveOptions
	visiting map[int]bool
	memo     map[int]r3.Vec
}

func newResolver(ms *MarkerSet, traj *MarkerTrajectory, f int) *resolver {
	return &resolver{
		set:      ms,
		traj:     traj,
		frame:    f,
		opts:     ms.Options,
		visiting: make(map[int]bool),
		memo:     make(map[int]r3.Vec),
	}
}

func (r *resolver) fail(kind ResolutionErrorKind, marker string, index int) error {
	return &ResolutionError{Kind: kind, Marker: marker, Index: index, Frame: r.frame}
}

func (r *resolver) checkFrame(marker string) error {
	if r.frame < 0 {
		return r.fail(NegativeFrame, marker, NoMarker)
	}
	if r.frame >= r.traj.FrameCount() {
		return r.fail(FrameOutOfRange, marker, NoMarker)
	}
	return nil
}

// checkRefs validates every reference of m before anything is computed.
func (r *resolver) checkRefs(m Marker) error {
	for _, ref := range m.References() {
		if ref < 0 || ref >= len(r.set.Markers) {
			return r.fail(InvalidMarkerReference, m.Name, ref)
		}
		if r.set.Markers[ref].Kind == KindNone {
			return r.fail(NullMarkerReference, m.Name, ref)
		}
	}
	return nil
}

func (r *resolver) resolveIndex(i int, owner string) (r3.Vec, error) {
	return r.resolveRef(i, owner, 1)
}

func (r *resolver) resolveRef(i int, owner string, depth int) (r3.Vec, error) {
	if i < 0 || i >= len(r.set.Markers) {
		return r3.Vec{}, r.fail(InvalidMarkerReference, owner, i)
	}
	if r.set.Markers[i].Kind == KindNone {
		return r3.Vec{}, r.fail(NullMarkerReference, owner, i)
	}
	if pos, ok := r.memo[i]; ok {
		return pos, nil
	}
	if r.visiting[i] {
		return r3.Vec{}, r.fail(CycleDetected, owner, i)
	}

	r.visiting[i] = true
	pos, err := r.resolveMarker(r.set.Markers[i], depth)
	delete(r.visiting, i)
	if err != nil {
		return r3.Vec{}, err
	}
	r.memo[i] = pos
	return pos, nil
}

func (r *resolver) resolveMarker(m Marker, depth int) (r3.Vec, error) {
	if depth > r.opts.maxDepth() {
		return r3.Vec{}, r.fail(DepthExceeded, m.Name, depth)
	}
	if err := r.checkRefs(m); err != nil {
		return r3.Vec{}, err
	}

	refs := m.References()
	pts := make([]r3.Vec, len(refs))
	for k, ref := range refs {
		pos, err := r.resolveRef(ref, m.Name, depth+1)
		if err != nil {
			return r3.Vec{}, err
		}
		pts[k] = pos
	}

	switch m.Kind {
	case KindPhysical:
		return r.physical(m)
	case KindOnePointMeasured:
		return r3.Add(pts[0], m.Offset), nil
	case KindTwoPointsRatio:
		// o + w·(l−o); rounding can move w=1 off l, so that endpoint is returned as is
		w := m.Weight()
		if w == 1 && !geo.HasNaN(pts[0]) {
			return pts[1], nil
		}
		return r3.Add(pts[0], r3.Scale(w, r3.Sub(pts[1], pts[0]))), nil
	case KindTwoPointsMeasured:
		if len(pts) == 2 {
			ox := geo.Normalize(r3.Sub(pts[1], pts[0]))
			return r3.Add(pts[0], r3.Scale(m.Offset.X, ox)), nil
		}
		return measured(pts[0], pts[1], pts[2], m.Offset), nil
	case KindThreePointsMeasured:
		return measured(pts[0], pts[1], pts[2], m.Offset), nil
	case KindThreePointsRatio:
		return ratio(pts[0], pts[1], pts[2], m.Weights, r.opts.ThreePointsRatioSign), nil
	}
	return r3.Vec{}, r.fail(NullMarkerReference, m.Name, NoMarker)
}

func (r *resolver) physical(m Marker) (r3.Vec, error) {
	row := r.traj.Frame(r.frame)
	base := 1 + 3*m.ID
	if m.ID < 0 || base+2 >= len(row) {
		return r3.Vec{}, r.fail(InconsistentMarkerID, m.Name, m.ID)
	}
	return r3.Vec{X: row[base], Y: row[base+1], Z: row[base+2]}, nil
}

// frame returns the raw local axes: ox = long − origin, oy orthogonalised
// against ox, oz = ox × oy.
func frame(origin, long, plane r3.Vec) (ox, oy, oz r3.Vec) {
	ox = r3.Sub(long, origin)
	oy = r3.Sub(plane, origin)
	oy = r3.Sub(oy, geo.Project(ox, oy))
	oz = geo.Cross(ox, oy)
	return ox, oy, oz
}

func measured(origin, long, plane, offset r3.Vec) r3.Vec {
	ox, oy, oz := frame(origin, long, plane)
	ox = geo.Normalize(ox)
	oy = geo.Normalize(oy)
	oz = geo.Normalize(oz)
	oz = r3.Sub(oz, r3.Add(geo.Project(ox, oz), geo.Project(oy, oz)))

	pos := origin
	pos = r3.Add(pos, r3.Scale(offset.X, ox))
	pos = r3.Add(pos, r3.Scale(offset.Y, oy))
	pos = r3.Add(pos, r3.Scale(offset.Z, oz))
	return pos
}

func ratio(origin, long, plane r3.Vec, w [3]float64, sign Sign) r3.Vec {
	ox, oy, oz := frame(origin, long, plane)
	s := -1.0
	if sign == SignPlus {
		s = 1
	}
	pos := origin
	pos = r3.Add(pos, r3.Scale(s*w[0], ox))
	pos = r3.Add(pos, r3.Scale(s*w[1], oy))
	pos = r3.Add(pos, r3.Scale(s*w[2], oz))
	return pos
}

func indexName(ms *MarkerSet, i int) string {
	if i >= 0 && i < len(ms.Markers) {
		return ms.Markers[i].Name
	}
	return ""
}
