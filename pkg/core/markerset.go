// pkg/core/markerset.go
package core

import (
	"fmt"
	"maps"
	"slices"

	"gonum.org/v1/gonum/spatial/r3"
)

// DefaultMaxDepth bounds the reference chain followed by the resolver when
// ResolveOptions.MaxDepth is unset.
const DefaultMaxDepth = 64

// Sign selects how three-points-ratio markers combine their axes.
type Sign int

const (
	// SignMinus yields origin − Σ wᵢ·axisᵢ, matching existing marker set files.
	SignMinus Sign = iota
	// SignPlus yields origin + Σ wᵢ·axisᵢ.
	SignPlus
)

func (s Sign) String() string {
	if s == SignPlus {
		return "plus"
	}
	return "minus"
}

// ParseSign maps a configuration value to a Sign.
func ParseSign(s string) (Sign, error) {
	switch s {
	case "", "minus", "-":
		return SignMinus, nil
	case "plus", "+":
		return SignPlus, nil
	}
	return SignMinus, fmt.Errorf("unknown sign %q", s)
}

// ResolveOptions tune the resolver. The zero value is usable.
type ResolveOptions struct {
	MaxDepth             int
	ThreePointsRatioSign Sign
}

func (o ResolveOptions) maxDepth() int {
	if o.MaxDepth <= 0 {
		return DefaultMaxDepth
	}
	return o.MaxDepth
}

// LinkType tags a Link. Only LinkUnknown exists today.
type LinkType int

const LinkUnknown LinkType = 0

// Link is an expected distance between two markers. Not enforced here.
type Link struct {
	Name         string
	Type         LinkType
	Color        Color
	Marker1      int
	Marker2      int
	MinLength    float64
	MaxLength    float64
	ExtraStretch float64
}

// RotationOffset is a fixed roll/pitch/yaw in radians.
type RotationOffset struct {
	Roll  float64
	Pitch float64
	Yaw   float64
}

// Segment is a rigid-body frame defined by three marker indices.
type Segment struct {
	Name            string
	Parent          int // NoMarker for a root segment
	Children        []int
	OriginMarker    int
	LongAxisMarker  int
	PlaneAxisMarker int
	RotationOffset  RotationOffset
}

// IsRoot reports whether the segment has no parent.
func (s Segment) IsRoot() bool {
	return s.Parent < 0
}

// Pose is a named reference layout, one position per marker slot.
type Pose struct {
	Name      string
	Positions []r3.Vec
}

// MassSegment carries the mass model entry for one segment.
type MassSegment struct {
	Segment      int
	Mass         float64
	CenterOfMass r3.Vec
}

// MarkerSet is the aggregate root describing one subject template.
// Index in Markers follows declaration order and need not equal Marker.ID.
type MarkerSet struct {
	Name       string
	Markers    []Marker
	Links      []Link
	Segments   []Segment
	Poses      []Pose
	MassModel  []MassSegment
	Properties map[string]string

	Options ResolveOptions
}

// MarkerCount returns the number of marker slots, empty ones included.
func (ms *MarkerSet) MarkerCount() int {
	return len(ms.Markers)
}

// MarkerIndex returns the list index of the first marker named name.
func (ms *MarkerSet) MarkerIndex(name string) (int, error) {
	for i := range ms.Markers {
		if ms.Markers[i].Kind != KindNone && ms.Markers[i].Name == name {
			return i, nil
		}
	}
	return -1, fmt.Errorf("marker %q: %w", name, ErrNotFound)
}

// MarkerByName returns a copy of the first marker named name.
func (ms *MarkerSet) MarkerByName(name string) (Marker, error) {
	i, err := ms.MarkerIndex(name)
	if err != nil {
		return Marker{}, err
	}
	return ms.Markers[i], nil
}

// SegmentRoots returns the indices of segments without a parent.
func (ms *MarkerSet) SegmentRoots() []int {
	var roots []int
	for i, s := range ms.Segments {
		if s.IsRoot() {
			roots = append(roots, i)
		}
	}
	return roots
}

// Clone returns a deep copy that shares no slices or maps with ms.
func (ms *MarkerSet) Clone() *MarkerSet {
	out := &MarkerSet{
		Name:       ms.Name,
		Markers:    slices.Clone(ms.Markers),
		Links:      slices.Clone(ms.Links),
		Segments:   slices.Clone(ms.Segments),
		MassModel:  slices.Clone(ms.MassModel),
		Properties: maps.Clone(ms.Properties),
		Options:    ms.Options,
	}
	for i := range out.Segments {
		out.Segments[i].Children = slices.Clone(out.Segments[i].Children)
	}
	if ms.Poses != nil {
		out.Poses = make([]Pose, len(ms.Poses))
		for i, p := range ms.Poses {
			out.Poses[i] = Pose{Name: p.Name, Positions: slices.Clone(p.Positions)}
		}
	}
	return out
}

// Validate checks every marker reference without a trajectory and returns the
// first invalid or cyclic one. Frame is -1 in the returned error.
func (ms *MarkerSet) Validate() error {
	const (
		unseen = iota
		onPath
		done
	)
	state := make([]uint8, len(ms.Markers))

	var visit func(i int) error
	visit = func(i int) error {
		state[i] = onPath
		m := ms.Markers[i]
		for _, ref := range m.References() {
			switch {
			case ref < 0 || ref >= len(ms.Markers):
				return &ResolutionError{Kind: InvalidMarkerReference, Marker: m.Name, Index: ref, Frame: -1}
			case ms.Markers[ref].Kind == KindNone:
				return &ResolutionError{Kind: NullMarkerReference, Marker: m.Name, Index: ref, Frame: -1}
			case state[ref] == onPath:
				return &ResolutionError{Kind: CycleDetected, Marker: m.Name, Index: ref, Frame: -1}
			case state[ref] == unseen:
				if err := visit(ref); err != nil {
					return err
				}
			}
		}
		state[i] = done
		return nil
	}

	for i := range ms.Markers {
		if state[i] != unseen || ms.Markers[i].Kind == KindNone {
			continue
		}
		if err := visit(i); err != nil {
			return err
		}
	}
	return nil
}

// MarkerSetFromTrajectory builds a physical-only set from the trajectory labels,
// for captures played back without a marker set file.
func MarkerSetFromTrajectory(traj *MarkerTrajectory) *MarkerSet {
	ms := &MarkerSet{
		Name:       traj.Filename,
		Markers:    make([]Marker, 0, len(traj.Markers)),
		Properties: map[string]string{},
	}
	for i, label := range traj.Markers {
		ms.Markers = append(ms.Markers, NewPhysicalMarker(i, label))
	}
	return ms
}
