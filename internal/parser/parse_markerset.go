package parser

import (
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/libmocap/mocap/internal/util"
	"github.com/libmocap/mocap/pkg/core"
)

const (
	formatMARS  = "mars"
	marsVersion = "5"

	// measured offsets are written in millimetres
	millimetre = 1e-3
)

// Section names as they appear between brackets.
const (
	sectionGeneral        = "General Information"
	sectionMarkers        = "Markers"
	sectionVirtualMarkers = "VirtualMarkers"
	sectionJoinDefs       = "VMJoinDefs"
	sectionLinkages       = "Linkages"
	sectionSkeletonType   = "SkeletonType"
	sectionCalciumModel   = "CalciumModel"
	sectionHtrExport      = "HtrExportOptions"
	sectionSegments       = "Segments"
	sectionModelPose      = "ModelPose"
	sectionPersonalInfo   = "Personal Info"
	sectionMassModel      = "Mass Model"
)

var requiredSections = []string{
	sectionGeneral,
	sectionMarkers,
	sectionVirtualMarkers,
	sectionJoinDefs,
	sectionLinkages,
	sectionSkeletonType,
	sectionHtrExport,
	sectionSegments,
	sectionModelPose,
	sectionPersonalInfo,
}

// Virtual marker type codes.
const (
	vmTwoPointsRatio      = 2
	vmTwoPointsMeasured   = 3
	vmThreePointsRatio    = 4
	vmThreePointsMeasured = 5
	vmEMR                 = 6
	vmOnePointMeasured    = 7
	vmRelativeToBone      = 8
)

// marsSection describes how one section body is read: known Key=Value
// variables first, then optional comma separated records of a fixed width.
type marsSection struct {
	keys     []string
	countKey string
	width    int
	begin    func(st *marsState)
	key      func(st *marsState, key, value string) error
	record   func(st *marsState, fields []string) error
	end      func(st *marsState) error
}

var marsSections = map[string]marsSection{
	sectionGeneral: {
		keys: []string{"Version", "Name", "NumMarkers", "NumVirtualMarkers", "NumLinks", "NumSegments", "Comment"},
		key:  (*marsState).generalKey,
	},
	sectionMarkers: {
		keys:     []string{"NumMarkers"},
		countKey: "NumMarkers",
		width:    6,
		record:   (*marsState).markerRecord,
	},
	sectionVirtualMarkers: {
		keys:     []string{"NumVirtualMarkers"},
		countKey: "NumVirtualMarkers",
		width:    10,
		record:   (*marsState).virtualMarkerRecord,
	},
	sectionJoinDefs: {
		keys: []string{"NumJoinDefs"},
	},
	sectionLinkages: {
		keys:     []string{"NumLinks"},
		countKey: "NumLinks",
		width:    7,
		record:   (*marsState).linkRecord,
	},
	sectionSkeletonType: {
		keys: []string{"Type"},
	},
	sectionCalciumModel: {
		keys: []string{"File", "Enabled"},
	},
	sectionHtrExport: {
		keys: []string{"RotationOrder", "CalibrationUnits", "RotationUnits", "GlobalAxisOfGravity", "BoneLengthAxis", "ScaleFactor"},
	},
	sectionSegments: {
		keys:     []string{"NumSegments"},
		countKey: "NumSegments",
		width:    8,
		record:   (*marsState).segmentRecord,
		end:      (*marsState).linkSegments,
	},
	sectionModelPose: {
		keys:   []string{"Name"},
		width:  3,
		begin:  (*marsState).beginPose,
		key:    (*marsState).poseKey,
		record: (*marsState).poseRecord,
	},
	sectionPersonalInfo: {
		keys: []string{"Name", "Height", "Weight", "Age", "Gender", "Comment"},
	},
	sectionMassModel: {
		keys:   []string{"TotalMass"},
		width:  5,
		record: (*marsState).massRecord,
	},
}

// ParseMarkerSet reads a version 5 marker set document. file names the
// source in errors and logs. Any fatal condition returns a nil set.
func (p *Parser) ParseMarkerSet(r io.Reader, file string) (*core.MarkerSet, error) {
	st := &marsState{
		p:       p,
		file:    file,
		lines:   newLines(r),
		palette: newPalette(p.paletteSeed),
		seen:    make(map[string]int),
		ms: &core.MarkerSet{
			Properties: make(map[string]string),
			Options:    p.resolve,
		},
	}
	ms, err := st.parse()
	if err != nil {
		return nil, err
	}
	return ms, nil
}

type marsState struct {
	p       *Parser
	file    string
	lines   *lines
	palette *palette
	ms      *core.MarkerSet

	section string
	line    int
	records int
	seen    map[string]int
	version bool

	numPhysical int
	numVirtual  int
}

func (st *marsState) fail(kind core.ParseErrorKind, msg string, err error) error {
	return &core.ParseError{
		Kind:    kind,
		File:    st.file,
		Line:    st.line,
		Section: st.section,
		Msg:     msg,
		Err:     err,
	}
}

func (st *marsState) warn(msg string, args ...any) {
	args = append([]any{"file", st.file, "section", st.section, "line", st.line}, args...)
	st.p.warn(formatMARS, msg, args...)
}

func (st *marsState) parse() (*core.MarkerSet, error) {
	for {
		text, ok := st.lines.nextContent()
		if !ok {
			break
		}
		st.line = st.lines.line()

		name, ok := sectionName(text)
		if !ok {
			return nil, st.fail(core.ParseMalformedRecord, fmt.Sprintf("expected a section header, got %q", text), nil)
		}
		st.section = name

		sec, known := marsSections[name]
		if !known {
			return nil, st.fail(core.ParseUnknownSection, fmt.Sprintf("%q", name), nil)
		}
		if !st.version && name != sectionGeneral {
			return nil, st.fail(core.ParseFormatVersion, "document must start with [General Information]", nil)
		}

		if err := st.parseSection(sec); err != nil {
			return nil, err
		}
		if !st.version {
			return nil, st.fail(core.ParseFormatVersion, "no Version declared", nil)
		}
	}
	if err := st.lines.err(); err != nil {
		return nil, st.fail(core.ParseFileAccess, "read failed", err)
	}
	if !st.version {
		st.section = ""
		return nil, st.fail(core.ParseFormatVersion, "no [General Information] section", nil)
	}

	st.finish()
	return st.ms, nil
}

// sectionName extracts the name from a "[Name]" header line.
func sectionName(text string) (string, bool) {
	if len(text) < 2 || text[0] != '[' || text[len(text)-1] != ']' {
		return "", false
	}
	return strings.TrimSpace(text[1 : len(text)-1]), true
}

func (st *marsState) parseSection(sec marsSection) error {
	st.seen[st.section]++
	if st.seen[st.section] > 1 && st.section != sectionModelPose {
		st.warn("Duplicate marker set section")
	}
	st.records = 0
	if sec.begin != nil {
		sec.begin(st)
	}

	tabular := false
	for {
		text, ok := st.lines.peekContent()
		if !ok || strings.HasPrefix(text, "[") {
			break
		}
		st.lines.next()
		st.line = st.lines.line()

		if !tabular {
			if key, value, ok := util.CutKeyValue(text); ok {
				if err := st.setKey(sec, key, value); err != nil {
					return err
				}
				continue
			}
			// first line without '=' switches the rest of the body to records
			tabular = true
		}

		if sec.record == nil {
			return st.fail(core.ParseMalformedRecord, fmt.Sprintf("unexpected record %q", text), nil)
		}
		fields := util.SplitRecord(text, ",")
		if len(fields) != sec.width {
			return st.fail(core.ParseMalformedRecord, fmt.Sprintf("expected %d fields, got %d", sec.width, len(fields)), nil)
		}
		if err := sec.record(st, fields); err != nil {
			return err
		}
		st.records++
	}

	if sec.countKey != "" {
		st.checkCount(st.section+"."+sec.countKey, st.records)
	}
	if sec.end != nil {
		return sec.end(st)
	}
	return nil
}

func (st *marsState) setKey(sec marsSection, key, value string) error {
	if !slices.Contains(sec.keys, key) {
		st.warn("Unknown marker set variable", "key", key)
		return nil
	}
	value = util.Unquote(value)
	st.ms.Properties[st.section+"."+key] = value
	if sec.key != nil {
		return sec.key(st, key, value)
	}
	return nil
}

// checkCount warns when a declared count disagrees with what was read.
func (st *marsState) checkCount(property string, got int) {
	declared, ok := st.ms.Properties[property]
	if !ok || declared == "" {
		return
	}
	n, err := parseIntFromFloat(declared)
	if err != nil {
		st.warn("Invalid declared count", "key", property, "value", declared)
		return
	}
	if n != got {
		st.warn("Declared count does not match records", "key", property, "declared", n, "read", got)
	}
}

func (st *marsState) finish() {
	st.section = ""
	st.line = 0

	st.checkCount(sectionGeneral+".NumMarkers", st.numPhysical)
	st.checkCount(sectionGeneral+".NumVirtualMarkers", st.numVirtual)
	st.checkCount(sectionGeneral+".NumLinks", len(st.ms.Links))
	st.checkCount(sectionGeneral+".NumSegments", len(st.ms.Segments))

	for _, name := range requiredSections {
		if st.seen[name] == 0 {
			st.warn("Missing marker set section", "missing", name)
		}
	}

	st.p.logger.Debug("Parsed marker set",
		"file", st.file,
		"name", st.ms.Name,
		"markers", len(st.ms.Markers),
		"links", len(st.ms.Links),
		"segments", len(st.ms.Segments),
		"poses", len(st.ms.Poses),
		"paletteSize", st.palette.len())
}

// field helpers

func (st *marsState) intField(name, s string) (int, error) {
	v, err := parseIntFromFloat(s)
	if err != nil {
		return 0, st.fail(core.ParseMalformedRecord, fmt.Sprintf("field %s: %q", name, s), err)
	}
	return v, nil
}

// refField reads a 1-based marker or segment index and returns it 0-based.
// A 0 in the file means "none" and loads as core.NoMarker.
func (st *marsState) refField(name, s string) (int, error) {
	v, err := st.intField(name, s)
	if err != nil {
		return 0, err
	}
	if v < 0 {
		return 0, st.fail(core.ParseMalformedRecord, fmt.Sprintf("field %s: negative index %d", name, v), nil)
	}
	return v - 1, nil
}

func (st *marsState) floatField(name, s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, st.fail(core.ParseMalformedRecord, fmt.Sprintf("field %s: %q", name, s), err)
	}
	return v, nil
}

func (st *marsState) vecField(name string, fields []string) (r3.Vec, error) {
	var xyz [3]float64
	for i, s := range fields {
		v, err := st.floatField(fmt.Sprintf("%s[%d]", name, i), s)
		if err != nil {
			return r3.Vec{}, err
		}
		xyz[i] = v
	}
	return r3.Vec{X: xyz[0], Y: xyz[1], Z: xyz[2]}, nil
}

// colorField reads an empty value, a palette index or an "r g b" triple.
func (st *marsState) colorField(name, s string) (core.Color, error) {
	parts := strings.Fields(s)
	switch len(parts) {
	case 0:
		return 0, nil
	case 1:
		i, err := parseIntFromFloat(parts[0])
		if err != nil {
			return 0, st.fail(core.ParseMalformedRecord, fmt.Sprintf("field %s: %q", name, s), err)
		}
		c, err := st.palette.color(i)
		if err != nil {
			return 0, st.fail(core.ParseMalformedRecord, fmt.Sprintf("field %s", name), err)
		}
		return c, nil
	case 3:
		var rgb [3]uint8
		for i, part := range parts {
			v, err := strconv.ParseUint(part, 10, 8)
			if err != nil {
				return 0, st.fail(core.ParseMalformedRecord, fmt.Sprintf("field %s: %q", name, s), err)
			}
			rgb[i] = uint8(v)
		}
		return core.RGB(rgb[0], rgb[1], rgb[2]), nil
	}
	return 0, st.fail(core.ParseMalformedRecord, fmt.Sprintf("field %s: %q is neither a palette index nor an RGB triple", name, s), nil)
}

// section hooks

func (st *marsState) generalKey(key, value string) error {
	switch key {
	case "Version":
		if value != marsVersion {
			return st.fail(core.ParseFormatVersion, fmt.Sprintf("version %q, want %q", value, marsVersion), nil)
		}
		st.version = true
	case "Name":
		st.ms.Name = value
	}
	return nil
}

// markerRecord: id,name,color,physicalColor,size,optional
func (st *marsState) markerRecord(f []string) error {
	id, err := st.refField("id", f[0])
	if err != nil {
		return err
	}
	if id < 0 {
		return st.fail(core.ParseMalformedRecord, "marker id must be at least 1", nil)
	}
	color, err := st.colorField("color", f[2])
	if err != nil {
		return err
	}
	physical, err := st.colorField("physicalColor", f[3])
	if err != nil {
		return err
	}
	size, err := st.floatField("size", f[4])
	if err != nil {
		return err
	}
	optional, err := parseBool(f[5])
	if err != nil {
		return st.fail(core.ParseMalformedRecord, fmt.Sprintf("field optional: %q", f[5]), err)
	}

	m := core.NewPhysicalMarker(id, util.Unquote(f[1]))
	m.Color = color
	m.PhysicalColor = physical
	m.Size = size
	m.Optional = optional
	st.ms.Markers = append(st.ms.Markers, m)
	st.numPhysical++
	return nil
}

// virtualMarkerRecord: id,name,color,type,origin,longAxis,planeAxis,v0,v1,v2
func (st *marsState) virtualMarkerRecord(f []string) error {
	id, err := st.refField("id", f[0])
	if err != nil {
		return err
	}
	color, err := st.colorField("color", f[2])
	if err != nil {
		return err
	}
	typ, err := st.intField("type", f[3])
	if err != nil {
		return err
	}
	origin, err := st.refField("origin", f[4])
	if err != nil {
		return err
	}
	long, err := st.refField("longAxis", f[5])
	if err != nil {
		return err
	}
	plane, err := st.refField("planeAxis", f[6])
	if err != nil {
		return err
	}
	v, err := st.vecField("value", f[7:10])
	if err != nil {
		return err
	}

	var m core.Marker
	switch typ {
	case vmTwoPointsRatio:
		m = core.NewTwoPointsRatio(origin, long, v.X)
	case vmTwoPointsMeasured:
		m = core.NewTwoPointsMeasured(origin, long, plane, r3.Scale(millimetre, v))
	case vmThreePointsRatio:
		m = core.NewThreePointsRatio(origin, long, plane, [3]float64{v.X, v.Y, v.Z})
	case vmThreePointsMeasured:
		m = core.NewThreePointsMeasured(origin, long, plane, r3.Scale(millimetre, v))
	case vmOnePointMeasured:
		m = core.NewOnePointMeasured(origin, r3.Scale(millimetre, v))
	case vmEMR:
		return st.fail(core.ParseUnsupportedMarkerType, "EMR markers are not supported", nil)
	case vmRelativeToBone:
		return st.fail(core.ParseUnsupportedMarkerType, "relative-to-bone markers are not supported", nil)
	default:
		return st.fail(core.ParseUnsupportedMarkerType, fmt.Sprintf("type %d", typ), nil)
	}

	m.ID = id
	m.Name = util.Unquote(f[1])
	m.Color = color
	st.ms.Markers = append(st.ms.Markers, m)
	st.numVirtual++
	return nil
}

// linkRecord: name,marker1,marker2,color,minLength,maxLength,extraStretch
func (st *marsState) linkRecord(f []string) error {
	m1, err := st.refField("marker1", f[1])
	if err != nil {
		return err
	}
	m2, err := st.refField("marker2", f[2])
	if err != nil {
		return err
	}
	color, err := st.colorField("color", f[3])
	if err != nil {
		return err
	}
	minLength, err := st.floatField("minLength", f[4])
	if err != nil {
		return err
	}
	maxLength, err := st.floatField("maxLength", f[5])
	if err != nil {
		return err
	}
	stretch, err := st.floatField("extraStretch", f[6])
	if err != nil {
		return err
	}

	st.ms.Links = append(st.ms.Links, core.Link{
		Name:         util.Unquote(f[0]),
		Type:         core.LinkUnknown,
		Color:        color,
		Marker1:      m1,
		Marker2:      m2,
		MinLength:    minLength,
		MaxLength:    maxLength,
		ExtraStretch: stretch,
	})
	return nil
}

// segmentRecord: name,parent,origin,longAxis,planeAxis,roll,pitch,yaw
func (st *marsState) segmentRecord(f []string) error {
	parent, err := st.refField("parent", f[1])
	if err != nil {
		return err
	}
	origin, err := st.refField("origin", f[2])
	if err != nil {
		return err
	}
	long, err := st.refField("longAxis", f[3])
	if err != nil {
		return err
	}
	plane, err := st.refField("planeAxis", f[4])
	if err != nil {
		return err
	}
	rot, err := st.vecField("rotation", f[5:8])
	if err != nil {
		return err
	}

	st.ms.Segments = append(st.ms.Segments, core.Segment{
		Name:            util.Unquote(f[0]),
		Parent:          parent,
		OriginMarker:    origin,
		LongAxisMarker:  long,
		PlaneAxisMarker: plane,
		RotationOffset:  core.RotationOffset{Roll: rot.X, Pitch: rot.Y, Yaw: rot.Z},
	})
	return nil
}

// linkSegments checks parent indices and rebuilds the children lists.
func (st *marsState) linkSegments() error {
	segs := st.ms.Segments
	for i := range segs {
		segs[i].Children = nil
	}
	for i, s := range segs {
		if s.Parent == core.NoMarker {
			continue
		}
		if s.Parent < 0 || s.Parent >= len(segs) || s.Parent == i {
			return st.fail(core.ParseMalformedRecord, fmt.Sprintf("segment %q has invalid parent %d", s.Name, s.Parent+1), nil)
		}
		segs[s.Parent].Children = append(segs[s.Parent].Children, i)
	}
	return st.checkSegmentCycles()
}

// checkSegmentCycles walks every parent chain once; a chain that reaches a
// segment already on it is a cycle.
func (st *marsState) checkSegmentCycles() error {
	const (
		unseen = iota
		onPath
		done
	)
	segs := st.ms.Segments
	state := make([]uint8, len(segs))
	var path []int
	for i := range segs {
		path = path[:0]
		for j := i; j != core.NoMarker && state[j] != done; j = segs[j].Parent {
			if state[j] == onPath {
				return st.fail(core.ParseMalformedRecord, fmt.Sprintf("segment %q is its own ancestor", segs[j].Name), nil)
			}
			state[j] = onPath
			path = append(path, j)
		}
		for _, j := range path {
			state[j] = done
		}
	}
	return nil
}

func (st *marsState) beginPose() {
	st.ms.Poses = append(st.ms.Poses, core.Pose{Name: sectionModelPose})
}

func (st *marsState) poseKey(key, value string) error {
	if key == "Name" && value != "" {
		st.ms.Poses[len(st.ms.Poses)-1].Name = value
	}
	return nil
}

// poseRecord: x,y,z
func (st *marsState) poseRecord(f []string) error {
	v, err := st.vecField("position", f)
	if err != nil {
		return err
	}
	pose := &st.ms.Poses[len(st.ms.Poses)-1]
	pose.Positions = append(pose.Positions, v)
	return nil
}

// massRecord: segment,mass,comX,comY,comZ
func (st *marsState) massRecord(f []string) error {
	seg, err := st.refField("segment", f[0])
	if err != nil {
		return err
	}
	if seg < 0 || seg >= len(st.ms.Segments) {
		return st.fail(core.ParseMalformedRecord, fmt.Sprintf("unknown segment %d", seg+1), nil)
	}
	mass, err := st.floatField("mass", f[1])
	if err != nil {
		return err
	}
	com, err := st.vecField("centerOfMass", f[2:5])
	if err != nil {
		return err
	}
	st.ms.MassModel = append(st.ms.MassModel, core.MassSegment{Segment: seg, Mass: mass, CenterOfMass: com})
	return nil
}
