package parser

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/libmocap/mocap/internal/util"
	"github.com/libmocap/mocap/pkg/core"
)

const (
	formatTRC = "trc"

	trcFileType = "PathFileType"

	// frames a row may skip past both the declared count and the data read so far
	maxFrameGap = 1 << 16
	// stored coordinates per trajectory, 1 GiB of float64
	maxTrajectoryValues = 1 << 27
)

// trcField assigns one header metadata value.
type trcField func(t *core.MarkerTrajectory, value string) error

func floatSetter(dst func(*core.MarkerTrajectory) *float64) trcField {
	return func(t *core.MarkerTrajectory, value string) error {
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		*dst(t) = v
		return nil
	}
}

func intSetter(dst func(*core.MarkerTrajectory) *int) trcField {
	return func(t *core.MarkerTrajectory, value string) error {
		v, err := parseIntFromFloat(value)
		if err != nil {
			return err
		}
		*dst(t) = v
		return nil
	}
}

var trcHeaderFields = map[string]trcField{
	"DataRate":           floatSetter(func(t *core.MarkerTrajectory) *float64 { return &t.DataRate }),
	"CameraRate":         floatSetter(func(t *core.MarkerTrajectory) *float64 { return &t.CameraRate }),
	"NumFrames":          intSetter(func(t *core.MarkerTrajectory) *int { return &t.NumFrames }),
	"NumMarkers":         intSetter(func(t *core.MarkerTrajectory) *int { return &t.NumMarkers }),
	"OrigDataRate":       floatSetter(func(t *core.MarkerTrajectory) *float64 { return &t.OrigDataRate }),
	"OrigDataStartFrame": intSetter(func(t *core.MarkerTrajectory) *int { return &t.OrigDataStartFrame }),
	"OrigNumFrames":      intSetter(func(t *core.MarkerTrajectory) *int { return &t.OrigNumFrames }),
	"Units": func(t *core.MarkerTrajectory, value string) error {
		t.Units = value
		return nil
	},
}

// ParseTrajectory reads a TRC document. file names the source in errors and
// logs. Any fatal condition returns a nil trajectory.
func (p *Parser) ParseTrajectory(r io.Reader, file string) (*core.MarkerTrajectory, error) {
	st := &trcState{
		p:     p,
		file:  file,
		lines: newLines(r),
		traj:  &core.MarkerTrajectory{},
	}
	if err := st.parseHeader(); err != nil {
		return nil, err
	}
	if err := st.parseData(); err != nil {
		return nil, err
	}
	if err := st.lines.err(); err != nil {
		return nil, st.fail(core.ParseFileAccess, "read failed", err)
	}
	if err := st.fillMissing(); err != nil {
		return nil, err
	}
	return st.traj, nil
}

type trcState struct {
	p     *Parser
	file  string
	lines *lines
	traj  *core.MarkerTrajectory
	line  int

	written []bool
}

func (st *trcState) fail(kind core.ParseErrorKind, msg string, err error) error {
	return &core.ParseError{Kind: kind, File: st.file, Line: st.line, Msg: msg, Err: err}
}

func (st *trcState) warn(msg string, args ...any) {
	args = append([]any{"file", st.file, "line", st.line}, args...)
	st.p.warn(formatTRC, msg, args...)
}

func (st *trcState) nextLine(what string) (string, error) {
	text, ok := st.lines.next()
	st.line = st.lines.line()
	if !ok {
		if err := st.lines.err(); err != nil {
			return "", st.fail(core.ParseFileAccess, "read failed", err)
		}
		st.line++
		return "", st.fail(core.ParseMalformedRecord, "missing "+what, nil)
	}
	return text, nil
}

// headerTokens splits a header line on tabs when present, dropping empty
// cells, so labels containing spaces survive. Other lines split on whitespace.
func headerTokens(line string) []string {
	if !strings.ContainsRune(line, '\t') {
		return strings.Fields(line)
	}
	var out []string
	for _, cell := range strings.Split(line, "\t") {
		if cell = strings.TrimSpace(cell); cell != "" {
			out = append(out, cell)
		}
	}
	return out
}

func (st *trcState) parseHeader() error {
	text, err := st.nextLine("file type line")
	if err != nil {
		return err
	}
	tokens := headerTokens(text)
	if len(tokens) < 4 || tokens[0] != trcFileType {
		return st.fail(core.ParseMalformedRecord, fmt.Sprintf("expected %q header with 4 tokens, got %q", trcFileType, text), nil)
	}
	st.traj.FormatVersion = tokens[1]
	st.traj.AxisOrder = tokens[2]
	st.traj.Filename = util.TrimQuotes(strings.Join(tokens[3:], " "))

	text, err = st.nextLine("metadata keys")
	if err != nil {
		return err
	}
	keys := headerTokens(text)

	text, err = st.nextLine("metadata values")
	if err != nil {
		return err
	}
	values := headerTokens(text)

	if len(keys) != len(values) {
		st.warn("Metadata header and value lines are inconsistent", "keys", len(keys), "values", len(values))
		for len(values) < len(keys) {
			values = append(values, "")
		}
	}

	for i, key := range keys {
		set, ok := trcHeaderFields[key]
		if !ok {
			st.warn("Unknown trajectory metadata", "key", key)
			continue
		}
		if values[i] == "" {
			continue
		}
		if err := set(st.traj, values[i]); err != nil {
			return st.fail(core.ParseMalformedRecord, fmt.Sprintf("metadata %s: %q", key, values[i]), err)
		}
	}

	text, err = st.nextLine("column header")
	if err != nil {
		return err
	}
	columns := headerTokens(text)
	if len(columns) < 2 || columns[0] != "Frame#" || columns[1] != "Time" {
		return st.fail(core.ParseMalformedRecord, fmt.Sprintf("column header must start with Frame# and Time, got %q", text), nil)
	}
	st.traj.Markers = columns[2:]

	switch {
	case st.traj.NumMarkers == 0:
		st.traj.NumMarkers = len(st.traj.Markers)
	case st.traj.NumMarkers != len(st.traj.Markers):
		st.warn("Declared marker count does not match labels", "declared", st.traj.NumMarkers, "labels", len(st.traj.Markers))
	}
	if st.traj.NumMarkers < 0 || st.traj.NumFrames < 0 {
		return st.fail(core.ParseMalformedRecord, "negative frame or marker count", nil)
	}
	if st.traj.NumFrames > maxTrajectoryValues/max(st.traj.RowWidth(), 1) {
		return st.fail(core.ParseMalformedRecord, fmt.Sprintf("declared frame count %d is too large", st.traj.NumFrames), nil)
	}

	// coordinate sub-header (X1 Y1 Z1 ...), not needed
	st.lines.next()
	st.line = st.lines.line()
	return nil
}

func (st *trcState) parseData() error {
	width := st.traj.RowWidth()
	st.traj.Positions = make([][]float64, 0, min(st.traj.NumFrames, maxFrameGap))

	var short, extra, beyond int
	for {
		text, ok := st.lines.next()
		if !ok {
			break
		}
		st.line = st.lines.line()
		if strings.TrimSpace(text) == "" {
			continue
		}

		fields := util.SplitDelimited(text)
		frame, err := parseIntFromFloat(strings.TrimSpace(fields[0]))
		if err != nil {
			return st.fail(core.ParseMalformedRecord, fmt.Sprintf("frame index %q", fields[0]), err)
		}
		if frame < 1 {
			return st.fail(core.ParseMalformedRecord, fmt.Sprintf("frame index %d, must be at least 1", frame), nil)
		}

		raw := fields[1:]
		if len(raw) > width {
			if !allEmpty(raw[width:]) {
				extra++
				st.p.logger.Debug("Extra trajectory fields truncated", "file", st.file, "line", st.line, "fields", len(raw), "expected", width)
			}
			raw = raw[:width]
		}

		row := make([]float64, width)
		for i, s := range raw {
			s = strings.TrimSpace(s)
			if s == "" {
				row[i] = math.NaN()
				continue
			}
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return st.fail(core.ParseMalformedRecord, fmt.Sprintf("column %d: %q", i+2, s), err)
			}
			row[i] = v
		}
		if len(raw) < width {
			// absent trailing fields stay zero
			short++
			st.p.logger.Debug("Short trajectory row zero-filled", "file", st.file, "line", st.line, "fields", len(raw), "expected", width)
		}

		idx := frame - 1
		if idx >= max(st.traj.NumFrames, len(st.traj.Positions))+maxFrameGap {
			return st.fail(core.ParseMalformedRecord, fmt.Sprintf("frame index %d is far past the declared count %d", frame, st.traj.NumFrames), nil)
		}
		if idx >= maxTrajectoryValues/max(width, 1) {
			return st.fail(core.ParseMalformedRecord, fmt.Sprintf("frame index %d is too large", frame), nil)
		}
		if st.traj.NumFrames > 0 && idx >= st.traj.NumFrames {
			beyond++
		}
		st.store(idx, row)
	}

	if short > 0 {
		st.warn("Trajectory rows with missing trailing fields were zero-filled", "rows", short)
	}
	if extra > 0 {
		st.warn("Trajectory rows with extra fields were truncated", "rows", extra)
	}
	if beyond > 0 {
		st.warn("Trajectory holds frames past the declared frame count", "declared", st.traj.NumFrames, "rows", beyond)
	}
	return nil
}

func (st *trcState) store(idx int, row []float64) {
	for len(st.traj.Positions) <= idx {
		st.traj.Positions = append(st.traj.Positions, nil)
		st.written = append(st.written, false)
	}
	if st.written[idx] {
		st.warn("Duplicate trajectory frame overwritten", "frame", idx+1)
	}
	st.traj.Positions[idx] = row
	st.written[idx] = true
}

// fillMissing NaN-fills frames that were declared or skipped but never
// written, so every row has the full width.
func (st *trcState) fillMissing() error {
	if st.traj.NumFrames-len(st.traj.Positions) > maxFrameGap {
		return st.fail(core.ParseMalformedRecord, fmt.Sprintf("declared %d frames, data holds %d", st.traj.NumFrames, len(st.traj.Positions)), nil)
	}
	for len(st.traj.Positions) < st.traj.NumFrames {
		st.traj.Positions = append(st.traj.Positions, nil)
		st.written = append(st.written, false)
	}

	width := st.traj.RowWidth()
	missing := 0
	for f, row := range st.traj.Positions {
		if row != nil {
			continue
		}
		row = make([]float64, width)
		for i := range row {
			row[i] = math.NaN()
		}
		st.traj.Positions[f] = row
		missing++
	}
	if missing > 0 {
		st.line = 0
		st.warn("Trajectory frames missing from the data were filled with NaN", "frames", missing)
	}
	st.traj.NumFrames = len(st.traj.Positions)

	st.p.logger.Debug("Parsed trajectory",
		"file", st.file,
		"frames", st.traj.NumFrames,
		"markers", st.traj.NumMarkers,
		"units", st.traj.Units)
	return nil
}

func allEmpty(fields []string) bool {
	for _, f := range fields {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
