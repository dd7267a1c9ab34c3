package parser

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/libmocap/mocap/pkg/core"
)

const trcHeader = "PathFileType\t4\t(X/Y/Z)\tshort.trc\n" +
	"DataRate\tCameraRate\tNumFrames\tNumMarkers\tUnits\n" +
	"100\t100\t2\t2\tmm\n" +
	"Frame#\tTime\tA\t\t\tB\t\t\n" +
	"\t\tX1\tY1\tZ1\tX2\tY2\tZ2\n"

func parseTRC(t *testing.T, doc string) (*core.MarkerTrajectory, string, error) {
	t.Helper()
	p, logs := newTestParser()
	traj, err := p.ParseTrajectory(strings.NewReader(doc), "test.trc")
	return traj, logs.String(), err
}

func TestParseTrajectory_Human(t *testing.T) {
	p, _ := newTestParser()
	traj, err := p.LoadTrajectory("testdata/human.trc")
	require.NoError(t, err)

	assert.Equal(t, "human.trc", traj.Filename)
	assert.Equal(t, "4", traj.FormatVersion)
	assert.Equal(t, "(X/Y/Z)", traj.AxisOrder)
	assert.Equal(t, 100.0, traj.DataRate)
	assert.Equal(t, 100.0, traj.CameraRate)
	assert.Equal(t, 4, traj.NumFrames)
	assert.Equal(t, 10, traj.NumMarkers)
	assert.Equal(t, "mm", traj.Units)
	assert.Equal(t, 100.0, traj.OrigDataRate)
	assert.Equal(t, 1, traj.OrigDataStartFrame)
	assert.Equal(t, 4, traj.OrigNumFrames)
	assert.Equal(t, []string{"LFHD", "RFHD", "LBHD", "RBHD", "C7", "STRN", "LSHO", "RSHO", "LASI", "RASI"}, traj.Markers)

	require.Equal(t, 4, traj.FrameCount())
	for f, row := range traj.Positions {
		assert.Len(t, row, 31, "frame %d", f)
	}

	assert.Equal(t, 0.01, traj.Time(1))
	assert.Equal(t, []float64{100, 50, 1700}, traj.Positions[0][1:4])

	// frame 3 has LFHD occluded
	for i := 1; i <= 3; i++ {
		assert.True(t, math.IsNaN(traj.Positions[2][i]), "slot %d", i)
	}
	assert.Equal(t, -100.0, traj.Positions[2][4])
}

func TestParseTrajectory_BoxFillsMissingFrames(t *testing.T) {
	p, logs := newTestParser()
	traj, err := p.LoadTrajectory("testdata/box.trc")
	require.NoError(t, err)

	assert.Equal(t, "m", traj.Units)
	assert.Equal(t, 60.0, traj.DataRate)
	require.Equal(t, 3, traj.FrameCount())
	assert.Equal(t, []float64{0, 0, 0, 0, 1, 0, 0, 0, 1, 0}, traj.Positions[0])

	for i, v := range traj.Positions[1] {
		assert.True(t, math.IsNaN(v), "slot %d of the missing frame", i)
	}
	assert.Equal(t, 0.0333, traj.Time(2))
	assert.Contains(t, logs.String(), "filled with NaN")
}

func TestParseTrajectory_EmptyFieldIsNaNAbsentFieldIsZero(t *testing.T) {
	doc := trcHeader +
		"1\t0.00\t1\t\t3\t4\t5\t6\n" +
		"2\t0.01\t1\t2\t3\t4\n"

	traj, logs, err := parseTRC(t, doc)
	require.NoError(t, err)
	require.Equal(t, 2, traj.FrameCount())

	assert.True(t, math.IsNaN(traj.Positions[0][2]), "explicit empty field must be NaN")
	assert.Equal(t, 3.0, traj.Positions[0][3])

	assert.Len(t, traj.Positions[1], 7)
	assert.Equal(t, []float64{0.01, 1, 2, 3, 4, 0, 0}, traj.Positions[1], "absent trailing fields must be zero")
	assert.Contains(t, logs, "zero-filled")
}

func TestParseTrajectory_ExtraFieldsTruncated(t *testing.T) {
	doc := trcHeader +
		"1\t0.00\t1\t2\t3\t4\t5\t6\t7\t8\n" +
		"2\t0.01\t1\t2\t3\t4\t5\t6\t\t\n"

	traj, logs, err := parseTRC(t, doc)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1, 2, 3, 4, 5, 6}, traj.Positions[0])
	assert.Equal(t, []float64{0.01, 1, 2, 3, 4, 5, 6}, traj.Positions[1])
	assert.Contains(t, logs, `msg="Trajectory rows with extra fields were truncated" file=test.trc line=7 rows=1`)
}

func TestParseTrajectory_FramesBeyondDeclaredCount(t *testing.T) {
	doc := trcHeader +
		"1\t0.00\t1\t2\t3\t4\t5\t6\n" +
		"4\t0.03\t1\t2\t3\t4\t5\t6\n"

	traj, logs, err := parseTRC(t, doc)
	require.NoError(t, err)
	assert.Equal(t, 4, traj.FrameCount())
	assert.Equal(t, 4, traj.NumFrames)
	assert.True(t, math.IsNaN(traj.Positions[1][0]))
	assert.True(t, math.IsNaN(traj.Positions[2][6]))
	assert.Contains(t, logs, "past the declared frame count")
}

func TestParseTrajectory_CommaAndWhitespaceRows(t *testing.T) {
	header := "PathFileType 4 (X/Y/Z) c.trc\nNumMarkers Units\n1 m\nFrame# Time P\nX1 Y1 Z1\n"

	traj, _, err := parseTRC(t, header+"1,0.0,1,,3\n2 0.5 4 5 6\n")
	require.NoError(t, err)
	require.Equal(t, 2, traj.FrameCount())
	assert.True(t, math.IsNaN(traj.Positions[0][2]))
	assert.Equal(t, []float64{0.5, 4, 5, 6}, traj.Positions[1])
}

func TestParseTrajectory_MetadataMismatchPads(t *testing.T) {
	doc := "PathFileType\t4\t(X/Y/Z)\tm.trc\n" +
		"DataRate\tNumMarkers\tUnits\tExtra\n" +
		"50\t1\n" +
		"Frame#\tTime\tP\n" +
		"\t\tX1\tY1\tZ1\n" +
		"1\t0\t1\t2\t3\n"

	traj, logs, err := parseTRC(t, doc)
	require.NoError(t, err)
	assert.Equal(t, 50.0, traj.DataRate)
	assert.Equal(t, 1, traj.NumMarkers)
	assert.Equal(t, "", traj.Units)
	assert.Contains(t, logs, "Metadata header and value lines are inconsistent")
	assert.Contains(t, logs, "Unknown trajectory metadata")
}

func TestParseTrajectory_MarkerCountFromLabels(t *testing.T) {
	doc := "PathFileType\t4\t(X/Y/Z)\tl.trc\n" +
		"DataRate\tUnits\n" +
		"50\tmm\n" +
		"Frame#\tTime\tLeft Knee\t\t\tRight Knee\t\t\n" +
		"\t\tX1\tY1\tZ1\tX2\tY2\tZ2\n"

	traj, _, err := parseTRC(t, doc)
	require.NoError(t, err)
	assert.Equal(t, 2, traj.NumMarkers)
	assert.Equal(t, []string{"Left Knee", "Right Knee"}, traj.Markers)
	assert.Equal(t, 0, traj.FrameCount())
}

func TestParseTrajectory_FatalErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"empty file", ""},
		{"wrong file type", "PathType\t4\t(X/Y/Z)\tx.trc\n"},
		{"short first line", "PathFileType\t4\n"},
		{"missing metadata", "PathFileType\t4\t(X/Y/Z)\tx.trc\n"},
		{"bad metadata number", "PathFileType\t4\t(X/Y/Z)\tx.trc\nDataRate\nfast\nFrame#\tTime\n\n"},
		{"bad column header", "PathFileType\t4\t(X/Y/Z)\tx.trc\nUnits\nmm\nFrame\tTime\tA\n\n"},
		{"frame index zero", trcHeader + "0\t0\t1\t2\t3\t4\t5\t6\n"},
		{"frame index text", trcHeader + "one\t0\t1\t2\t3\t4\t5\t6\n"},
		{"bad coordinate", trcHeader + "1\t0\t1\tabc\t3\t4\t5\t6\n"},
		{"frame index far past declared count", trcHeader + "1\t0\t1\t2\t3\t4\t5\t6\n20000000\t0\t1\t2\t3\t4\t5\t6\n"},
		{"declared frame count without data", strings.Replace(trcHeader, "100\t100\t2\t2", "100\t100\t5000000\t2", 1)},
		{"declared frame count too large", strings.Replace(trcHeader, "100\t100\t2\t2", "100\t100\t900000000\t2", 1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			traj, _, err := parseTRC(t, tt.doc)
			require.Error(t, err)
			assert.ErrorIs(t, err, core.ErrMalformedRecord)
			assert.Nil(t, traj)
		})
	}
}

func TestParseTrajectory_NormalizeAfterLoad(t *testing.T) {
	p, _ := newTestParser()
	traj, err := p.LoadTrajectory("testdata/human.trc")
	require.NoError(t, err)

	require.NoError(t, traj.Normalize())
	assert.Equal(t, "m", traj.Units)
	assert.Equal(t, 0.01, traj.Time(1))
	assert.InDelta(t, 1.7, traj.Positions[0][3], 1e-12)
	assert.True(t, math.IsNaN(traj.Positions[2][1]))
}
