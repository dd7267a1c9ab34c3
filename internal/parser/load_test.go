package parser

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/libmocap/mocap/pkg/core"
)

func TestCanLoad(t *testing.T) {
	tests := []struct {
		path      string
		markerSet bool
		traj      bool
	}{
		{"human.mars", true, false},
		{"HUMAN.MARS", true, false},
		{"walk.trc", false, true},
		{"/data/Walk.Trc", false, true},
		{"walk.c3d", false, false},
		{"mars", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.markerSet, CanLoadMarkerSet(tt.path))
			assert.Equal(t, tt.traj, CanLoadTrajectory(tt.path))
		})
	}
}

func TestLoad_UnsupportedExtension(t *testing.T) {
	p, _ := newTestParser()

	ms, err := p.LoadMarkerSet("testdata/human.trc")
	assert.ErrorIs(t, err, core.ErrUnsupportedFormat)
	assert.Nil(t, ms)

	traj, err := p.LoadTrajectory("testdata/human.mars")
	assert.ErrorIs(t, err, core.ErrUnsupportedFormat)
	assert.Nil(t, traj)
}

func TestLoad_MissingFile(t *testing.T) {
	p, _ := newTestParser()

	_, err := p.LoadMarkerSet(filepath.Join(t.TempDir(), "absent.mars"))
	assert.ErrorIs(t, err, core.ErrFileAccess)
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = p.LoadTrajectory(filepath.Join(t.TempDir(), "absent.trc"))
	assert.ErrorIs(t, err, core.ErrFileAccess)
}

func TestLoad_UpperCaseExtension(t *testing.T) {
	src, err := os.ReadFile("testdata/box.mars")
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "BOX.MARS")
	require.NoError(t, os.WriteFile(path, src, 0o644))

	p, _ := newTestParser()
	ms, err := p.LoadMarkerSet(path)
	require.NoError(t, err)
	assert.Equal(t, "Box", ms.Name)
}

// Loads both fixtures and resolves derived markers end to end.
func TestLoad_ResolveHuman(t *testing.T) {
	p, _ := newTestParser()
	ms, err := p.LoadMarkerSet("testdata/human.mars")
	require.NoError(t, err)
	traj, err := p.LoadTrajectory("testdata/human.trc")
	require.NoError(t, err)
	require.NoError(t, traj.Normalize())

	position := func(name string, frame int) r3.Vec {
		t.Helper()
		m, err := ms.MarkerByName(name)
		require.NoError(t, err)
		pos, err := m.Resolve(ms, traj, frame)
		require.NoError(t, err)
		return pos
	}

	assertVec(t, r3.Vec{X: 0.1, Y: 0.05, Z: 1.7}, position("LFHD", 0))
	assertVec(t, r3.Vec{X: 0, Y: 0.05, Z: 1.7}, position("HeadFront", 0))
	assertVec(t, r3.Vec{X: 0.1, Y: 0.05, Z: 1.8}, position("HeadTop", 0))
	assertVec(t, r3.Vec{X: 0.07, Y: 0.08, Z: 0.98}, position("Pelvis", 0))

	for _, name := range []string{"Neck", "ShoulderMid"} {
		pos := position(name, 1)
		assert.False(t, math.IsNaN(pos.X) || math.IsNaN(pos.Y) || math.IsNaN(pos.Z), name)
	}

	// LFHD is occluded in the third frame
	for _, name := range []string{"LFHD", "HeadFront", "HeadTop"} {
		pos := position(name, 2)
		assert.True(t, math.IsNaN(pos.X) || math.IsNaN(pos.Y) || math.IsNaN(pos.Z), name)
	}

	m, err := ms.MarkerByName("HeadTop")
	require.NoError(t, err)
	_, err = m.Resolve(ms, traj, -1)
	assert.ErrorIs(t, err, core.ErrResolutionPrecondition)
	_, err = m.Resolve(ms, traj, traj.FrameCount())
	assert.ErrorIs(t, err, core.ErrResolutionPrecondition)
}

func TestLoad_ResolveBox(t *testing.T) {
	p, _ := newTestParser()
	ms, err := p.LoadMarkerSet("testdata/box.mars")
	require.NoError(t, err)
	traj, err := p.LoadTrajectory("testdata/box.trc")
	require.NoError(t, err)
	require.NoError(t, traj.Normalize())

	i, err := ms.MarkerIndex("Center")
	require.NoError(t, err)

	pos, err := ms.Position(traj, i, 0)
	require.NoError(t, err)
	assert.Equal(t, r3.Vec{X: 0.5}, pos)

	pos, err = ms.Position(traj, i, 1)
	require.NoError(t, err)
	assert.True(t, math.IsNaN(pos.X))
}
