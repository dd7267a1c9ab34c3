package mocap

import (
	"math"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/libmocap/mocap/pkg/core"
)

var testdata = filepath.Join("..", "..", "internal", "parser", "testdata")

func TestFactories_CanLoad(t *testing.T) {
	ms := NewMarkerSetFactory(Options{})
	tf := NewMarkerTrajectoryFactory(Options{})

	assert.True(t, ms.CanLoad("a.mars"))
	assert.False(t, ms.CanLoad("a.trc"))
	assert.True(t, tf.CanLoad("a.TRC"))
	assert.False(t, tf.CanLoad("a.mars"))
	assert.False(t, CanLoadMarkerSet("a.c3d"))
	assert.False(t, CanLoadTrajectory("a.c3d"))
}

func TestFactories_LoadAndResolve(t *testing.T) {
	ms, err := NewMarkerSetFactory(Options{}).Load(filepath.Join(testdata, "box.mars"))
	require.NoError(t, err)
	traj, err := NewMarkerTrajectoryFactory(Options{}).Load(filepath.Join(testdata, "box.trc"))
	require.NoError(t, err)
	require.NoError(t, traj.Normalize())

	i, err := ms.MarkerIndex("Center")
	require.NoError(t, err)
	pos, err := ms.Position(traj, i, 0)
	require.NoError(t, err)
	assert.Equal(t, r3.Vec{X: 0.5}, pos)
}

func TestFactories_LoadErrors(t *testing.T) {
	ms, err := NewMarkerSetFactory(Options{}).Load(filepath.Join(testdata, "box.trc"))
	assert.Nil(t, ms)
	assert.ErrorIs(t, err, core.ErrUnsupportedFormat)

	var pe *core.ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, core.ParseUnsupportedFormat, pe.Kind)

	traj, err := NewMarkerTrajectoryFactory(Options{}).Load(filepath.Join(t.TempDir(), "gone.trc"))
	assert.Nil(t, traj)
	assert.ErrorIs(t, err, core.ErrFileAccess)
}

func TestMarkerSetFactory_ResolveOptions(t *testing.T) {
	f := NewMarkerSetFactory(Options{Resolve: core.ResolveOptions{MaxDepth: 3, ThreePointsRatioSign: core.SignPlus}})
	ms, err := f.Load(filepath.Join(testdata, "box.mars"))
	require.NoError(t, err)
	assert.Equal(t, 3, ms.Options.MaxDepth)
	assert.Equal(t, core.SignPlus, ms.Options.ThreePointsRatioSign)
}

func TestMarkerTrajectoryFactory_Parse(t *testing.T) {
	doc := "PathFileType\t4\t(X/Y/Z)\tp.trc\n" +
		"DataRate\tNumFrames\tNumMarkers\tUnits\n" +
		"10\t1\t1\tm\n" +
		"Frame#\tTime\tP\n" +
		"\t\tX1\tY1\tZ1\n" +
		"1\t0\t\t2\t3\n"

	traj, err := NewMarkerTrajectoryFactory(Options{}).Parse(strings.NewReader(doc), "p.trc")
	require.NoError(t, err)
	require.Equal(t, 1, traj.FrameCount())
	assert.True(t, math.IsNaN(traj.Positions[0][1]))

	ms := core.MarkerSetFromTrajectory(traj)
	pos, err := ms.Position(traj, 0, 0)
	require.NoError(t, err)
	assert.True(t, math.IsNaN(pos.X))
	assert.Equal(t, 2.0, pos.Y)
}
