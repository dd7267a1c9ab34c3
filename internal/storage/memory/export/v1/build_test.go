package v1

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/libmocap/mocap/pkg/core"
)

func TestBuild(t *testing.T) {
	rec := core.Recording{
		Name:       "walk",
		Source:     "walk.trc",
		MarkerSet:  "Human",
		DataRate:   100,
		Units:      "m",
		StartTime:  time.Date(2024, 5, 1, 12, 0, 0, 0, time.FixedZone("CEST", 7200)),
		Properties: map[string]string{"subject": "s01"},
	}
	defs := []core.MarkerDefinition{
		{Index: 0, ID: 1, Name: "LFHD", Kind: core.KindPhysical, Color: core.Color(0xff0000ff)},
		{Index: 2, ID: 3, Name: "HeadTop", Kind: core.KindThreePointsMeasured, Color: core.Color(0x00ff00ff), Virtual: true},
	}
	frames := []core.FrameSample{
		{Frame: 0, Time: 0, Markers: []core.MarkerSample{
			{Marker: 0, Position: r3.Vec{X: 1, Y: 2, Z: 3}},
			{Marker: 2, Position: r3.Vec{X: math.NaN()}, Occluded: true},
		}},
		{Frame: 1, Time: 0.01},
		{Frame: 2, Time: math.NaN(), Markers: []core.MarkerSample{
			{Marker: 0, Position: r3.Vec{X: math.NaN(), Y: math.NaN(), Z: math.NaN()}, Occluded: true},
		}},
	}

	export := Build(rec, defs, frames)

	assert.Equal(t, Version, export.Version)
	assert.Equal(t, "2024-05-01T10:00:00Z", export.StartTime)
	assert.Equal(t, 2, export.EndFrame)
	require.Len(t, export.Markers, 2)
	assert.Equal(t, Marker{Index: 2, ID: 3, Name: "HeadTop", Kind: core.KindThreePointsMeasured.String(), Color: "#00FF00FF", Virtual: true}, export.Markers[1])

	require.Len(t, export.Frames, 3)
	assert.Equal(t, []any{0, []float64{1, 2, 3}}, export.Frames[0].Samples[0])
	assert.Equal(t, []any{2, nil}, export.Frames[0].Samples[1])
	assert.Empty(t, export.Frames[1].Samples)
	require.NotNil(t, export.Frames[0].Time)
	assert.Equal(t, 0.0, *export.Frames[0].Time)
	assert.Nil(t, export.Frames[2].Time, "unrecorded frame time")

	// neither occluded samples nor unrecorded frames may leak NaN into the encoder
	data, err := json.Marshal(export)
	require.NoError(t, err)
	assert.Contains(t, string(data), `{"frame":2,"time":null,"samples":[[0,null]]}`)
}
