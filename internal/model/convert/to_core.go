package convert

import (
	"database/sql"
	"encoding/json"
	"math"

	"github.com/libmocap/mocap/internal/geo"
	"github.com/libmocap/mocap/internal/model"
	"github.com/libmocap/mocap/pkg/core"
)

// RecordingToCore converts a GORM Recording back to a core.Recording.
// Malformed JSON columns leave the matching field empty.
func RecordingToCore(r model.Recording) core.Recording {
	var labels []string
	if len(r.MarkerLabels) > 0 {
		_ = json.Unmarshal(r.MarkerLabels, &labels)
	}
	var props map[string]string
	if len(r.Properties) > 0 {
		_ = json.Unmarshal(r.Properties, &props)
	}

	return core.Recording{
		ID:           r.ID,
		Name:         r.Name,
		Source:       r.Source,
		MarkerSet:    r.MarkerSet,
		DataRate:     r.DataRate,
		Units:        r.Units,
		NumFrames:    r.NumFrames,
		MarkerLabels: labels,
		StartTime:    r.StartTime,
		Properties:   props,
	}
}

// MarkerSampleToCore converts a stored sample. Colour is not stored per
// sample and is left zero.
func MarkerSampleToCore(s model.MarkerSample) core.MarkerSample {
	return core.MarkerSample{
		Frame:    s.Frame,
		Time:     seconds(s.Time),
		Marker:   s.MarkerIndex,
		Name:     s.Name,
		Position: geo.VecFromPoint(s.Position),
		Occluded: s.Occluded,
	}
}

func seconds(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}
