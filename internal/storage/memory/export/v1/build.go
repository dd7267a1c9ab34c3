package v1

import (
	"math"
	"time"

	"github.com/libmocap/mocap/pkg/core"
)

// Build converts a finished recording into the v1 export structure.
func Build(rec core.Recording, defs []core.MarkerDefinition, frames []core.FrameSample) Export {
	export := Export{
		Version:    Version,
		Name:       rec.Name,
		Source:     rec.Source,
		MarkerSet:  rec.MarkerSet,
		DataRate:   rec.DataRate,
		Units:      rec.Units,
		StartTime:  rec.StartTime.UTC().Format(time.RFC3339Nano),
		Properties: rec.Properties,
		Markers:    make([]Marker, 0, len(defs)),
		Frames:     make([]Frame, 0, len(frames)),
	}

	for _, d := range defs {
		export.Markers = append(export.Markers, Marker{
			Index:   d.Index,
			ID:      d.ID,
			Name:    d.Name,
			Kind:    d.Kind.String(),
			Color:   d.Color.Hex(),
			Virtual: d.Virtual,
		})
	}

	for _, f := range frames {
		frame := Frame{
			Frame:   f.Frame,
			Samples: make([][]any, 0, len(f.Markers)),
		}
		if !math.IsNaN(f.Time) {
			t := f.Time
			frame.Time = &t
		}
		for _, s := range f.Markers {
			if s.Occluded {
				frame.Samples = append(frame.Samples, []any{s.Marker, nil})
				continue
			}
			frame.Samples = append(frame.Samples, []any{
				s.Marker,
				[]float64{s.Position.X, s.Position.Y, s.Position.Z},
			})
		}
		export.Frames = append(export.Frames, frame)
		if f.Frame > export.EndFrame {
			export.EndFrame = f.Frame
		}
	}

	return export
}
