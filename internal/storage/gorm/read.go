package gormstorage

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/libmocap/mocap/internal/model"
	"github.com/libmocap/mocap/internal/model/convert"
	"github.com/libmocap/mocap/pkg/core"
)

// ErrRecordingNotFound is returned when no recording has the requested ID.
var ErrRecordingNotFound = errors.New("recording not found")

// StoredRecording is a recording read back with its sample count.
type StoredRecording struct {
	core.Recording
	Samples  int64
	Finished bool
}

// Recordings lists the stored recordings in ID order.
func Recordings(db *gorm.DB) ([]StoredRecording, error) {
	var rows []model.Recording
	if err := db.Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list recordings: %w", err)
	}
	out := make([]StoredRecording, 0, len(rows))
	for _, r := range rows {
		out = append(out, storedRecording(r))
	}
	return out, nil
}

// LoadRecording reads one recording and its samples, grouped by frame in
// frame order. Samples within a frame keep marker index order.
func LoadRecording(db *gorm.DB, id uint) (StoredRecording, []core.FrameSample, error) {
	var row model.Recording
	err := db.First(&row, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return StoredRecording{}, nil, fmt.Errorf("%w: %d", ErrRecordingNotFound, id)
	}
	if err != nil {
		return StoredRecording{}, nil, fmt.Errorf("failed to read recording %d: %w", id, err)
	}

	var samples []model.MarkerSample
	err = db.Where("recording_id = ?", id).Order("frame").Order("marker_index").Find(&samples).Error
	if err != nil {
		return StoredRecording{}, nil, fmt.Errorf("failed to read samples of recording %d: %w", id, err)
	}

	var frames []core.FrameSample
	for _, s := range samples {
		ms := convert.MarkerSampleToCore(s)
		if n := len(frames); n == 0 || frames[n-1].Frame != ms.Frame {
			frames = append(frames, core.FrameSample{Frame: ms.Frame, Time: ms.Time})
		}
		last := &frames[len(frames)-1]
		last.Markers = append(last.Markers, ms)
	}
	return storedRecording(row), frames, nil
}

func storedRecording(r model.Recording) StoredRecording {
	return StoredRecording{
		Recording: convert.RecordingToCore(r),
		Samples:   r.SampleCount,
		Finished:  r.EndTime.Valid,
	}
}
