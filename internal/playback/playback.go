// Package playback walks a trajectory frame by frame, resolves every marker
// of a marker set and hands the samples to a storage backend.
package playback

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/libmocap/mocap/internal/geo"
	"github.com/libmocap/mocap/internal/storage"
	"github.com/libmocap/mocap/pkg/core"
)

// Dependencies holds the collaborators of a Player.
type Dependencies struct {
	Logger  *slog.Logger
	Backend storage.Backend
}

// Job describes one playback.
type Job struct {
	Name       string
	Trajectory *core.MarkerTrajectory
	// MarkerSet is resolved against the trajectory. When nil a physical-only
	// set is built from the trajectory labels.
	MarkerSet *core.MarkerSet
	// ColorSet supplies colours for markers whose own colour is unset,
	// matched by name.
	ColorSet   *core.MarkerSet
	Properties map[string]string
}

// Result summarises a finished playback.
type Result struct {
	RecordingID      uint
	Frames           int
	Samples          int
	Occluded         int
	ResolutionErrors int
}

// Player resolves trajectories into storage samples.
type Player struct {
	logger  *slog.Logger
	backend storage.Backend

	samples          metric.Int64Counter
	suppressed       metric.Int64Counter
	resolutionErrors metric.Int64Counter
}

// New creates a Player.
// Uses the global OTel meter for metrics (no-op if not configured).
func New(deps Dependencies) (*Player, error) {
	if deps.Backend == nil {
		return nil, errors.New("playback needs a storage backend")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	p := &Player{logger: logger, backend: deps.Backend}

	m := meter()
	var err error

	p.samples, err = m.Int64Counter(
		"mocap.playback.samples",
		metric.WithDescription("Marker samples handed to storage"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating samples counter: %w", err)
	}

	p.suppressed, err = m.Int64Counter(
		"mocap.playback.suppressed",
		metric.WithDescription("Marker samples stored without coordinates"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating suppressed counter: %w", err)
	}

	p.resolutionErrors, err = m.Int64Counter(
		"mocap.playback.resolution_errors",
		metric.WithDescription("Markers skipped because they could not be resolved"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating resolution error counter: %w", err)
	}

	return p, nil
}

// Play records job into the backend. It stops between frames when ctx is
// cancelled and still ends the recording.
func (p *Player) Play(ctx context.Context, job Job) (Result, error) {
	if job.Trajectory == nil {
		return Result{}, errors.New("playback needs a trajectory")
	}
	traj := job.Trajectory
	ms := job.MarkerSet
	if ms == nil {
		ms = core.MarkerSetFromTrajectory(traj)
	}

	defs := core.DefinitionsFromSet(ms)
	colors := make(map[int]core.Color, len(defs))
	for i := range defs {
		defs[i].Color = p.color(ms.Markers[defs[i].Index], job.ColorSet)
		colors[defs[i].Index] = defs[i].Color
	}

	rec := &core.Recording{
		Name:         job.Name,
		Source:       traj.Filename,
		DataRate:     traj.DataRate,
		Units:        traj.Units,
		NumFrames:    traj.FrameCount(),
		MarkerLabels: append([]string(nil), traj.Markers...),
		Properties:   job.Properties,
	}
	if job.MarkerSet != nil {
		rec.MarkerSet = ms.Name
	}
	if err := p.backend.StartRecording(rec, defs); err != nil {
		return Result{}, fmt.Errorf("starting recording: %w", err)
	}

	res := Result{RecordingID: rec.ID}
	recAttr := metric.WithAttributes(attribute.String("recording", rec.Name))
	var playErr error

	for f := 0; f < traj.FrameCount(); f++ {
		if err := ctx.Err(); err != nil {
			playErr = err
			break
		}

		frame, errs := p.resolveFrame(ms, traj, f, defs, colors)
		for _, err := range errs {
			p.logger.Warn("Marker could not be resolved", "recording", rec.Name, "frame", f, "error", err)
		}
		res.ResolutionErrors += len(errs)
		p.resolutionErrors.Add(ctx, int64(len(errs)), recAttr)

		if err := p.backend.RecordFrame(&frame); err != nil {
			playErr = fmt.Errorf("recording frame %d: %w", f, err)
			break
		}

		occluded := len(frame.Markers) - len(frame.Visible())
		res.Frames++
		res.Samples += len(frame.Markers)
		res.Occluded += occluded
		p.samples.Add(ctx, int64(len(frame.Markers)), recAttr)
		p.suppressed.Add(ctx, int64(occluded), recAttr)
	}

	if err := p.backend.EndRecording(); err != nil {
		playErr = errors.Join(playErr, fmt.Errorf("ending recording: %w", err))
	}

	p.logger.Info("Playback finished",
		"recording", rec.Name,
		"frames", res.Frames,
		"samples", res.Samples,
		"occluded", res.Occluded,
		"resolutionErrors", res.ResolutionErrors,
	)
	return res, playErr
}

// resolveFrame resolves every defined marker at frame f. Markers that fail
// are left out of the frame and reported.
func (p *Player) resolveFrame(ms *core.MarkerSet, traj *core.MarkerTrajectory, f int, defs []core.MarkerDefinition, colors map[int]core.Color) (core.FrameSample, []error) {
	frame := core.FrameSample{
		Frame:   f,
		Time:    traj.Time(f),
		Markers: make([]core.MarkerSample, 0, len(defs)),
	}
	var errs []error

	for _, d := range defs {
		pos, err := ms.Position(traj, d.Index, f)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		frame.Markers = append(frame.Markers, core.MarkerSample{
			Frame:    f,
			Time:     frame.Time,
			Marker:   d.Index,
			Name:     d.Name,
			Color:    colors[d.Index],
			Position: pos,
			Occluded: geo.HasNaN(pos),
		})
	}
	return frame, errs
}

// color returns the marker's own colour, or the colour of the marker with
// the same name in fallback.
func (p *Player) color(m core.Marker, fallback *core.MarkerSet) core.Color {
	if m.Color != 0 || fallback == nil {
		return m.Color
	}
	match, err := fallback.MarkerByName(m.Name)
	if err != nil {
		return m.Color
	}
	return match.Color
}
