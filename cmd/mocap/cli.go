package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/libmocap/mocap/internal/config"
	"github.com/libmocap/mocap/internal/geo"
	"github.com/libmocap/mocap/internal/playback"
	"github.com/libmocap/mocap/internal/storage"
	"github.com/libmocap/mocap/pkg/core"
	"github.com/libmocap/mocap/pkg/mocap"
)

const usage = `usage:
  mocap info <file>...
  mocap resolve <trc> <mars> <marker> <frame>
  mocap export <trc> [mars]
  mocap show <sqlite-db> [recording-id]`

var errUsage = errors.New(usage)

func (a *app) run(ctx context.Context, args []string, out io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}

	a.command = strings.ToLower(args[0])
	switch a.command {
	case "info":
		if len(args) < 2 {
			return fmt.Errorf("no files provided\n%w", errUsage)
		}
		return a.info(args[1:], out)
	case "resolve":
		if len(args) != 5 {
			return errUsage
		}
		return a.resolve(args[1], args[2], args[3], args[4], out)
	case "export":
		if len(args) < 2 || len(args) > 3 {
			return errUsage
		}
		mars := ""
		if len(args) == 3 {
			mars = args[2]
		}
		return a.export(ctx, args[1], mars, out)
	case "show":
		if len(args) < 2 || len(args) > 3 {
			return errUsage
		}
		id := ""
		if len(args) == 3 {
			id = args[2]
		}
		return a.show(args[1], id, out)
	default:
		return fmt.Errorf("unknown command %q\n%w", args[0], errUsage)
	}
}

// options builds loader options from the resolver and palette config.
func (a *app) options() (mocap.Options, error) {
	resolve, err := config.GetResolverConfig().Options()
	if err != nil {
		return mocap.Options{}, err
	}
	return mocap.Options{
		Logger:      a.logger,
		PaletteSeed: config.GetPaletteConfig().Seed,
		Resolve:     resolve,
	}, nil
}

func (a *app) loadMarkerSet(path string) (*core.MarkerSet, error) {
	opts, err := a.options()
	if err != nil {
		return nil, err
	}
	return mocap.NewMarkerSetFactory(opts).Load(path)
}

// loadTrajectory loads and normalizes a trajectory to metres.
func (a *app) loadTrajectory(path string) (*core.MarkerTrajectory, error) {
	opts, err := a.options()
	if err != nil {
		return nil, err
	}
	traj, err := mocap.NewMarkerTrajectoryFactory(opts).Load(path)
	if err != nil {
		return nil, err
	}
	if err := traj.Normalize(); err != nil {
		return nil, fmt.Errorf("normalizing %s: %w", path, err)
	}
	return traj, nil
}

func (a *app) info(paths []string, out io.Writer) error {
	var errs []error
	for _, path := range paths {
		var err error
		switch {
		case mocap.CanLoadMarkerSet(path):
			err = a.markerSetInfo(path, out)
		case mocap.CanLoadTrajectory(path):
			err = a.trajectoryInfo(path, out)
		default:
			err = fmt.Errorf("%s: %w", path, core.ErrUnsupportedFormat)
		}
		if err != nil {
			fmt.Fprintf(out, "%s: %v\n", path, err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (a *app) markerSetInfo(path string, out io.Writer) error {
	ms, err := a.loadMarkerSet(path)
	if err != nil {
		return err
	}

	physical, virtual := 0, 0
	for _, m := range ms.Markers {
		switch {
		case m.Kind == core.KindNone:
		case m.IsVirtual():
			virtual++
		default:
			physical++
		}
	}

	fmt.Fprintf(out, "%s: marker set %q\n", path, ms.Name)
	fmt.Fprintf(out, "  markers:  %d physical, %d virtual\n", physical, virtual)
	fmt.Fprintf(out, "  links:    %d\n", len(ms.Links))
	fmt.Fprintf(out, "  segments: %d (%d roots)\n", len(ms.Segments), len(ms.SegmentRoots()))
	fmt.Fprintf(out, "  poses:    %d\n", len(ms.Poses))
	if err := ms.Validate(); err != nil {
		fmt.Fprintf(out, "  invalid:  %v\n", err)
	}
	return nil
}

func (a *app) trajectoryInfo(path string, out io.Writer) error {
	opts, err := a.options()
	if err != nil {
		return err
	}
	traj, err := mocap.NewMarkerTrajectoryFactory(opts).Load(path)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "%s: trajectory %q\n", path, traj.Filename)
	fmt.Fprintf(out, "  frames:   %d at %g Hz\n", traj.FrameCount(), traj.DataRate)
	fmt.Fprintf(out, "  markers:  %d\n", traj.NumMarkers)
	fmt.Fprintf(out, "  units:    %s\n", traj.Units)
	if n := traj.FrameCount(); n > 0 {
		fmt.Fprintf(out, "  duration: %gs\n", traj.Time(n-1)-traj.Time(0))
	}
	return nil
}

func (a *app) resolve(trcPath, marsPath, marker, frameArg string, out io.Writer) error {
	frame, err := strconv.Atoi(frameArg)
	if err != nil {
		return fmt.Errorf("frame %q is not an integer", frameArg)
	}

	ms, err := a.loadMarkerSet(marsPath)
	if err != nil {
		return err
	}
	traj, err := a.loadTrajectory(trcPath)
	if err != nil {
		return err
	}

	i, err := ms.MarkerIndex(marker)
	if err != nil {
		return err
	}
	pos, err := ms.Position(traj, i, frame)
	if err != nil {
		return err
	}

	if geo.HasNaN(pos) {
		fmt.Fprintf(out, "%s@%d: occluded\n", marker, frame)
		return nil
	}
	fmt.Fprintf(out, "%s@%d: %.6f %.6f %.6f\n", marker, frame, pos.X, pos.Y, pos.Z)
	return nil
}

func (a *app) export(ctx context.Context, trcPath, marsPath string, out io.Writer) error {
	traj, err := a.loadTrajectory(trcPath)
	if err != nil {
		return err
	}

	job := playback.Job{
		Name:       strings.TrimSuffix(filepath.Base(trcPath), filepath.Ext(trcPath)),
		Trajectory: traj,
		Properties: map[string]string{"trajectory": trcPath},
	}
	if marsPath != "" {
		ms, err := a.loadMarkerSet(marsPath)
		if err != nil {
			return err
		}
		job.MarkerSet = ms
		job.Properties["markerSet"] = marsPath
	}

	backend, err := a.initStorage()
	if err != nil {
		return err
	}
	defer func() {
		if err := backend.Close(); err != nil {
			a.logger.Error("Failed to close storage backend", "error", err)
		}
	}()

	player, err := playback.New(playback.Dependencies{Logger: a.logger, Backend: backend})
	if err != nil {
		return err
	}
	res, err := player.Play(ctx, job)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "exported %s: %d frames, %d samples (%d occluded, %d unresolved) as recording %d\n",
		job.Name, res.Frames, res.Samples, res.Occluded, res.ResolutionErrors, res.RecordingID)
	if exp, ok := backend.(storage.Exporter); ok {
		fmt.Fprintf(out, "wrote %s\n", exp.GetExportedFilePath())
	}
	return nil
}
