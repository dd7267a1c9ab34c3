package parser

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/libmocap/mocap/internal/util"
	"github.com/libmocap/mocap/pkg/core"
)

// CanLoadMarkerSet reports whether path has a marker set extension.
func CanLoadMarkerSet(path string) bool {
	return util.Extension(path) == formatMARS
}

// CanLoadTrajectory reports whether path has a trajectory extension.
func CanLoadTrajectory(path string) bool {
	return util.Extension(path) == formatTRC
}

// LoadMarkerSet opens and parses a .mars file.
func (p *Parser) LoadMarkerSet(path string) (ms *core.MarkerSet, err error) {
	defer func() { p.countFile(formatMARS, err) }()

	if !CanLoadMarkerSet(path) {
		return nil, unsupported(path, "marker set")
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, &core.ParseError{Kind: core.ParseFileAccess, File: path, Err: err}
	}
	defer f.Close()

	ms, err = p.ParseMarkerSet(f, filepath.Base(path))
	if err != nil {
		return nil, err
	}
	p.logger.Info("Loaded marker set", "path", path, "name", ms.Name, "markers", len(ms.Markers))
	return ms, nil
}

// LoadTrajectory opens and parses a .trc file.
func (p *Parser) LoadTrajectory(path string) (traj *core.MarkerTrajectory, err error) {
	defer func() { p.countFile(formatTRC, err) }()

	if !CanLoadTrajectory(path) {
		return nil, unsupported(path, "trajectory")
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, &core.ParseError{Kind: core.ParseFileAccess, File: path, Err: err}
	}
	defer f.Close()

	traj, err = p.ParseTrajectory(f, filepath.Base(path))
	if err != nil {
		return nil, err
	}
	p.logger.Info("Loaded trajectory", "path", path, "frames", traj.FrameCount(), "markers", traj.NumMarkers, "units", traj.Units)
	return traj, nil
}

func unsupported(path, kind string) error {
	return &core.ParseError{
		Kind: core.ParseUnsupportedFormat,
		File: path,
		Msg:  fmt.Sprintf("no %s loader for extension %q", kind, util.Extension(path)),
	}
}
