// Package mocap is the public entry point for loading marker sets and
// trajectories from disk.
package mocap

import (
	"io"
	"log/slog"

	"github.com/libmocap/mocap/internal/parser"
	"github.com/libmocap/mocap/pkg/core"
)

// Options configures both factories. A nil Logger discards log output.
type Options struct {
	Logger      *slog.Logger
	PaletteSeed uint64
	Resolve     core.ResolveOptions
}

func (o Options) parser() *parser.Parser {
	logger := o.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	opts := []parser.Option{parser.WithResolveOptions(o.Resolve)}
	if o.PaletteSeed != 0 {
		opts = append(opts, parser.WithPaletteSeed(o.PaletteSeed))
	}
	return parser.NewParser(logger, opts...)
}

// CanLoadMarkerSet reports whether path has an extension a marker set loader handles.
func CanLoadMarkerSet(path string) bool {
	return parser.CanLoadMarkerSet(path)
}

// CanLoadTrajectory reports whether path has an extension a trajectory loader handles.
func CanLoadTrajectory(path string) bool {
	return parser.CanLoadTrajectory(path)
}

// MarkerSetFactory loads marker set files.
type MarkerSetFactory struct {
	p *parser.Parser
}

func NewMarkerSetFactory(opts Options) *MarkerSetFactory {
	return &MarkerSetFactory{p: opts.parser()}
}

func (f *MarkerSetFactory) CanLoad(path string) bool {
	return CanLoadMarkerSet(path)
}

// Load parses path. On any fatal error the returned set is nil and the
// error is a *core.ParseError.
func (f *MarkerSetFactory) Load(path string) (*core.MarkerSet, error) {
	return f.p.LoadMarkerSet(path)
}

// Parse reads a marker set from r; name is used in error locations only.
func (f *MarkerSetFactory) Parse(r io.Reader, name string) (*core.MarkerSet, error) {
	return f.p.ParseMarkerSet(r, name)
}

// MarkerTrajectoryFactory loads trajectory files.
type MarkerTrajectoryFactory struct {
	p *parser.Parser
}

func NewMarkerTrajectoryFactory(opts Options) *MarkerTrajectoryFactory {
	return &MarkerTrajectoryFactory{p: opts.parser()}
}

func (f *MarkerTrajectoryFactory) CanLoad(path string) bool {
	return CanLoadTrajectory(path)
}

// Load parses path. Units are left as declared; call Normalize before
// resolving against a marker set expressed in metres.
func (f *MarkerTrajectoryFactory) Load(path string) (*core.MarkerTrajectory, error) {
	return f.p.LoadTrajectory(path)
}

// Parse reads a trajectory from r.
func (f *MarkerTrajectoryFactory) Parse(r io.Reader, name string) (*core.MarkerTrajectory, error) {
	return f.p.ParseTrajectory(r, name)
}
