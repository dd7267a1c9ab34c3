package parser

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/libmocap/mocap/pkg/core"
)

// parseIntFromFloat parses a string that may be an integer ("32") or float ("32.00") into int.
// Some marker set exporters write every numeric column as a float.
func parseIntFromFloat(s string) (int, error) {
	if v, err := strconv.Atoi(s); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if f != float64(int(f)) {
		return 0, fmt.Errorf("parseIntFromFloat: %q is not a valid int", s)
	}
	return int(f), nil
}

// parseBool accepts 0/1 as well as true/false in any case.
func parseBool(s string) (bool, error) {
	if s == "" {
		return false, nil
	}
	if n, err := parseIntFromFloat(s); err == nil {
		return n != 0, nil
	}
	return strconv.ParseBool(strings.ToLower(s))
}

// Option configures a Parser.
type Option func(*Parser)

// WithPaletteSeed seeds the random colours appended when a file references a
// palette index past the built-in colours.
func WithPaletteSeed(seed uint64) Option {
	return func(p *Parser) {
		p.paletteSeed = seed
	}
}

// WithResolveOptions sets the resolver options stored on every loaded marker set.
func WithResolveOptions(opts core.ResolveOptions) Option {
	return func(p *Parser) {
		p.resolve = opts
	}
}

// Parser turns marker set and trajectory files into core documents.
// It has no dependencies beyond a logger. A Parser may be reused, but a
// single load is sequential.
type Parser struct {
	logger *slog.Logger

	paletteSeed uint64
	resolve     core.ResolveOptions

	warnings metric.Int64Counter
	files    metric.Int64Counter
}

// NewParser creates a new parser with only a logger dependency
func NewParser(logger *slog.Logger, opts ...Option) *Parser {
	p := &Parser{
		logger:      logger,
		paletteSeed: 1,
	}
	for _, opt := range opts {
		opt(p)
	}

	m := meter()
	var err error
	p.warnings, err = m.Int64Counter(
		"mocap.parser.warnings",
		metric.WithDescription("Non-fatal conditions met while loading files"),
	)
	if err != nil {
		logger.Warn("Error creating parser warning counter", "error", err)
		p.warnings = noop.Int64Counter{}
	}
	p.files, err = m.Int64Counter(
		"mocap.parser.files",
		metric.WithDescription("Files loaded, by format and outcome"),
	)
	if err != nil {
		logger.Warn("Error creating parser file counter", "error", err)
		p.files = noop.Int64Counter{}
	}

	return p
}

// warn logs a recoverable condition and counts it.
func (p *Parser) warn(format, msg string, args ...any) {
	p.logger.Warn(msg, args...)
	p.warnings.Add(context.Background(), 1, metric.WithAttributes(attribute.String("format", format)))
}

func (p *Parser) countFile(format string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	p.files.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("format", format),
		attribute.String("outcome", outcome),
	))
}
