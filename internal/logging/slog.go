package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/Graylog2/go-gelf/gelf"
)

// stdout is the console sink used when no log file is configured.
var stdout io.Writer = os.Stdout

// SlogManager manages slog-based logging with optional Graylog output.
type SlogManager struct {
	logger *slog.Logger

	provider ContextProvider
	graylog  io.Writer
}

// NewSlogManager creates a new slog-based logging manager.
func NewSlogManager() *SlogManager {
	return &SlogManager{}
}

// WithContext attaches attributes returned by provider to every record
// logged after the next Setup.
func (m *SlogManager) WithContext(provider ContextProvider) *SlogManager {
	m.provider = provider
	return m
}

// parseLevel converts a string log level to slog.Level.
func parseLevel(level string) slog.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewGraylogWriter opens a GELF UDP writer to address (host:port).
func NewGraylogWriter(address string) (*gelf.Writer, error) {
	w, err := gelf.NewWriter(address)
	if err != nil {
		return nil, err
	}
	w.Facility = "mocap"
	return w, nil
}

// Setup initializes the logging system. Records go to file when it is
// non-nil, otherwise to stdout. If graylog is non-nil records are also
// sent to it as JSON.
func (m *SlogManager) Setup(file io.Writer, level string, graylog io.Writer) {
	lvl := parseLevel(level)
	m.graylog = graylog

	// Common handler options with RFC3339 time formatting
	handlerOpts := &slog.HandlerOptions{
		Level: lvl,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				if t, ok := a.Value.Any().(time.Time); ok {
					a.Value = slog.StringValue(t.UTC().Format(time.RFC3339))
				}
			}
			return a
		},
	}

	var handlers []slog.Handler

	if file != nil {
		handlers = append(handlers, slog.NewTextHandler(file, handlerOpts))
	} else {
		handlers = append(handlers, slog.NewTextHandler(stdout, handlerOpts))
	}

	if graylog != nil {
		handlers = append(handlers, slog.NewJSONHandler(graylog, handlerOpts))
	}

	var handler slog.Handler = NewMultiHandler(handlers...)
	if m.provider != nil {
		handler = NewContextHandler(handler, m.provider)
	}

	m.logger = slog.New(handler)
	m.logger.Info("Logging initialized", "level", level, "graylog", graylog != nil)
}

// Logger returns the configured slog.Logger.
func (m *SlogManager) Logger() *slog.Logger {
	if m.logger == nil {
		// Return a default logger if Setup hasn't been called
		return slog.Default()
	}
	return m.logger
}

// Close releases the Graylog connection, if any.
func (m *SlogManager) Close() error {
	if c, ok := m.graylog.(io.Closer); ok {
		m.graylog = nil
		return c.Close()
	}
	return nil
}
