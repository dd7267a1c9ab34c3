package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/rs/zerolog"

	"github.com/libmocap/mocap/internal/config"
	"github.com/libmocap/mocap/internal/logging"
)

// module defs - BuildDate can be set at build time via ldflags
var (
	CurrentVersion string = "0.0.1"
	BuildDate      string = "unknown"

	AppName string = "mocap"
)

// app carries the process wide services of one CLI invocation.
type app struct {
	SessionStartTime time.Time

	slogManager *logging.SlogManager
	logger      *slog.Logger
	dbLogger    zerolog.Logger
	logFile     *os.File

	// current command, attached to every log record
	command string
}

func main() {
	configDir := os.Getenv("MOCAP_CONFIG_DIR")
	if configDir == "" {
		configDir = "."
	}

	a := newApp(configDir)
	defer a.close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := a.run(ctx, os.Args[1:], os.Stdout); err != nil {
		a.logger.Error("Command failed", "error", err)
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newApp loads the configuration in configDir and sets up logging. A
// missing config file is not an error.
func newApp(configDir string) *app {
	a := &app{
		SessionStartTime: time.Now(),
		slogManager:      logging.NewSlogManager(),
		dbLogger:         zerolog.Nop(),
	}

	configErr := config.Load(configDir)
	logCfg := config.GetLogConfig()

	a.slogManager.WithContext(func() []slog.Attr {
		if a.command == "" {
			return nil
		}
		return []slog.Attr{slog.String("command", a.command)}
	})

	var fileOut io.Writer
	if err := os.MkdirAll(logCfg.Dir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logs directory: %v\n", err)
	} else {
		path := logging.LogFilePath(logCfg.Dir, AppName, a.SessionStartTime)
		f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create log file: %v\n", err)
		} else {
			a.logFile = f
			fileOut = f
			a.dbLogger = zerolog.New(f).With().Timestamp().Str("component", "database").Logger()
		}
	}

	var graylog io.Writer
	if logCfg.GraylogEnabled {
		w, err := logging.NewGraylogWriter(logCfg.GraylogAddress)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to connect to Graylog: %v\n", err)
		} else {
			graylog = w
		}
	}

	a.slogManager.Setup(fileOut, logCfg.Level, graylog)
	a.logger = a.slogManager.Logger()
	a.logger.Info("Starting up", "version", CurrentVersion, "build", BuildDate)

	switch {
	case configErr == nil:
		a.logger.Info("Loaded config", "dir", configDir)
	case config.IsNotFound(configErr):
		a.logger.Info("No config file found, using defaults", "dir", configDir)
	default:
		a.logger.Warn("Failed to load config, using defaults!", "error", configErr)
	}

	return a
}

func (a *app) close() {
	if err := a.slogManager.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to close Graylog writer: %v\n", err)
	}
	if a.logFile != nil {
		a.logFile.Close()
	}
}
