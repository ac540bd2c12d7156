// Package clog provides structured logging for the cluster metadata core
// using zerolog. It wraps a package-level logger with context helpers scoped
// to catalog entities (index, data stream, snapshot, repository, node).
package clog

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger is the global logger instance, set by Init.
var Logger zerolog.Logger

// Level is a logging severity.
type Level string

const (
	DebugLevel Level = "debug"
	InfoLevel  Level = "info"
	WarnLevel  Level = "warn"
	ErrorLevel Level = "error"
)

// Config controls Init.
type Config struct {
	Level      Level
	JSONOutput bool
	Output     io.Writer
}

// Init initializes the global logger. Must be called before any logging.
func Init(cfg Config) {
	var level zerolog.Level
	switch cfg.Level {
	case DebugLevel:
		level = zerolog.DebugLevel
	case WarnLevel:
		level = zerolog.WarnLevel
	case ErrorLevel:
		level = zerolog.ErrorLevel
	default:
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	output := cfg.Output
	if output == nil {
		output = os.Stdout
	}

	if cfg.JSONOutput {
		Logger = zerolog.New(output).With().Timestamp().Logger()
	} else {
		Logger = zerolog.New(zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: time.RFC3339,
		}).With().Timestamp().Logger()
	}
}

// WithComponent returns a child logger tagged with a component name.
func WithComponent(component string) zerolog.Logger {
	return Logger.With().Str("component", component).Logger()
}

// WithIndex returns a child logger tagged with an index name.
func WithIndex(name string) zerolog.Logger {
	return Logger.With().Str("index", name).Logger()
}

// WithDataStream returns a child logger tagged with a data stream name.
func WithDataStream(name string) zerolog.Logger {
	return Logger.With().Str("data_stream", name).Logger()
}

// WithSnapshot returns a child logger tagged with a snapshot identity.
func WithSnapshot(repository, snapshot string) zerolog.Logger {
	return Logger.With().Str("repository", repository).Str("snapshot", snapshot).Logger()
}

// WithRepository returns a child logger tagged with a snapshot repository
// name.
func WithRepository(repository string) zerolog.Logger {
	return Logger.With().Str("repository", repository).Logger()
}

// WithNode returns a child logger tagged with a discovery node id.
func WithNode(nodeID string) zerolog.Logger {
	return Logger.With().Str("node_id", nodeID).Logger()
}

func Info(msg string)  { Logger.Info().Msg(msg) }
func Debug(msg string) { Logger.Debug().Msg(msg) }
func Warn(msg string)  { Logger.Warn().Msg(msg) }
func Error(msg string) { Logger.Error().Msg(msg) }
func Fatal(msg string) { Logger.Fatal().Msg(msg) }

func Errorf(format string, err error) {
	Logger.Error().Err(err).Msg(format)
}
