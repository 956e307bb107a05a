// Package logger configures the process-wide zerolog logger and hands out
// component, document and chunk scoped children of it.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/rs/zerolog/pkgerrors"
)

// LogConfig is the log section of the configuration file.
type LogConfig struct {
	Level      string `yaml:"level"`       // trace, debug, info, warn, error
	Format     string `yaml:"format"`      // json, console
	TimeFormat string `yaml:"time_format"` // Go layout, RFC3339 by default
	Output     string `yaml:"output"`      // stdout, stderr, or file path
}

// DefaultConfig logs info and above to stderr in console format.
// Command output goes to stdout and must stay parseable.
func DefaultConfig() LogConfig {
	return LogConfig{
		Level:      "info",
		Format:     "console",
		TimeFormat: time.RFC3339,
		Output:     "stderr",
	}
}

// Setup replaces the global logger.
func Setup(config LogConfig) error {
	level, err := zerolog.ParseLevel(strings.ToLower(config.Level))
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", config.Level, err)
	}

	output, err := openOutput(config.Output)
	if err != nil {
		return err
	}

	if config.TimeFormat != "" {
		zerolog.TimeFieldFormat = config.TimeFormat
	}

	switch strings.ToLower(config.Format) {
	case "json":
		zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack
	case "", "console":
		output = zerolog.ConsoleWriter{Out: output, TimeFormat: config.TimeFormat}
	default:
		return fmt.Errorf("invalid log format %q (want json or console)", config.Format)
	}

	zerolog.SetGlobalLevel(level)
	log.Logger = zerolog.New(output).With().
		Timestamp().
		Caller().
		Logger()
	return nil
}

func openOutput(target string) (io.Writer, error) {
	switch target {
	case "", "stderr":
		return os.Stderr, nil
	case "stdout":
		return os.Stdout, nil
	}
	f, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return f, nil
}

// WithComponent returns a logger with a component field
func WithComponent(component string) zerolog.Logger {
	return log.Logger.With().Str("component", component).Logger()
}

// WithDocument tags a component logger with one pipeline run over one file.
func WithDocument(component, runID, filename string) zerolog.Logger {
	return log.Logger.With().
		Str("component", component).
		Str("run_id", runID).
		Str("file", filename).
		Logger()
}

// WithChunk narrows a document logger to one page range.
func WithChunk(parent zerolog.Logger, chunkNum int, pageRange string) zerolog.Logger {
	return parent.With().
		Int("chunk", chunkNum).
		Str("page_range", pageRange).
		Logger()
}
