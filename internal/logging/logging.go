package logging

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/LucachuTW/TikTok-maker/internal/config"
	"github.com/LucachuTW/TikTok-maker/internal/logstore"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// EventField tags a record with an event type, stored in its own SQLite column
const EventField = logstore.EventTypeField

// Event types written by the pipeline
const (
	EventLogInit      = "LOG_INIT"
	EventCamera       = "CAMERA"
	EventDownload     = "DOWNLOAD"
	EventAudio        = "AUDIO"
	EventStabilize    = "STABILIZE"
	EventHighlights   = "HIGHLIGHTS"
	EventBadTelemetry = "BAD_TELEMETRY"
)

// Init initializes the global logger from cfg. The returned closer flushes
// and closes the file and SQLite sinks.
func Init(cfg config.LogConfig, verbose bool) (io.Closer, error) {
	zerolog.TimeFieldFormat = time.RFC3339

	level := zerolog.InfoLevel
	if cfg.Level != "" {
		parsed, err := zerolog.ParseLevel(cfg.Level)
		if err != nil {
			return nil, fmt.Errorf("logs.level: %w", err)
		}
		level = parsed
	}
	if verbose {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)

	var (
		writers []io.Writer
		closers multiCloser
	)

	if cfg.Console {
		writers = append(writers, zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: "15:04:05",
			NoColor:    false,
		})
	}

	if cfg.File && cfg.Path != "" {
		f, err := newFileSink(cfg.Path)
		if err != nil {
			closers.Close()
			return nil, fmt.Errorf("log file: %w", err)
		}
		writers = append(writers, f)
		closers = append(closers, f)
	}

	var store *logstore.Store
	if cfg.SQLite && cfg.SQLiteFile != "" {
		s, err := logstore.Open(cfg.SQLiteFile)
		if err != nil {
			closers.Close()
			return nil, fmt.Errorf("log database: %w", err)
		}
		store = s
		writers = append(writers, s)
		closers = append(closers, s)
	}

	log.Logger = NewLogger(writers...)

	if store != nil {
		log.Info().
			Str(EventField, EventLogInit).
			Str("db", cfg.SQLiteFile).
			Msg("logging to sqlite enabled")
	}

	return closers, nil
}

// NewLogger creates a new logger with optional writers
func NewLogger(writers ...io.Writer) zerolog.Logger {
	switch len(writers) {
	case 0:
		return zerolog.New(io.Discard)
	case 1:
		return zerolog.New(writers[0]).With().Timestamp().Logger()
	default:
		multi := zerolog.MultiLevelWriter(writers...)
		return zerolog.New(multi).With().Timestamp().Logger()
	}
}

// WithComponent creates a logger with a component field
func WithComponent(component string) zerolog.Logger {
	return log.Logger.With().Str("component", component).Logger()
}

type multiCloser []io.Closer

func (m multiCloser) Close() error {
	var errs []error
	for i := len(m) - 1; i >= 0; i-- {
		if err := m[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
