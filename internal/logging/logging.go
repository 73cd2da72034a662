// Package logging sets up the zerolog logger shared by all components:
// console output, plus optional file and GELF (Graylog) sinks selected by
// configuration.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Graylog2/go-gelf/gelf"
	"github.com/rs/zerolog"

	"github.com/sanderboers48/orbat-mapper/internal/config"
)

// Setup builds the root logger from configuration. The returned closer flushes
// and closes any file sink; callers defer it.
func Setup(cfg config.LoggingConfig) (zerolog.Logger, func(), error) {
	writers := []io.Writer{
		zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339},
	}
	closer := func() {}

	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
			return zerolog.Nop(), nil, fmt.Errorf("creating log dir: %w", err)
		}
		file, err := os.OpenFile(cfg.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return zerolog.Nop(), nil, fmt.Errorf("opening log file: %w", err)
		}
		writers = append(writers, file)
		closer = func() { _ = file.Close() }
	}

	if cfg.Gelf.Enabled {
		gelfWriter, err := gelf.NewWriter(cfg.Gelf.Address)
		if err != nil {
			// Graylog being down should not take the editor down with it.
			fmt.Fprintf(os.Stderr, "gelf writer unavailable: %v\n", err)
		} else {
			writers = append(writers, gelfWriter)
		}
	}

	log := zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(parseLevel(cfg.Level)).
		With().Timestamp().Logger()
	return log, closer, nil
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
