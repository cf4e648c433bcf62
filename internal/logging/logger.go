package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"sessionsnap/internal/config"

	"github.com/rs/zerolog"
)

// New constructs a zerolog logger based on config settings.
// Defaults to JSON, info level, stdout when fields are empty.
func New(cfg config.LoggingConfig, app config.AppConfig) (*zerolog.Logger, io.Closer, error) {
	return NewWithWriter(cfg, app, nil)
}

// NewWithWriter is New with an explicit base writer; a nil w selects the writer from cfg.Output.
func NewWithWriter(cfg config.LoggingConfig, app config.AppConfig, w io.Writer) (*zerolog.Logger, io.Closer, error) {
	level := zerolog.InfoLevel
	if parsed, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(cfg.Level))); err == nil && cfg.Level != "" {
		level = parsed
	}

	output := w
	var closer io.Closer

	if output == nil {
		output = os.Stdout
		switch strings.ToLower(strings.TrimSpace(cfg.Output)) {
		case "stderr":
			output = os.Stderr
		case "file":
			if cfg.FilePath == "" {
				return nil, nil, fmt.Errorf("logging.output=file requires logging.file_path")
			}
			file, err := os.OpenFile(cfg.FilePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
			if err != nil {
				return nil, nil, fmt.Errorf("open log file: %w", err)
			}
			output = file
			closer = file
		}
	}

	if strings.ToLower(strings.TrimSpace(cfg.Format)) == "console" {
		output = zerolog.ConsoleWriter{Out: output, TimeFormat: time.RFC3339}
	}

	zerolog.TimeFieldFormat = time.RFC3339Nano
	base := zerolog.New(output).
		Level(level).
		With().
		Timestamp().
		Str("app", app.Name).
		Str("env", app.Environment).
		Str("version", app.Version).
		Logger()

	return &base, closer, nil
}

// Component returns a child logger tagged with the component name.
func Component(base *zerolog.Logger, name string) *zerolog.Logger {
	l := base.With().Str("component", name).Logger()
	return &l
}
