/*
Package logger builds the zerolog loggers used by the node and the CLI.

Configuration is usually loaded from YAML file and individual fields are
overridden by command line flags.
*/
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	FormatJSON    = "json"
	FormatConsole = "console"

	OutputStdout  = "stdout"
	OutputStderr  = "stderr"
	OutputDiscard = "discard"

	consoleTimeFormat = "15:04:05.000000"
)

type LogConfiguration struct {
	Level           string `yaml:"defaultLevel"`
	Format          string `yaml:"format"`
	OutputPath      string `yaml:"outputPath"`
	TimeFormat      string `yaml:"timeFormat"`
	ShowCaller      bool   `yaml:"showCaller"`
	ShowGoroutineID bool   `yaml:"showGoroutineID"`
	// writer overrides OutputPath, set by tests
	writer io.Writer
}

// Factory creates logger from the configuration, CLI uses it so that tests
// can inject their own implementation.
type Factory func(cfg *LogConfiguration) (*zerolog.Logger, error)

/*
New creates logger based on the configuration. Empty configuration results in
JSON logger at INFO level writing to stderr.
*/
func New(cfg *LogConfiguration) (*zerolog.Logger, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	out, err := cfg.output()
	if err != nil {
		return nil, fmt.Errorf("creating log output: %w", err)
	}

	var l zerolog.Logger
	switch strings.ToLower(cfg.Format) {
	case "", FormatJSON:
		l = zerolog.New(out)
		if cfg.TimeFormat != "none" {
			l = l.Hook(timestampHook{format: cfg.TimeFormat})
		}
	case FormatConsole:
		cw := zerolog.ConsoleWriter{
			Out:          out,
			NoColor:      out != os.Stdout && out != os.Stderr,
			TimeFormat:   consoleTimeFormat,
			FormatCaller: shortCaller,
		}
		if cfg.TimeFormat != "" && cfg.TimeFormat != "none" {
			cw.TimeFormat = cfg.TimeFormat
		}
		l = zerolog.New(cw)
		if cfg.TimeFormat != "none" {
			l = l.With().Timestamp().Logger()
		}
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}

	l = l.Level(level)
	if cfg.ShowCaller {
		l = l.With().Caller().Logger()
	}
	if cfg.ShowGoroutineID {
		l = l.Hook(goRoutineIDHook{})
	}
	return &l, nil
}

// ParseLevel accepts zerolog level names and additionally "warning" and "none".
func ParseLevel(s string) (zerolog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return zerolog.InfoLevel, nil
	case "warning":
		return zerolog.WarnLevel, nil
	case "none":
		return zerolog.Disabled, nil
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(s))
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return lvl, nil
}

func (cfg *LogConfiguration) output() (io.Writer, error) {
	if cfg.writer != nil {
		return cfg.writer, nil
	}
	switch strings.ToLower(cfg.OutputPath) {
	case "", OutputStderr:
		return os.Stderr, nil
	case OutputStdout:
		return os.Stdout, nil
	case OutputDiscard:
		return io.Discard, nil
	}
	if err := os.MkdirAll(filepath.Dir(cfg.OutputPath), 0700); err != nil {
		return nil, fmt.Errorf("creating directory for log file: %w", err)
	}
	return os.OpenFile(cfg.OutputPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600) // -rw-------
}

// SetWriter sets the log output, takes precedence over OutputPath.
func (cfg *LogConfiguration) SetWriter(w io.Writer) {
	cfg.writer = w
}

type timestampHook struct {
	format string
}

func (h timestampHook) Run(e *zerolog.Event, _ zerolog.Level, _ string) {
	if h.format == "" {
		e.Time(zerolog.TimestampFieldName, time.Now())
		return
	}
	e.Str(zerolog.TimestampFieldName, time.Now().Format(h.format))
}

// A hook that adds goroutine ID to the log event
type goRoutineIDHook struct{}

func (h goRoutineIDHook) Run(e *zerolog.Event, _ zerolog.Level, _ string) {
	e.Uint64(GoIDKey, goroutineID())
}
