package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

const timeFormat = "2006-01-02 15:04:05"

// Options selects where and how much to log.
type Options struct {
	Prefix string
	// Level is one of debug, info, warn, error; anything else means info.
	Level string
	// Output receives console output; nil means os.Stderr.
	Output io.Writer
	// File, when set, also writes plain text to a rotating log file.
	File string
}

func New(opts Options) (zerolog.Logger, error) {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}

	writers := []io.Writer{consoleWriter(out, opts.Prefix, false)}
	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0o755); err != nil {
			return zerolog.Nop(), fmt.Errorf("create log directory: %w", err)
		}
		rotating := &lumberjack.Logger{
			Filename: opts.File,
			MaxSize:  10,
			MaxAge:   15,
			Compress: true,
		}
		writers = append(writers, consoleWriter(rotating, opts.Prefix, true))
	}

	return zerolog.New(zerolog.MultiLevelWriter(writers...)).
		With().
		Timestamp().
		Logger().
		Level(ParseLevel(opts.Level)), nil
}

// ParseLevel maps a level name to zerolog, defaulting to info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "disabled", "off":
		return zerolog.Disabled
	}
	return zerolog.InfoLevel
}

func consoleWriter(out io.Writer, prefix string, noColor bool) zerolog.ConsoleWriter {
	return zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: timeFormat,
		NoColor:    noColor,
		FormatLevel: func(i interface{}) string {
			return strings.ToUpper(fmt.Sprintf("| %-6s|", i))
		},
		FormatMessage: func(i interface{}) string {
			if prefix == "" {
				return fmt.Sprintf("%v", i)
			}
			return fmt.Sprintf("[%s] %v", prefix, i)
		},
	}
}
