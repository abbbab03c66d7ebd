package logx

import (
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Environment selects the logger flavour.
type Environment string

const (
	Development Environment = "development"
	Production  Environment = "production"
)

// ParseEnvironment normalises v; unknown values fall back to Development.
func ParseEnvironment(v string) Environment {
	if Environment(v) == Production {
		return Production
	}
	return Development
}

// Options configures Init.
type Options struct {
	Environment Environment
	Level       string
	// File, when set, receives all output through a rotating writer instead
	// of stderr. The TUI always sets it since it owns the terminal.
	File       string
	MaxSizeMB  int
	MaxBackups int
}

func Init(opts Options) {
	var out io.Writer = os.Stderr
	if opts.File != "" {
		out = &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    orDefault(opts.MaxSizeMB, 10),
			MaxBackups: orDefault(opts.MaxBackups, 5),
			MaxAge:     30,
			Compress:   true,
		}
	}

	level := zerolog.DebugLevel
	if opts.Environment == Production {
		level = zerolog.InfoLevel
	}
	if opts.Level != "" {
		if parsed, err := zerolog.ParseLevel(opts.Level); err == nil {
			level = parsed
		}
	}

	if opts.Environment == Production || opts.File != "" {
		log.Logger = zerolog.New(out).With().Timestamp().Logger().Level(level)
		return
	}
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: out}).With().Timestamp().Caller().Logger().Level(level)
}

// Discard silences all logging. Used by tests and by commands that print
// their own output to stdout.
func Discard() {
	log.Logger = zerolog.Nop()
}

func Debug() *zerolog.Event {
	return log.Debug()
}

func Info() *zerolog.Event {
	return log.Info()
}

func Warn() *zerolog.Event {
	return log.Warn()
}

func Error() *zerolog.Event {
	return log.Error()
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
