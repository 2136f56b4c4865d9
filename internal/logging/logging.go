// Package logging builds the process-wide zerolog logger.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/term"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config controls log level and the optional rotating file sink.
type Config struct {
	Level      string
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// ParseLevel maps a level name to a zerolog level. Empty means info.
func ParseLevel(s string) (zerolog.Level, error) {
	switch v := strings.ToLower(strings.TrimSpace(s)); v {
	case "":
		return zerolog.InfoLevel, nil
	case "warning":
		return zerolog.WarnLevel, nil
	case "off":
		return zerolog.Disabled, nil
	default:
		lvl, err := zerolog.ParseLevel(v)
		if err != nil {
			return zerolog.NoLevel, fmt.Errorf("unknown log level %q", s)
		}
		return lvl, nil
	}
}

// New builds a logger writing to stderr, human-readable on a terminal and
// JSON otherwise, plus a rotating JSON file when cfg.File is set. The
// returned func closes the file sink.
func New(cfg Config) (zerolog.Logger, func(), error) {
	return build(cfg, os.Stderr, term.IsTerminal(int(os.Stderr.Fd())))
}

func build(cfg Config, out io.Writer, tty bool) (zerolog.Logger, func(), error) {
	lvl, err := ParseLevel(cfg.Level)
	if err != nil {
		return zerolog.Nop(), func() {}, err
	}
	console := out
	if tty {
		console = zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen}
	}
	writers := []io.Writer{console}
	cleanup := func() {}
	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
			return zerolog.Nop(), cleanup, fmt.Errorf("create log dir: %w", err)
		}
		rotator := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   true,
		}
		writers = append(writers, rotator)
		cleanup = func() { _ = rotator.Close() }
	}
	var w io.Writer = console
	if len(writers) > 1 {
		w = zerolog.MultiLevelWriter(writers...)
	}
	l := zerolog.New(w).Level(lvl).With().Timestamp().Logger()
	return l, cleanup, nil
}

// Install makes l the global logger used by packages that log through
// github.com/rs/zerolog/log.
func Install(l zerolog.Logger) {
	log.Logger = l
	zerolog.DefaultContextLogger = &l
}
