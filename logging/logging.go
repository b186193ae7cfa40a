// Package logging configures the process-wide zerolog logger and hands out
// component loggers.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/term"
)

// CriticalLevel is the level used for conditions that need operator attention.
// It maps onto zerolog's fatal level but never exits the process.
const CriticalLevel = zerolog.FatalLevel

// Config selects level, output format and destination.
type Config struct {
	// Level is one of trace, debug, info, warn, error, critical.
	Level string
	// Format is json, console or auto (console when stderr is a terminal).
	Format string
	// File, when set, receives log lines instead of stderr.
	File string
	// EnableCaller adds file:line to every line.
	EnableCaller bool
}

var (
	mu     sync.RWMutex
	base   = zerolog.New(os.Stderr).With().Timestamp().Logger()
	output io.Closer
)

func init() {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	zerolog.LevelFieldMarshalFunc = func(l zerolog.Level) string {
		if l == CriticalLevel {
			return "critical"
		}
		return l.String()
	}
}

// Init replaces the base logger. It may be called more than once; the
// previously opened log file, if any, is closed.
func Init(cfg Config) error {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return err
	}

	var (
		w      io.Writer = os.Stderr
		closer io.Closer
		isTTY  = term.IsTerminal(int(os.Stderr.Fd()))
	)
	if cfg.File != "" {
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		w, closer, isTTY = f, f, false
	}

	switch strings.ToLower(cfg.Format) {
	case "", "auto":
		if isTTY {
			w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
		}
	case "console":
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339, NoColor: !isTTY}
	case "json":
	default:
		if closer != nil {
			closer.Close()
		}
		return fmt.Errorf("unknown log format %q", cfg.Format)
	}

	ctx := zerolog.New(w).Level(level).With().Timestamp()
	if cfg.EnableCaller {
		ctx = ctx.Caller()
	}

	mu.Lock()
	defer mu.Unlock()
	if output != nil {
		output.Close()
	}
	base, output = ctx.Logger(), closer
	return nil
}

// ParseLevel accepts zerolog level names plus "critical" and "warning".
// An empty string means info.
func ParseLevel(s string) (zerolog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return zerolog.InfoLevel, nil
	case "critical":
		return CriticalLevel, nil
	case "warning":
		return zerolog.WarnLevel, nil
	}
	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(s)))
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("unknown log level %q", s)
	}
	return level, nil
}

// Component returns a child logger tagged with the component name.
func Component(name string) zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return base.With().Str("component", name).Logger()
}

// Critical starts an event at CriticalLevel. Unlike logger.Fatal it does not
// exit.
func Critical(l *zerolog.Logger) *zerolog.Event {
	return l.WithLevel(CriticalLevel)
}
