// Package logging is the CORE's ambient logging surface. The teacher repo
// (davecheney-pdp11) logs ad hoc via fmt.Printf; none of the emulator repos
// in the retrieval pack import a structured-logging library for the
// CPU/bus hot path (see DESIGN.md), so this wraps the standard library
// log.Logger instead of reaching for one, keeping the teacher's short,
// often-octal message style available as named levels.
package logging

import (
	"io"
	"log"
	"os"
)

// Level selects which messages a Logger emits.
type Level int

const (
	LevelError Level = iota
	LevelWarn
	LevelDebug
)

// Logger is the CORE-wide logging handle. Devices and the bus hold one to
// report non-fatal anomalies (spec: "logged but non-fatal").
type Logger struct {
	level Level
	log   *log.Logger
}

// New creates a Logger writing to w at the given level.
func New(w io.Writer, level Level) *Logger {
	return &Logger{level: level, log: log.New(w, "", log.LstdFlags)}
}

// Default returns a Logger writing to stderr at LevelWarn, matching the
// teacher's default of printing warnings/traps but not per-instruction
// trace noise.
func Default() *Logger {
	return New(os.Stderr, LevelWarn)
}

func (l *Logger) Debugf(format string, args ...interface{}) {
	if l == nil || l.level < LevelDebug {
		return
	}
	l.log.Printf(format, args...)
}

func (l *Logger) Warnf(format string, args ...interface{}) {
	if l == nil || l.level < LevelWarn {
		return
	}
	l.log.Printf(format, args...)
}

func (l *Logger) Errorf(format string, args ...interface{}) {
	if l == nil || l.level < LevelError {
		return
	}
	l.log.Printf(format, args...)
}
