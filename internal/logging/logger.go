// Package logging provides the kernel's structured diagnostic log, sunk to
// whatever io.Writer boot configuration wires in (normally a UART, see
// internal/uart, or os.Stderr on the host build) through zerolog.
package logging

import (
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog"

	"github.com/aarch64kernel/corekernel/internal/arch"
)

var (
	mu     sync.RWMutex
	logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
)

// Configure replaces the sink the default logger writes to. Called once
// from Boot with the UART writer; tests that want silence can pass
// io.Discard.
func Configure(w io.Writer, level zerolog.Level) {
	mu.Lock()
	defer mu.Unlock()
	logger = zerolog.New(w).Level(level).With().Timestamp().Logger()
}

func current() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

func Debug(msg string) { current().Debug().Msg(msg) }
func Info(msg string)  { current().Info().Msg(msg) }
func Warn(msg string)  { current().Warn().Msg(msg) }
func Error(msg string) { current().Error().Msg(msg) }

func Debugf(format string, args ...any) { current().Debug().Msgf(format, args...) }
func Infof(format string, args ...any)  { current().Info().Msgf(format, args...) }
func Warnf(format string, args ...any)  { current().Warn().Msgf(format, args...) }
func Errorf(format string, args ...any) { current().Error().Msgf(format, args...) }

// Fatal logs msg at error level, tagged severity=fatal, and halts the CPU
// (spec §7: there is no
// panic-and-unwind story on this core, only log-and-halt). In tests,
// arch.SetHaltHook lets the halt be observed instead of hanging the test
// goroutine.
func Fatal(msg string) {
	current().Error().Str("severity", "fatal").Msg(msg)
	arch.Halt()
}

// Fatalf is Fatal with format arguments.
func Fatalf(format string, args ...any) {
	current().Error().Str("severity", "fatal").Msgf(format, args...)
	arch.Halt()
}

// WithComponent returns a logger tagged with a component field, used by
// callers that log frequently enough to want the field pre-bound (e.g. the
// tick handler) rather than threading it through every call.
func WithComponent(name string) zerolog.Logger {
	return current().With().Str("component", name).Logger()
}
