// Package observability carries pack, worker and runtime events to logging
// backends. An Event is a typed, timestamped record with free-form
// attributes; an Observer consumes it. Level numbers sit inside the
// OpenTelemetry SeverityNumber bands so events can be exported as OTel log
// records unchanged.
package observability

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Level is an event severity on the OTel SeverityNumber scale (1-24).
type Level int

const (
	LevelVerbose Level = 5  // DEBUG band: per-entry puts, resolves, misses
	LevelInfo    Level = 9  // INFO band: imports, exports, pre-generation
	LevelWarning Level = 13 // WARN band: late language merges
	LevelError   Level = 17 // ERROR band: resolver and export failures
)

// band collapses the OTel scale into TRACE(0) through FATAL(5).
func (l Level) band() int {
	if l <= 0 {
		return 0
	}
	return min(int(l-1)/4, 5)
}

var (
	bandNames = [...]string{"TRACE", "DEBUG", "INFO", "WARN", "ERROR", "FATAL"}
	bandSlog  = [...]slog.Level{slog.LevelDebug, slog.LevelDebug, slog.LevelInfo, slog.LevelWarn, slog.LevelError, slog.LevelError}
)

// String returns the OTel severity text for the level.
func (l Level) String() string {
	return bandNames[l.band()]
}

// SlogLevel maps this level to the corresponding slog.Level.
func (l Level) SlogLevel() slog.Level {
	return bandSlog[l.band()]
}

// ParseLevel accepts a severity name as written in configuration files:
// verbose, debug, info, warn, warning or error, in any case. The empty
// string parses as LevelVerbose.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "verbose", "debug":
		return LevelVerbose, nil
	case "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarning, nil
	case "error":
		return LevelError, nil
	}
	return 0, fmt.Errorf("unknown level %q", s)
}

// EventType names an event. Packages declare their own constants, prefixed
// with the package name ("pack.resolve", "worker.parallel.start").
type EventType string

// Event is one observable occurrence. Fields map onto an OTel LogRecord:
// Type is the event name, Source the instrumentation scope and Data the
// attributes.
type Event struct {
	Type      EventType
	Level     Level
	Timestamp time.Time
	Source    string
	Data      map[string]any
}

// Observer consumes events. OnEvent must not block the emitter for long and
// must be safe for concurrent calls.
type Observer interface {
	OnEvent(ctx context.Context, event Event)
}

// MinLevel drops events below min before they reach obs.
func MinLevel(obs Observer, min Level) Observer {
	if min <= LevelVerbose {
		return obs
	}
	return levelFilter{next: obs, min: min}
}

type levelFilter struct {
	next Observer
	min  Level
}

func (f levelFilter) OnEvent(ctx context.Context, event Event) {
	if event.Level >= f.min {
		f.next.OnEvent(ctx, event)
	}
}
