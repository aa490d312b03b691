package observability

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
)

// ErrUnknownObserver is returned when a name has no registered observer.
var ErrUnknownObserver = errors.New("unknown observer")

var (
	observers = map[string]Observer{
		"noop": NoOpObserver{},
		"slog": defaultSlog{},
	}
	mutex sync.RWMutex
)

// defaultSlog follows slog.Default at event time, so a host that installs
// its own default logger after start-up still receives pack events.
type defaultSlog struct{}

func (defaultSlog) OnEvent(ctx context.Context, event Event) {
	NewSlogObserver(slog.Default()).OnEvent(ctx, event)
}

// GetObserver resolves a configured observer name. Pre-registered names are
// "noop" and "slog"; the CLI adds "zap" once its logger is built. A
// comma-separated list such as "slog,zap" fans out to each named observer,
// and an empty name resolves to NoOpObserver.
func GetObserver(name string) (Observer, error) {
	if strings.TrimSpace(name) == "" {
		return NoOpObserver{}, nil
	}

	mutex.RLock()
	defer mutex.RUnlock()

	names := strings.Split(name, ",")
	resolved := make([]Observer, 0, len(names))
	for _, n := range names {
		obs, exists := observers[strings.TrimSpace(n)]
		if !exists {
			return nil, fmt.Errorf("%w: %s", ErrUnknownObserver, strings.TrimSpace(n))
		}
		resolved = append(resolved, obs)
	}
	if len(resolved) == 1 {
		return resolved[0], nil
	}
	return NewMultiObserver(resolved...), nil
}

// RegisterObserver adds or replaces a named observer in the global registry.
// Names may not contain commas.
func RegisterObserver(name string, observer Observer) {
	mutex.Lock()
	defer mutex.Unlock()

	observers[name] = observer
}
