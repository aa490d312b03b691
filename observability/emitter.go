package observability

import (
	"context"
	"maps"
	"slices"
	"time"
)

// Emitter stamps events with a fixed source and a set of base attributes
// before handing them to an Observer. The zero value discards events.
type Emitter struct {
	Observer Observer
	Source   string
	Attrs    map[string]any
}

// Emit builds an Event timestamped now and delivers it. Keys in data take
// precedence over the emitter's base attributes. data is not modified.
func (e Emitter) Emit(ctx context.Context, eventType EventType, level Level, data map[string]any) {
	if e.Observer == nil {
		return
	}

	merged := make(map[string]any, len(e.Attrs)+len(data))
	maps.Copy(merged, e.Attrs)
	maps.Copy(merged, data)

	e.Observer.OnEvent(ctx, Event{
		Type:      eventType,
		Level:     level,
		Timestamp: time.Now(),
		Source:    e.Source,
		Data:      merged,
	})
}

// sortedKeys returns the Data keys in lexical order so log lines for the
// same event type always render attributes identically.
func (e Event) sortedKeys() []string {
	return slices.Sorted(maps.Keys(e.Data))
}

// timestamp returns the event time, falling back to now for events built
// without one.
func (e Event) timestamp() time.Time {
	if e.Timestamp.IsZero() {
		return time.Now()
	}
	return e.Timestamp
}
