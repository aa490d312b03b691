package observability

import "context"

// NoOpObserver discards all events. Packs use it when no observer is
// configured, and NewMultiObserver drops it from fan-out lists.
type NoOpObserver struct{}

func (NoOpObserver) OnEvent(context.Context, Event) {}
