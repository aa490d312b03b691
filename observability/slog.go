package observability

import (
	"context"
	"log/slog"
)

// SlogObserver writes events through a slog.Handler. The event type is the
// message, the record carries the event's own timestamp rather than the
// time of logging, and Data keys follow "source" in sorted order.
type SlogObserver struct {
	handler slog.Handler
}

// NewSlogObserver creates a SlogObserver backed by the logger's handler.
func NewSlogObserver(logger *slog.Logger) *SlogObserver {
	return &SlogObserver{handler: logger.Handler()}
}

func (o *SlogObserver) OnEvent(ctx context.Context, event Event) {
	level := event.Level.SlogLevel()
	if !o.handler.Enabled(ctx, level) {
		return
	}

	record := slog.NewRecord(event.timestamp(), level, string(event.Type), 0)
	record.AddAttrs(slog.String("source", event.Source))
	for _, k := range event.sortedKeys() {
		record.AddAttrs(slog.Any(k, event.Data[k]))
	}
	_ = o.handler.Handle(ctx, record)
}
