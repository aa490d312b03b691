package pack

import "github.com/tailored-agentic-units/rrp/observability"

// Pack event types.
const (
	EventPut       observability.EventType = "pack.put"
	EventMissing   observability.EventType = "pack.missing"
	EventResolve   observability.EventType = "pack.resolve"
	EventLateMerge observability.EventType = "pack.lang.late_merge"
	EventClear     observability.EventType = "pack.clear"
	EventExport    observability.EventType = "pack.export"
	EventImport    observability.EventType = "pack.import"
	EventDump      observability.EventType = "pack.dump"
	EventError     observability.EventType = "pack.error"
)
