package rrp

import "github.com/tailored-agentic-units/rrp/observability"

// Runtime event types.
const (
	EventRegister       observability.EventType = "rrp.pack.register"
	EventPregenStart    observability.EventType = "rrp.pregen.start"
	EventPregenTask     observability.EventType = "rrp.pregen.task"
	EventPregenComplete observability.EventType = "rrp.pregen.complete"
	EventClose          observability.EventType = "rrp.close"
)
