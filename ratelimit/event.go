package ratelimit

import "time"

// EventType classifies decision events.
type EventType string

const (
	// EventAllowed means the request was admitted.
	EventAllowed EventType = "allowed"

	// EventDenied means the request was rejected (no rule, blocked, or over
	// quota).
	EventDenied EventType = "denied"

	// EventBlocked means a caller transitioned into the blocked state.
	EventBlocked EventType = "blocked"

	// EventUnblocked means a lapsed block was lifted and history reset.
	EventUnblocked EventType = "unblocked"
)

// Event is one decision outcome published on the bus.
type Event struct {
	Type         EventType
	CallerKey    string
	Reason       string
	BlockedUntil time.Time
	Timestamp    time.Time
}

// EventListener receives published events.
type EventListener interface {
	OnEvent(event Event)
}

// EventListenerFunc adapts a function to EventListener.
type EventListenerFunc func(event Event)

// OnEvent implements EventListener.
func (f EventListenerFunc) OnEvent(event Event) {
	f(event)
}

// EventBus decouples decision making from event consumers.
type EventBus interface {
	// Subscribe registers a listener.
	Subscribe(listener EventListener)

	// Publish delivers an event asynchronously; it never blocks the
	// decision path.
	Publish(event Event)

	// Close stops dispatching.
	Close()
}
