package core

import "time"

// EventVariant tags the broad category of an Event, grounded on the
// teacher's event.EventType distinction between session/message/permission
// events (internal/event/bus.go in the retrieved opencode example).
type EventVariant string

const (
	VariantSession   EventVariant = "session"
	VariantStep      EventVariant = "step"
	VariantCommunity EventVariant = "community"
)

// Reserved event names (spec.md §6).
const (
	EventPromptSubmitted  = "promptSubmitted"
	EventResponseCompleted = "responseCompleted"
	EventNotification     = "notification"
)

// Event is a value carrying a typed name, a timestamp, an optional payload,
// and a variant tag.
type Event struct {
	Name      string
	Variant   EventVariant
	Timestamp time.Time
	Payload   any
}

// NewEvent builds an Event stamped with the current time.
func NewEvent(name string, variant EventVariant, payload any) Event {
	return Event{Name: name, Variant: variant, Timestamp: time.Now(), Payload: payload}
}

// RunEvent is the value type forwarded by an EventSink to a Transport.
type RunEvent struct {
	Event
	SessionID string
}
