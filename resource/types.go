package resource

// Handle is an opaque, process-unique reference to an interned object.
// The zero Handle is never issued.
type Handle string

// String returns the handle token.
func (h Handle) String() string { return string(h) }

// EventType identifies a lifecycle notification.
type EventType uint8

const (
	EventInterned EventType = iota
	EventReleased
)

// Event represents an object lifecycle event.
type Event struct {
	Value  any
	Handle Handle
	FQN    string
	Type   EventType
}

// Observer receives notifications about object lifecycle events.
type Observer interface {
	OnObjectEvent(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

// OnObjectEvent calls f(e).
func (f ObserverFunc) OnObjectEvent(e Event) { f(e) }

// Dropper is optionally implemented by objects that need cleanup when
// their handle is released.
type Dropper interface {
	Drop()
}
