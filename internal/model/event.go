package model

import "fmt"

// EventType classifies an inbound focus event from a watcher.
type EventType string

const (
	EventFocusChange EventType = "focus_change"
	EventFocusLost   EventType = "focus_lost"
	EventAFK         EventType = "afk" // reserved; currently no effect
)

// String returns the canonical lowercase wire form.
func (t EventType) String() string {
	return string(t)
}

// ParseEventType decodes the canonical lowercase wire form. Unknown values
// are returned as an error so callers can choose to tolerate them (the
// daemon ignores unrecognized event types rather than treating them as
// fatal; see the scheduler's event loop).
func ParseEventType(s string) (EventType, error) {
	switch EventType(s) {
	case EventFocusChange, EventFocusLost, EventAFK:
		return EventType(s), nil
	default:
		return "", fmt.Errorf("model: %q is not a valid event type", s)
	}
}

// Event is an inbound message from a watcher reporting a change in focus.
type Event struct {
	EventType   EventType
	Source      Host
	DisplayName string // empty when EventType is EventFocusLost
	Metadata    string // opaque, source-specific (e.g. a JSON-encoded tab id)
}
