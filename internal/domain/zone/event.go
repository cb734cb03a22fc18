package zone

// EventKind represents the kind of a zone subscription event.
type EventKind int

const (
	EventSubscribed EventKind = iota // Full zone population after subscribing
	EventChanged                     // Incremental additions, changes and removals
)

// String returns the string representation of the event kind.
func (k EventKind) String() string {
	switch k {
	case EventSubscribed:
		return "subscribed"
	case EventChanged:
		return "changed"
	default:
		return "unknown"
	}
}

// Event is a zone subscription event delivered by the transport.
type Event struct {
	Kind    EventKind
	Zones   []Zone   // EventSubscribed only
	Added   []Zone   // EventChanged only
	Changed []Zone   // EventChanged only
	Removed []string // EventChanged only; zone ids
}
