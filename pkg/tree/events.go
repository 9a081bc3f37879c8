package tree

// EventKind identifies what changed in a store.
type EventKind int

const (
	EventEntries EventKind = iota + 1
	EventExpansion
	EventSelection
	EventSearch
	EventLoading
	EventContextReset
	EventValidation
)

func (k EventKind) String() string {
	switch k {
	case EventEntries:
		return "entries"
	case EventExpansion:
		return "expansion"
	case EventSelection:
		return "selection"
	case EventSearch:
		return "search"
	case EventLoading:
		return "loading"
	case EventContextReset:
		return "context-reset"
	case EventValidation:
		return "validation"
	}
	return "unknown"
}

// Event is delivered to listeners after the change has been committed.
// ID names the affected entry when there is exactly one.
type Event struct {
	Kind      EventKind
	ID        string
	ContextID string
}

// Listener receives store events. Listeners run outside the store lock and
// may call back into the store.
type Listener func(Event)
