package ingest

import "github.com/djivites/startup-intelligence-rag-sample/internal/feed"

// EventType names a pipeline step outcome.
type EventType int

const (
	EventFeed EventType = iota
	EventSkipped
	EventTooShort
	EventFailed
	EventArchived
	EventFacts
	EventDegraded
)

func (t EventType) String() string {
	switch t {
	case EventFeed:
		return "feed"
	case EventSkipped:
		return "skipped"
	case EventTooShort:
		return "too_short"
	case EventFailed:
		return "failed"
	case EventArchived:
		return "archived"
	case EventFacts:
		return "facts"
	case EventDegraded:
		return "degraded"
	}
	return "unknown"
}

// Event reports one step. Count is set for EventFeed, Path for archive and
// record writes, Err for failures.
type Event struct {
	Type   EventType
	Source feed.Source
	Entry  feed.SourcedEntry
	Path   string
	Count  int
	Err    error
}

// Observer receives progress events. Implementations must not block.
type Observer interface {
	Observe(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

func (f ObserverFunc) Observe(e Event) { f(e) }

type nopObserver struct{}

func (nopObserver) Observe(Event) {}
