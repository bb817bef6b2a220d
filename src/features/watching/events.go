package watching

import (
	"context"
	"time"
)

// EventKind represents the type of file system event
type EventKind string

const (
	FileCreated  EventKind = "created"
	FileModified EventKind = "modified"
	FileRemoved  EventKind = "removed"
	FileRenamed  EventKind = "renamed"
)

// Event represents a single schema-file change observed on disk. Events are
// ephemeral: they only exist between observation and the next debounce flush.
type Event struct {
	Path      string
	Kind      EventKind
	Timestamp time.Time
}

// Observer produces Events for a fixed set of watch paths until the context
// is cancelled or Stop is called. Concrete backends (native notifications,
// polling) live under src/infra and are swappable behind this interface.
type Observer interface {
	Start(ctx context.Context) error
	Stop()
}
