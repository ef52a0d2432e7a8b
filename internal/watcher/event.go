package watcher

import "time"

// EventType represents the type of file system event.
type EventType int

const (
	// EventAdded is emitted when a file not seen before has settled.
	EventAdded EventType = iota
	// EventModified is emitted when a known file has settled after a change.
	EventModified
	// EventRemoved is emitted when a file or directory is deleted or renamed away.
	EventRemoved
)

// String returns the string representation of the event type.
func (t EventType) String() string {
	switch t {
	case EventAdded:
		return "added"
	case EventModified:
		return "modified"
	case EventRemoved:
		return "removed"
	default:
		return "unknown"
	}
}

// Event represents a settled file system change.
type Event struct {
	ModTime time.Time
	Path    string
	Inode   uint64
	Size    int64
	Type    EventType
}
