package debugger

import (
	"fmt"
	"time"
)

// EventKind identifies what a worker reports to its consumer.
type EventKind int

const (
	EventConnected EventKind = iota + 1
	EventConnectionError
	EventSnapshot
	EventDecodeError
	EventSendError
	EventSocketError
	EventClosed
)

func (k EventKind) String() string {
	switch k {
	case EventConnected:
		return "connected"
	case EventConnectionError:
		return "connection_error"
	case EventSnapshot:
		return "snapshot"
	case EventDecodeError:
		return "decode_error"
	case EventSendError:
		return "send_error"
	case EventSocketError:
		return "socket_error"
	case EventClosed:
		return "closed"
	default:
		return fmt.Sprintf("event(%d)", int(k))
	}
}

// Event is one lifecycle or data notification emitted by a Worker.
type Event struct {
	Kind     EventKind
	Snapshot Snapshot
	Err      error
	At       time.Time
}

func (e Event) IsError() bool {
	switch e.Kind {
	case EventConnectionError, EventDecodeError, EventSendError, EventSocketError:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether no events follow this one.
func (e Event) IsTerminal() bool {
	return e.Kind == EventClosed || e.Kind == EventConnectionError
}

// Message renders the human-readable detail of an error event.
func (e Event) Message() string {
	detail := "unknown error"
	if e.Err != nil {
		detail = e.Err.Error()
	}

	switch e.Kind {
	case EventConnectionError:
		return "Connection failed: " + detail
	case EventDecodeError:
		return "JSON decode error: " + detail
	case EventSendError:
		return "Send error: " + detail
	case EventSocketError:
		return "Socket error: " + detail
	default:
		return e.Kind.String()
	}
}
