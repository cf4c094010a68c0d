package connectors

import "time"

// ConnectionState describes the socket worker lifecycle state shown in UI.
type ConnectionState string

const (
	ConnectionStateDisconnected ConnectionState = "disconnected"
	ConnectionStateConnecting   ConnectionState = "connecting"
	ConnectionStateConnected    ConnectionState = "connected"
	ConnectionStateClosed       ConnectionState = "closed"
	ConnectionStateFailed       ConnectionState = "failed"
)

// IsTerminal reports whether no further transitions can leave the state.
func (s ConnectionState) IsTerminal() bool {
	return s == ConnectionStateClosed || s == ConnectionStateFailed
}

// IsLive reports whether a worker in this state still owns (or is acquiring) a socket.
func (s ConnectionState) IsLive() bool {
	return s == ConnectionStateConnecting || s == ConnectionStateConnected
}

// ConnectionStatus is a bus event snapshot of the current worker status.
type ConnectionStatus struct {
	State     ConnectionState
	Err       string
	Target    string
	Timestamp time.Time
}

// ItemKind tells the view how a display row was produced.
type ItemKind string

const (
	ItemKindInfo     ItemKind = "info"
	ItemKindError    ItemKind = "error"
	ItemKindVariable ItemKind = "variable"
)

// PanelItem is one row of the debugger panel list.
type PanelItem struct {
	Kind ItemKind
	Text string
}

// PanelState is a full copy of what the debugger panel should render.
type PanelState struct {
	State          ConnectionState
	Target         string
	ActionsEnabled bool
	Visible        bool
	Items          []PanelItem
}

// Diagnostic is a non-fatal message reported by the panel controller.
type Diagnostic struct {
	Message   string
	Timestamp time.Time
}

// SnapshotUpdate carries the variables received from the remote debugger.
type SnapshotUpdate struct {
	Target    string
	Variables map[string]string
	Keys      []string
	Timestamp time.Time
}
