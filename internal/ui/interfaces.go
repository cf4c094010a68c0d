package ui

import "github.com/skobkin/debugpanel/internal/connectors"

// PanelController is the part of panel.Controller the view drives.
type PanelController interface {
	Connect(host, port string) error
	SendNext() error
	SendStep() error
	StopDebugger()
	ToggleVisibility() bool
	State() connectors.PanelState
}
