package panel

import (
	"github.com/skobkin/debugpanel/internal/connectors"
	"github.com/skobkin/debugpanel/internal/debugger"
)

const (
	textConnecting       = "Connecting..."
	textConnected        = "Connected to debugger."
	textAlreadyConnected = "Already connected."
	textNotConnected     = "Not connected."
	textClosed           = "Debugger connection closed."
	textInvalidPort      = "Port must be an integer."
)

func infoItem(text string) connectors.PanelItem {
	return connectors.PanelItem{Kind: connectors.ItemKindInfo, Text: text}
}

func errorItem(msg string) connectors.PanelItem {
	return connectors.PanelItem{Kind: connectors.ItemKindError, Text: "Error: " + msg}
}

// snapshotItems renders one row per variable, ordered by name.
func snapshotItems(snap debugger.Snapshot) []connectors.PanelItem {
	keys := snap.Keys()
	items := make([]connectors.PanelItem, 0, len(keys))
	for _, key := range keys {
		value, _ := snap.Indented(key)
		items = append(items, connectors.PanelItem{
			Kind: connectors.ItemKindVariable,
			Text: key + ":\n" + value,
		})
	}

	return items
}

func snapshotVariables(snap debugger.Snapshot) map[string]string {
	vars := make(map[string]string, len(snap))
	for key, raw := range snap {
		vars[key] = string(raw)
	}

	return vars
}
