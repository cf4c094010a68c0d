package ui

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"

	"github.com/skobkin/debugpanel/internal/connectors"
)

var debuggerShortcut = &desktop.CustomShortcut{
	KeyName:  fyne.KeyD,
	Modifier: fyne.KeyModifierShortcutDefault,
}

type mainView struct {
	content             fyne.CanvasObject
	panel               *debuggerPanel
	connStatusPresenter *connectionStatusPresenter
	mainMenu            *fyne.MainMenu
	debuggerMenuItem    *fyne.MenuItem
	toggleDebugger      func()
}

func buildMainView(
	dep RuntimeDependencies,
	window fyne.Window,
	initialStatus connectors.ConnectionStatus,
) *mainView {
	controller := dep.Actions.Panel
	view := &mainView{
		panel: newDebuggerPanel(controller, dep.Data.Config.Connection),
	}

	statusLabel := widget.NewLabel("")
	statusLabel.Truncation = fyne.TextTruncateEllipsis
	view.connStatusPresenter = newConnectionStatusPresenter(window, statusLabel, initialStatus)

	view.toggleDebugger = func() {
		visible := controller.ToggleVisibility()
		appLogger().Debug("debugger panel toggled", "visible", visible)
		view.applyPanelState(controller.State())
		if dep.Actions.OnPanelVisibilityChanged != nil {
			dep.Actions.OnPanelVisibilityChanged(visible)
		}
	}

	view.debuggerMenuItem = fyne.NewMenuItem("Debugger", view.toggleDebugger)
	view.debuggerMenuItem.Shortcut = debuggerShortcut
	view.debuggerMenuItem.Checked = controller.State().Visible
	view.mainMenu = fyne.NewMainMenu(fyne.NewMenu("View", view.debuggerMenuItem))

	statusBar := container.NewBorder(nil, nil, view.connStatusPresenter.StatusIcon(), nil, statusLabel)
	view.content = container.NewBorder(nil, container.NewVBox(widget.NewSeparator(), statusBar), nil, nil, view.panel.Content())

	return view
}

func (v *mainView) applyPanelState(state connectors.PanelState) {
	v.panel.Apply(state)
	if v.debuggerMenuItem.Checked != state.Visible {
		v.debuggerMenuItem.Checked = state.Visible
		v.mainMenu.Refresh()
	}
}

func (v *mainView) bindShortcuts(window fyne.Window) {
	window.SetMainMenu(v.mainMenu)
	window.Canvas().AddShortcut(debuggerShortcut, func(fyne.Shortcut) {
		v.toggleDebugger()
	})
}
