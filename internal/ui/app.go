package ui

import (
	"errors"

	"fyne.io/fyne/v2"
	fyneapp "fyne.io/fyne/v2/app"

	debugapp "github.com/skobkin/debugpanel/internal/app"
	"github.com/skobkin/debugpanel/internal/connectors"
)

var errNoPanelController = errors.New("debugger panel controller is required")

var newFyneApp = func() fyne.App {
	return fyneapp.NewWithID(debugapp.AppID)
}

func Run(dep RuntimeDependencies) error {
	if dep.Actions.Panel == nil {
		return errNoPanelController
	}

	return runWithApp(dep, newFyneApp())
}

func runWithApp(dep RuntimeDependencies, fyApp fyne.App) error {
	if dep.Actions.Panel == nil {
		return errNoPanelController
	}
	appLogger().Info("starting UI runtime", "start_hidden", dep.Launch.StartHidden)

	window := fyApp.NewWindow(windowTitle)
	window.Resize(fyne.NewSize(560, 680))
	view := buildMainView(dep, window, resolveInitialConnStatus(dep))
	view.bindShortcuts(window)
	window.SetContent(view.content)

	stopNotifications := startNotificationService(dep, fyApp, dep.Launch.StartHidden)
	stopUIListeners := startUIEventListeners(
		dep.Data.Bus,
		func(state connectors.PanelState) {
			fyne.Do(func() {
				view.applyPanelState(state)
			})
		},
		func(status connectors.ConnectionStatus) {
			fyne.Do(func() {
				view.connStatusPresenter.Set(status)
			})
		},
	)

	uiRuntime := newUIRuntime(fyApp, window, stopNotifications, stopUIListeners, dep.Actions.OnQuit)
	hasTray := configureSystemTray(fyApp, window, view.toggleDebugger, uiRuntime.Quit)
	uiRuntime.BindCloseIntercept(hasTray)

	uiRuntime.Run(dep.Launch.StartHidden)

	return nil
}

func resolveInitialConnStatus(dep RuntimeDependencies) connectors.ConnectionStatus {
	if dep.Data.CurrentConnStatus != nil {
		if status, known := dep.Data.CurrentConnStatus(); known {
			return status
		}
	}

	return debugapp.ConnectionStatusFromConfig(dep.Data.Config.Connection)
}
