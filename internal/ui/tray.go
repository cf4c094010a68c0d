package ui

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/theme"
)

// configureSystemTray reports whether the app supports a tray; without one
// closing the window has to quit.
func configureSystemTray(fyApp fyne.App, window fyne.Window, toggleDebugger func(), quit func()) bool {
	desk, ok := fyApp.(desktop.App)
	if !ok {
		return false
	}

	desk.SetSystemTrayIcon(theme.ComputerIcon())
	desk.SetSystemTrayMenu(fyne.NewMenu(windowTitle,
		fyne.NewMenuItem("Show", func() {
			appLogger().Debug("system tray show action invoked")
			window.Show()
			window.RequestFocus()
		}),
		fyne.NewMenuItem("Debugger", func() {
			appLogger().Debug("system tray debugger toggle invoked")
			if toggleDebugger != nil {
				toggleDebugger()
			}
		}),
		fyne.NewMenuItem("Quit", func() {
			appLogger().Debug("system tray quit action invoked")
			if quit != nil {
				quit()
			}
		}),
	))

	return true
}
