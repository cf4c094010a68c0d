package ui

import (
	"fmt"
	"strings"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"github.com/skobkin/debugpanel/internal/connectors"
)

const windowTitle = "Debug Panel"

type connectionStatusPresenter struct {
	window      fyne.Window
	statusLabel *widget.Label
	statusIcon  *widget.Icon

	mu      sync.RWMutex
	current connectors.ConnectionStatus
}

func newConnectionStatusPresenter(
	window fyne.Window,
	statusLabel *widget.Label,
	initialStatus connectors.ConnectionStatus,
) *connectionStatusPresenter {
	presenter := &connectionStatusPresenter{
		window:      window,
		statusLabel: statusLabel,
		statusIcon:  widget.NewIcon(connStatusIcon(initialStatus)),
		current:     initialStatus,
	}
	presenter.applyUI(initialStatus)

	return presenter
}

func (p *connectionStatusPresenter) StatusIcon() *widget.Icon {
	return p.statusIcon
}

func (p *connectionStatusPresenter) Set(status connectors.ConnectionStatus) {
	p.mu.Lock()
	p.current = status
	p.mu.Unlock()
	p.applyUI(status)
}

func (p *connectionStatusPresenter) CurrentStatus() connectors.ConnectionStatus {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.current
}

func (p *connectionStatusPresenter) applyUI(status connectors.ConnectionStatus) {
	if p.window != nil {
		p.window.SetTitle(formatWindowTitle(status))
	}
	if p.statusLabel != nil {
		p.statusLabel.SetText(formatConnStatus(status))
	}
	if p.statusIcon != nil {
		p.statusIcon.SetResource(connStatusIcon(status))
	}
}

func formatConnStatus(status connectors.ConnectionStatus) string {
	state := status.State
	if state == "" {
		state = connectors.ConnectionStateDisconnected
	}
	text := "Debugger " + string(state)
	if target := strings.TrimSpace(status.Target); target != "" {
		text += " (" + target + ")"
	}
	if errText := strings.TrimSpace(status.Err); errText != "" {
		text += " (" + errText + ")"
	}

	return text
}

func formatWindowTitle(status connectors.ConnectionStatus) string {
	return fmt.Sprintf("%s - %s", windowTitle, formatConnStatus(status))
}

func connStatusIcon(status connectors.ConnectionStatus) fyne.Resource {
	switch status.State {
	case connectors.ConnectionStateConnected:
		return theme.ConfirmIcon()
	case connectors.ConnectionStateConnecting:
		return theme.ViewRefreshIcon()
	case connectors.ConnectionStateFailed:
		return theme.ErrorIcon()
	default:
		return theme.CancelIcon()
	}
}
