package ui

import (
	"strconv"
	"strings"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"github.com/skobkin/debugpanel/internal/config"
	"github.com/skobkin/debugpanel/internal/connectors"
)

const (
	labelConnect    = "Connect"
	labelNextBreak  = "Next Break"
	labelNextLine   = "Next Line"
	labelStopDebug  = "Stop Debugger"
	labelHiddenHint = "Debugger panel is hidden. Use View > Debugger to show it."
)

// debuggerPanel renders the controller's display state. Apply must run on the
// fyne goroutine.
type debuggerPanel struct {
	controller PanelController

	hostEntry     *widget.Entry
	portEntry     *widget.Entry
	connectButton *widget.Button
	nextButton    *widget.Button
	stepButton    *widget.Button
	stopButton    *widget.Button
	list          *widget.List
	hiddenHint    *widget.Label

	body *fyne.Container
	root *fyne.Container

	mu    sync.RWMutex
	items []connectors.PanelItem
}

func newDebuggerPanel(controller PanelController, cfg config.ConnectionConfig) *debuggerPanel {
	p := &debuggerPanel{controller: controller}

	p.hostEntry = widget.NewEntry()
	p.hostEntry.SetPlaceHolder("Host")
	p.hostEntry.SetText(strings.TrimSpace(cfg.Host))
	p.portEntry = widget.NewEntry()
	p.portEntry.SetPlaceHolder("Port")
	if cfg.Port > 0 {
		p.portEntry.SetText(strconv.Itoa(cfg.Port))
	}

	p.connectButton = widget.NewButtonWithIcon(labelConnect, theme.LoginIcon(), p.onConnect)
	p.nextButton = widget.NewButtonWithIcon(labelNextBreak, theme.MediaFastForwardIcon(), func() {
		p.runCommand("next", controller.SendNext)
	})
	p.stepButton = widget.NewButtonWithIcon(labelNextLine, theme.MediaSkipNextIcon(), func() {
		p.runCommand("step", controller.SendStep)
	})
	p.stopButton = widget.NewButtonWithIcon(labelStopDebug, theme.MediaStopIcon(), func() {
		appLogger().Debug("stop debugger requested")
		controller.StopDebugger()
	})
	p.stopButton.Importance = widget.DangerImportance

	p.list = widget.NewList(p.itemCount, p.newItemRow, p.updateItemRow)
	p.hiddenHint = widget.NewLabel(labelHiddenHint)
	p.hiddenHint.Alignment = fyne.TextAlignCenter

	endpointForm := container.NewBorder(nil, nil, widget.NewLabel("Host"), nil,
		container.NewGridWithColumns(2,
			p.hostEntry,
			container.NewBorder(nil, nil, widget.NewLabel("Port"), nil, p.portEntry),
		),
	)
	toolbar := container.NewVBox(
		container.NewBorder(nil, nil, nil, p.connectButton, endpointForm),
		container.NewGridWithColumns(3, p.nextButton, p.stepButton, p.stopButton),
		widget.NewSeparator(),
	)
	p.body = container.NewBorder(toolbar, nil, nil, nil, p.list)
	p.root = container.NewStack(p.body, container.NewCenter(p.hiddenHint))

	p.Apply(controller.State())

	return p
}

func (p *debuggerPanel) Content() fyne.CanvasObject {
	return p.root
}

func (p *debuggerPanel) Apply(state connectors.PanelState) {
	p.mu.Lock()
	p.items = append(p.items[:0], state.Items...)
	p.mu.Unlock()

	if state.ActionsEnabled {
		p.nextButton.Enable()
		p.stepButton.Enable()
		p.stopButton.Enable()
	} else {
		p.nextButton.Disable()
		p.stepButton.Disable()
		p.stopButton.Disable()
	}

	if state.Visible {
		p.hiddenHint.Hide()
		p.body.Show()
	} else {
		p.body.Hide()
		p.hiddenHint.Show()
	}

	p.resizeRows(state.Items)
	p.list.Refresh()
	if n := len(state.Items); n > 0 {
		p.list.ScrollToBottom()
	}
}

func (p *debuggerPanel) onConnect() {
	host := p.hostEntry.Text
	port := p.portEntry.Text
	appLogger().Debug("connect requested", "host", host, "port", port)
	if err := p.controller.Connect(host, port); err != nil {
		appLogger().Info("connect rejected", "error", err)
	}
}

func (p *debuggerPanel) runCommand(name string, send func() error) {
	if err := send(); err != nil {
		appLogger().Info("command rejected", "command", name, "error", err)
	}
}

func (p *debuggerPanel) itemCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return len(p.items)
}

func (p *debuggerPanel) itemAt(id widget.ListItemID) (connectors.PanelItem, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if id < 0 || id >= len(p.items) {
		return connectors.PanelItem{}, false
	}

	return p.items[id], true
}

func (p *debuggerPanel) newItemRow() fyne.CanvasObject {
	label := widget.NewLabel("")
	label.Wrapping = fyne.TextWrapWord

	return label
}

func (p *debuggerPanel) updateItemRow(id widget.ListItemID, obj fyne.CanvasObject) {
	label, ok := obj.(*widget.Label)
	if !ok {
		return
	}
	item, ok := p.itemAt(id)
	if !ok {
		label.SetText("")
		return
	}

	label.TextStyle = fyne.TextStyle{Monospace: item.Kind == connectors.ItemKindVariable}
	switch item.Kind {
	case connectors.ItemKindError:
		label.Importance = widget.DangerImportance
	default:
		label.Importance = widget.MediumImportance
	}
	label.SetText(item.Text)
}

// resizeRows gives multi-line snapshot rows room for every line.
func (p *debuggerPanel) resizeRows(items []connectors.PanelItem) {
	for id, item := range items {
		style := fyne.TextStyle{Monospace: item.Kind == connectors.ItemKindVariable}
		lines := strings.Count(item.Text, "\n") + 1
		lineHeight := fyne.MeasureText("M", theme.TextSize(), style).Height
		p.list.SetItemHeight(id, lineHeight*float32(lines)+theme.InnerPadding()*2)
	}
}
