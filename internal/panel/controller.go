package panel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/skobkin/debugpanel/internal/bus"
	"github.com/skobkin/debugpanel/internal/connectors"
	"github.com/skobkin/debugpanel/internal/debugger"
)

const defaultMaxItems = 500

var (
	ErrInvalidPort      = errors.New("port must be an integer")
	ErrAlreadyConnected = errors.New("already connected")
	ErrNotConnected     = errors.New("not connected")
)

// Options configure a Controller.
type Options struct {
	Factory  WorkerFactory
	MaxItems int
	Visible  bool
	// OnConnected runs on the event goroutine after a worker reports a connection.
	OnConnected func(endpoint debugger.Endpoint)
}

// Controller owns at most one live debugger worker and the panel display
// state derived from its events. All methods are safe for concurrent use.
type Controller struct {
	ctx         context.Context
	logger      *slog.Logger
	bus         bus.MessageBus
	factory     WorkerFactory
	maxItems    int
	onConnected func(debugger.Endpoint)

	mu             sync.Mutex
	worker         Worker
	endpoint       debugger.Endpoint
	state          connectors.ConnectionState
	actionsEnabled bool
	visible        bool
	items          []connectors.PanelItem

	consumers sync.WaitGroup
}

func New(ctx context.Context, logger *slog.Logger, b bus.MessageBus, opts Options) *Controller {
	if ctx == nil {
		ctx = context.Background()
	}
	if logger == nil {
		logger = slog.Default()
	}
	factory := opts.Factory
	if factory == nil {
		factory = NewWorkerFactory(debugger.Options{Logger: logger})
	}
	maxItems := opts.MaxItems
	if maxItems <= 0 {
		maxItems = defaultMaxItems
	}

	return &Controller{
		ctx:         ctx,
		logger:      logger,
		bus:         b,
		factory:     factory,
		maxItems:    maxItems,
		onConnected: opts.OnConnected,
		state:       connectors.ConnectionStateDisconnected,
		visible:     opts.Visible,
	}
}

// Connect parses the user-entered endpoint and starts a worker for it.
func (c *Controller) Connect(host, port string) error {
	portNum, err := strconv.Atoi(strings.TrimSpace(port))
	if err != nil {
		c.mu.Lock()
		c.appendItemLocked(errorItem(textInvalidPort))
		c.publishPanelLocked()
		c.mu.Unlock()

		return fmt.Errorf("%w: %q", ErrInvalidPort, port)
	}

	return c.ConnectEndpoint(debugger.Endpoint{Host: strings.TrimSpace(host), Port: portNum})
}

func (c *Controller) ConnectEndpoint(endpoint debugger.Endpoint) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.worker != nil {
		c.appendItemLocked(infoItem(textAlreadyConnected))
		c.publishPanelLocked()

		return ErrAlreadyConnected
	}
	if err := endpoint.Validate(); err != nil {
		c.appendItemLocked(errorItem("Invalid endpoint: " + err.Error()))
		c.publishPanelLocked()

		return fmt.Errorf("invalid endpoint: %w", err)
	}

	c.appendItemLocked(infoItem(textConnecting))
	w := c.factory(endpoint)
	c.worker = w
	c.endpoint = endpoint
	c.actionsEnabled = false

	if err := w.Start(c.ctx); err != nil {
		c.worker = nil
		c.logger.Warn("start worker failed", "target", endpoint.Address(), "error", err)
		c.appendItemLocked(errorItem("Connection failed: " + err.Error()))
		c.setStateLocked(connectors.ConnectionStateFailed, err)
		c.publishPanelLocked()

		return fmt.Errorf("start worker: %w", err)
	}

	c.logger.Info("connecting", "target", endpoint.Address())
	c.setStateLocked(connectors.ConnectionStateConnecting, nil)
	c.publishPanelLocked()

	c.consumers.Add(1)
	go c.consume(w)

	return nil
}

func (c *Controller) SendNext() error {
	return c.send(debugger.CommandNext)
}

func (c *Controller) SendStep() error {
	return c.send(debugger.CommandStep)
}

// StopDebugger sends STOP to a connected debugger and closes the connection
// once it is written. A worker that is still connecting is stopped directly.
func (c *Controller) StopDebugger() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.worker == nil {
		return
	}
	if c.actionsEnabled {
		c.worker.Enqueue(debugger.CommandStop)
		c.worker.StopWhenDrained()
		return
	}
	c.worker.Stop()
}

func (c *Controller) ToggleVisibility() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.visible = !c.visible
	c.publishPanelLocked()

	return c.visible
}

func (c *Controller) SetVisible(visible bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.visible == visible {
		return
	}
	c.visible = visible
	c.publishPanelLocked()
}

// State returns a copy of the current display state.
func (c *Controller) State() connectors.PanelState {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.panelStateLocked()
}

// Live reports whether a worker is owned and not yet terminal.
func (c *Controller) Live() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.worker != nil
}

// Close stops the live worker and waits for its events to be consumed.
func (c *Controller) Close() {
	c.mu.Lock()
	w := c.worker
	c.mu.Unlock()

	if w != nil {
		w.Stop()
	}
	c.consumers.Wait()
}

func (c *Controller) send(cmd []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.worker == nil || !c.actionsEnabled {
		c.appendItemLocked(infoItem(textNotConnected))
		c.publishPanelLocked()

		return ErrNotConnected
	}
	c.worker.Enqueue(cmd)
	c.logger.Debug("command queued", "command", strings.TrimSpace(string(cmd)))

	return nil
}

func (c *Controller) consume(w Worker) {
	defer c.consumers.Done()

	for ev := range w.Events() {
		if endpoint, connected := c.handleEvent(w, ev); connected && c.onConnected != nil {
			c.onConnected(endpoint)
		}
	}
	c.release(w)
}

func (c *Controller) handleEvent(w Worker, ev debugger.Event) (debugger.Endpoint, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.worker != w {
		c.logger.Debug("ignoring event from released worker", "kind", ev.Kind.String())
		return debugger.Endpoint{}, false
	}

	connected := false
	switch ev.Kind {
	case debugger.EventConnected:
		c.actionsEnabled = true
		c.appendItemLocked(infoItem(textConnected))
		c.setStateLocked(connectors.ConnectionStateConnected, nil)
		connected = true
	case debugger.EventSnapshot:
		c.items = snapshotItems(ev.Snapshot)
		c.publish(connectors.TopicSnapshot, connectors.SnapshotUpdate{
			Target:    c.endpoint.Address(),
			Variables: snapshotVariables(ev.Snapshot),
			Keys:      ev.Snapshot.Keys(),
			Timestamp: ev.At,
		})
	case debugger.EventConnectionError:
		c.reportLocked(ev)
		c.worker = nil
		c.actionsEnabled = false
		c.setStateLocked(connectors.ConnectionStateFailed, ev.Err)
	case debugger.EventDecodeError, debugger.EventSendError, debugger.EventSocketError:
		c.reportLocked(ev)
	case debugger.EventClosed:
		c.appendItemLocked(infoItem(textClosed))
		c.worker = nil
		c.actionsEnabled = false
		c.setStateLocked(connectors.ConnectionStateClosed, nil)
	default:
		c.logger.Debug("ignoring unknown worker event", "kind", ev.Kind.String())
		return debugger.Endpoint{}, false
	}
	c.publishPanelLocked()

	return c.endpoint, connected
}

// release drops a worker whose event stream ended without a terminal event.
func (c *Controller) release(w Worker) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.worker != w {
		return
	}
	c.worker = nil
	c.actionsEnabled = false
	c.setStateLocked(connectors.ConnectionStateClosed, nil)
	c.publishPanelLocked()
}

func (c *Controller) reportLocked(ev debugger.Event) {
	msg := ev.Message()
	c.appendItemLocked(errorItem(msg))
	c.publish(connectors.TopicDiagnostic, connectors.Diagnostic{Message: msg, Timestamp: ev.At})
}

func (c *Controller) appendItemLocked(item connectors.PanelItem) {
	c.items = append(c.items, item)
	c.trimItemsLocked()
}

// trimItemsLocked keeps at most maxItems messages, dropping the oldest.
// Snapshot variables do not count toward the cap and are never dropped.
func (c *Controller) trimItemsLocked() {
	messages := 0
	for _, item := range c.items {
		if item.Kind != connectors.ItemKindVariable {
			messages++
		}
	}
	extra := messages - c.maxItems
	if extra <= 0 {
		return
	}

	kept := make([]connectors.PanelItem, 0, len(c.items)-extra)
	for _, item := range c.items {
		if extra > 0 && item.Kind != connectors.ItemKindVariable {
			extra--
			continue
		}
		kept = append(kept, item)
	}
	c.items = kept
}

func (c *Controller) setStateLocked(state connectors.ConnectionState, err error) {
	c.state = state
	status := connectors.ConnectionStatus{
		State:     state,
		Target:    c.endpoint.Address(),
		Timestamp: time.Now(),
	}
	if err != nil {
		status.Err = err.Error()
	}
	c.publish(connectors.TopicConnStatus, status)
}

func (c *Controller) panelStateLocked() connectors.PanelState {
	target := ""
	if c.endpoint.Host != "" {
		target = c.endpoint.Address()
	}

	return connectors.PanelState{
		State:          c.state,
		Target:         target,
		ActionsEnabled: c.actionsEnabled,
		Visible:        c.visible,
		Items:          append([]connectors.PanelItem(nil), c.items...),
	}
}

func (c *Controller) publishPanelLocked() {
	c.publish(connectors.TopicPanelState, c.panelStateLocked())
}

func (c *Controller) publish(topic string, msg any) {
	if c.bus == nil {
		return
	}
	c.bus.Publish(topic, msg)
}
