package panel

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/skobkin/debugpanel/internal/bus"
	"github.com/skobkin/debugpanel/internal/connectors"
	"github.com/skobkin/debugpanel/internal/debugger"
)

type fakeWorker struct {
	endpoint debugger.Endpoint
	events   chan debugger.Event
	startErr error

	mu       sync.Mutex
	started  bool
	stopped  bool
	drained  bool
	commands []string
}

func newFakeWorker(endpoint debugger.Endpoint) *fakeWorker {
	return &fakeWorker{endpoint: endpoint, events: make(chan debugger.Event, 16)}
}

func (w *fakeWorker) Start(context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.startErr != nil {
		return w.startErr
	}
	w.started = true

	return nil
}

func (w *fakeWorker) Enqueue(cmd []byte) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.commands = append(w.commands, string(cmd))
}

func (w *fakeWorker) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stopped = true
}

func (w *fakeWorker) StopWhenDrained() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.drained = true
}

func (w *fakeWorker) Events() <-chan debugger.Event {
	return w.events
}

func (w *fakeWorker) emit(ev debugger.Event) {
	w.events <- ev
	if ev.IsTerminal() {
		close(w.events)
	}
}

func (w *fakeWorker) sentCommands() []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	return append([]string(nil), w.commands...)
}

type fakeFactory struct {
	mu      sync.Mutex
	workers []*fakeWorker
}

func (f *fakeFactory) build(endpoint debugger.Endpoint) Worker {
	f.mu.Lock()
	defer f.mu.Unlock()
	w := newFakeWorker(endpoint)
	f.workers = append(f.workers, w)

	return w
}

func (f *fakeFactory) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.workers)
}

func (f *fakeFactory) last() *fakeWorker {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.workers[len(f.workers)-1]
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestController(t *testing.T, opts Options) (*Controller, *fakeFactory) {
	t.Helper()
	factory := &fakeFactory{}
	if opts.Factory == nil {
		opts.Factory = factory.build
	}
	c := New(context.Background(), discardLogger(), nil, opts)

	return c, factory
}

func waitForCondition(t *testing.T, check func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if check() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition was not met before timeout")
}

func itemTexts(state connectors.PanelState) []string {
	out := make([]string, 0, len(state.Items))
	for _, item := range state.Items {
		out = append(out, item.Text)
	}

	return out
}

func lastItem(c *Controller) string {
	items := itemTexts(c.State())
	if len(items) == 0 {
		return ""
	}

	return items[len(items)-1]
}

func connectFake(t *testing.T, c *Controller, f *fakeFactory) *fakeWorker {
	t.Helper()
	if err := c.Connect("127.0.0.1", "5000"); err != nil {
		t.Fatalf("connect: %v", err)
	}
	w := f.last()
	w.emit(debugger.Event{Kind: debugger.EventConnected})
	waitForCondition(t, func() bool { return c.State().ActionsEnabled })

	return w
}

func TestConnectRejectsNonIntegerPort(t *testing.T) {
	c, f := newTestController(t, Options{})

	err := c.Connect("127.0.0.1", "50x0")
	if !errors.Is(err, ErrInvalidPort) {
		t.Fatalf("expected %v, got %v", ErrInvalidPort, err)
	}
	if got := lastItem(c); got != "Error: Port must be an integer." {
		t.Fatalf("unexpected item %q", got)
	}
	if f.count() != 0 {
		t.Fatalf("expected no worker to be created")
	}
}

func TestConnectRejectsOutOfRangePort(t *testing.T) {
	c, f := newTestController(t, Options{})

	if err := c.Connect("127.0.0.1", "70000"); err == nil {
		t.Fatalf("expected endpoint validation error")
	}
	if f.count() != 0 {
		t.Fatalf("expected no worker to be created")
	}
	if !strings.HasPrefix(lastItem(c), "Error: Invalid endpoint") {
		t.Fatalf("unexpected item %q", lastItem(c))
	}
}

func TestConnectRefusesSecondLiveWorker(t *testing.T) {
	c, f := newTestController(t, Options{})

	if err := c.Connect(" 127.0.0.1 ", "5000"); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if got := f.last().endpoint; got != (debugger.Endpoint{Host: "127.0.0.1", Port: 5000}) {
		t.Fatalf("unexpected endpoint %+v", got)
	}
	if state := c.State(); state.State != connectors.ConnectionStateConnecting || state.ActionsEnabled {
		t.Fatalf("unexpected state after connect: %+v", state)
	}

	if err := c.Connect("127.0.0.1", "5000"); !errors.Is(err, ErrAlreadyConnected) {
		t.Fatalf("expected %v, got %v", ErrAlreadyConnected, err)
	}
	if f.count() != 1 {
		t.Fatalf("expected exactly one worker, got %d", f.count())
	}
	if got := lastItem(c); got != "Already connected." {
		t.Fatalf("unexpected item %q", got)
	}
}

func TestCommandsAreGatedOnConnection(t *testing.T) {
	c, f := newTestController(t, Options{})

	if err := c.SendStep(); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("expected %v before connect, got %v", ErrNotConnected, err)
	}
	if got := lastItem(c); got != "Not connected." {
		t.Fatalf("unexpected item %q", got)
	}

	if err := c.Connect("127.0.0.1", "5000"); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if err := c.SendNext(); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("expected %v while connecting, got %v", ErrNotConnected, err)
	}

	w := f.last()
	w.emit(debugger.Event{Kind: debugger.EventConnected})
	waitForCondition(t, func() bool { return c.State().ActionsEnabled })

	if err := c.SendNext(); err != nil {
		t.Fatalf("send next: %v", err)
	}
	if err := c.SendStep(); err != nil {
		t.Fatalf("send step: %v", err)
	}
	if got := w.sentCommands(); len(got) != 2 || got[0] != "NEXT\n" || got[1] != "STEP\n" {
		t.Fatalf("unexpected commands: %q", got)
	}
	if got := lastItem(c); got != "Connected to debugger." {
		t.Fatalf("unexpected item %q", got)
	}
}

func TestSnapshotReplacesDisplayedItems(t *testing.T) {
	c, f := newTestController(t, Options{})
	w := connectFake(t, c, f)

	first, _ := debugger.DecodeSnapshot([]byte(`{"b": 2, "a": {"n": 1}}`))
	w.emit(debugger.Event{Kind: debugger.EventSnapshot, Snapshot: first})
	waitForCondition(t, func() bool { return len(c.State().Items) == 2 })

	items := itemTexts(c.State())
	if items[0] != "a:\n{\n  \"n\": 1\n}" || items[1] != "b:\n2" {
		t.Fatalf("unexpected snapshot rows: %q", items)
	}

	second, _ := debugger.DecodeSnapshot([]byte(`{"c": true}`))
	w.emit(debugger.Event{Kind: debugger.EventSnapshot, Snapshot: second})
	waitForCondition(t, func() bool {
		items := itemTexts(c.State())
		return len(items) == 1 && items[0] == "c:\ntrue"
	})
}

func TestErrorEventsAppendDiagnostics(t *testing.T) {
	c, f := newTestController(t, Options{})
	w := connectFake(t, c, f)

	w.emit(debugger.Event{Kind: debugger.EventDecodeError, Err: errors.New("unexpected end of JSON input")})
	waitForCondition(t, func() bool {
		return lastItem(c) == "Error: JSON decode error: unexpected end of JSON input"
	})
	if !c.State().ActionsEnabled {
		t.Fatalf("decode errors must not disable actions")
	}
}

func TestClosedReleasesWorkerAndAllowsReconnect(t *testing.T) {
	c, f := newTestController(t, Options{})
	w := connectFake(t, c, f)

	w.emit(debugger.Event{Kind: debugger.EventSocketError, Err: errors.New("connection closed by peer")})
	w.emit(debugger.Event{Kind: debugger.EventClosed})
	waitForCondition(t, func() bool { return !c.Live() })

	state := c.State()
	if state.ActionsEnabled || state.State != connectors.ConnectionStateClosed {
		t.Fatalf("unexpected state after close: %+v", state)
	}
	items := itemTexts(state)
	if len(items) < 2 || items[len(items)-2] != "Error: Socket error: connection closed by peer" || items[len(items)-1] != "Debugger connection closed." {
		t.Fatalf("unexpected items: %q", items)
	}

	if err := c.Connect("127.0.0.1", "5000"); err != nil {
		t.Fatalf("reconnect: %v", err)
	}
	if f.count() != 2 {
		t.Fatalf("expected a second worker, got %d", f.count())
	}
}

func TestConnectionErrorReleasesWorker(t *testing.T) {
	c, f := newTestController(t, Options{})
	if err := c.Connect("127.0.0.1", "5000"); err != nil {
		t.Fatalf("connect: %v", err)
	}

	f.last().emit(debugger.Event{Kind: debugger.EventConnectionError, Err: errors.New("refused")})
	waitForCondition(t, func() bool { return !c.Live() })

	if got := c.State().State; got != connectors.ConnectionStateFailed {
		t.Fatalf("expected failed state, got %q", got)
	}
	if got := lastItem(c); got != "Error: Connection failed: refused" {
		t.Fatalf("unexpected item %q", got)
	}
	if err := c.Connect("127.0.0.1", "5000"); err != nil {
		t.Fatalf("connect after failure: %v", err)
	}
}

func TestStartFailureDoesNotKeepWorker(t *testing.T) {
	startErr := errors.New("bad framing")
	c, _ := newTestController(t, Options{Factory: func(endpoint debugger.Endpoint) Worker {
		w := newFakeWorker(endpoint)
		w.startErr = startErr
		return w
	}})

	if err := c.Connect("127.0.0.1", "5000"); !errors.Is(err, startErr) {
		t.Fatalf("expected start error, got %v", err)
	}
	if c.Live() {
		t.Fatalf("expected no live worker after start failure")
	}
}

func TestStopDebuggerSendsStopWhenConnected(t *testing.T) {
	c, f := newTestController(t, Options{})
	w := connectFake(t, c, f)

	c.StopDebugger()

	if got := w.sentCommands(); len(got) != 1 || got[0] != "STOP\n" {
		t.Fatalf("expected STOP command, got %q", got)
	}
	w.mu.Lock()
	drained, stopped := w.drained, w.stopped
	w.mu.Unlock()
	if !drained || stopped {
		t.Fatalf("expected drain stop, got drained=%v stopped=%v", drained, stopped)
	}
}

func TestStopDebuggerWhileConnectingStopsWorker(t *testing.T) {
	c, f := newTestController(t, Options{})
	if err := c.Connect("127.0.0.1", "5000"); err != nil {
		t.Fatalf("connect: %v", err)
	}

	c.StopDebugger()

	w := f.last()
	w.mu.Lock()
	stopped := w.stopped
	w.mu.Unlock()
	if !stopped {
		t.Fatalf("expected worker to be stopped")
	}
	if got := w.sentCommands(); len(got) != 0 {
		t.Fatalf("expected no commands while connecting, got %q", got)
	}
}

func TestEventsFromReleasedWorkerAreIgnored(t *testing.T) {
	c, f := newTestController(t, Options{})
	w := connectFake(t, c, f)
	w.emit(debugger.Event{Kind: debugger.EventClosed})
	waitForCondition(t, func() bool { return !c.Live() })

	before := itemTexts(c.State())
	if _, connected := c.handleEvent(w, debugger.Event{Kind: debugger.EventConnected}); connected {
		t.Fatalf("expected stale event to be ignored")
	}
	if after := itemTexts(c.State()); len(after) != len(before) {
		t.Fatalf("stale event changed items: %q", after)
	}
}

func TestItemsAreBoundedByMaxItems(t *testing.T) {
	c, _ := newTestController(t, Options{MaxItems: 3})
	for i := 0; i < 5; i++ {
		_ = c.SendStep()
	}

	if got := len(c.State().Items); got != 3 {
		t.Fatalf("expected 3 items, got %d", got)
	}
}

func TestMaxItemsNeverDropsSnapshotVariables(t *testing.T) {
	c, f := newTestController(t, Options{MaxItems: 3})
	w := connectFake(t, c, f)

	snap, err := debugger.DecodeSnapshot([]byte(`{"v0": 1, "v1": 1, "v2": 1, "v3": 1, "v4": 1}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	w.emit(debugger.Event{Kind: debugger.EventSnapshot, Snapshot: snap})
	waitForCondition(t, func() bool { return lastItem(c) == "v4:\n1" })

	want := []string{"v0:\n1", "v1:\n1", "v2:\n1", "v3:\n1", "v4:\n1"}
	if got := itemTexts(c.State()); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected every variable row, got %q", got)
	}

	for _, msg := range []string{"e1", "e2", "e3", "e4"} {
		w.emit(debugger.Event{Kind: debugger.EventDecodeError, Err: errors.New(msg)})
	}
	waitForCondition(t, func() bool { return lastItem(c) == "Error: JSON decode error: e4" })

	want = append(want,
		"Error: JSON decode error: e2",
		"Error: JSON decode error: e3",
		"Error: JSON decode error: e4",
	)
	if got := itemTexts(c.State()); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected oldest message to be dropped before variables, got %q", got)
	}
}

func TestToggleVisibility(t *testing.T) {
	c, _ := newTestController(t, Options{Visible: false})

	if !c.ToggleVisibility() {
		t.Fatalf("expected panel to become visible")
	}
	if c.ToggleVisibility() {
		t.Fatalf("expected panel to become hidden")
	}
	c.SetVisible(true)
	if !c.State().Visible {
		t.Fatalf("expected panel to be visible")
	}
}

func TestOnConnectedReceivesEndpoint(t *testing.T) {
	got := make(chan debugger.Endpoint, 1)
	c, f := newTestController(t, Options{OnConnected: func(endpoint debugger.Endpoint) {
		got <- endpoint
	}})
	connectFake(t, c, f)

	select {
	case endpoint := <-got:
		if endpoint.Address() != "127.0.0.1:5000" {
			t.Fatalf("unexpected endpoint %v", endpoint)
		}
	case <-time.After(time.Second):
		t.Fatalf("OnConnected was not called")
	}
}

func TestControllerPublishesPanelState(t *testing.T) {
	b := bus.New(discardLogger())
	defer b.Close()
	sub := b.Subscribe(connectors.TopicPanelState, connectors.TopicConnStatus)

	factory := &fakeFactory{}
	c := New(context.Background(), discardLogger(), b, Options{Factory: factory.build})
	if err := c.Connect("127.0.0.1", "5000"); err != nil {
		t.Fatalf("connect: %v", err)
	}

	var sawStatus, sawPanel bool
	deadline := time.After(2 * time.Second)
	for !sawStatus || !sawPanel {
		select {
		case raw := <-sub:
			switch msg := raw.(type) {
			case connectors.ConnectionStatus:
				sawStatus = msg.State == connectors.ConnectionStateConnecting && msg.Target == "127.0.0.1:5000"
			case connectors.PanelState:
				sawPanel = sawPanel || (len(msg.Items) > 0 && msg.Items[len(msg.Items)-1].Text == "Connecting...")
			}
		case <-deadline:
			t.Fatalf("did not observe published state: status=%v panel=%v", sawStatus, sawPanel)
		}
	}
}

func TestControllerWithRealWorker(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer func() { _ = ln.Close() }()

	received := make(chan string, 4)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer func() { _ = conn.Close() }()
		_, _ = conn.Write([]byte(`{"x": 1}`))
		buf := make([]byte, 64)
		for {
			n, err := conn.Read(buf)
			if err != nil {
				return
			}
			received <- string(buf[:n])
		}
	}()

	c := New(context.Background(), discardLogger(), nil, Options{
		Factory: NewWorkerFactory(debugger.Options{
			ReadTimeout:  20 * time.Millisecond,
			TickInterval: time.Millisecond,
			Logger:       discardLogger(),
		}),
	})
	defer c.Close()

	port := strconv.Itoa(ln.Addr().(*net.TCPAddr).Port)
	if err := c.Connect("127.0.0.1", port); err != nil {
		t.Fatalf("connect: %v", err)
	}
	waitForCondition(t, func() bool {
		items := itemTexts(c.State())
		return len(items) == 1 && items[0] == "x:\n1"
	})

	if err := c.SendStep(); err != nil {
		t.Fatalf("send step: %v", err)
	}
	if got := waitReceived(t, received); got != "STEP\n" {
		t.Fatalf("expected STEP, got %q", got)
	}

	c.StopDebugger()
	if got := waitReceived(t, received); got != "STOP\n" {
		t.Fatalf("expected STOP, got %q", got)
	}
	waitForCondition(t, func() bool { return !c.Live() })
	if c.State().ActionsEnabled {
		t.Fatalf("expected actions to be disabled after close")
	}
}

func waitReceived(t *testing.T, ch <-chan string) string {
	t.Helper()
	select {
	case got := <-ch:
		return got
	case <-time.After(3 * time.Second):
		t.Fatalf("server did not receive a command")
	}

	return ""
}
