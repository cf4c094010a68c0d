package debugger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/skobkin/debugpanel/internal/connectors"
	"github.com/skobkin/debugpanel/internal/transport"
)

const (
	DefaultConnectTimeout = 3 * time.Second
	DefaultReadTimeout    = 250 * time.Millisecond
	DefaultWriteTimeout   = 3 * time.Second
	DefaultTickInterval   = 10 * time.Millisecond
)

var (
	ErrAlreadyStarted = errors.New("worker already started")
	ErrStopped        = errors.New("worker was stopped before start")
	ErrPeerClosed     = errors.New("connection closed by peer")
	ErrConnectAborted = errors.New("connect aborted by stop request")
)

// Options tune the worker's socket timeouts and framing.
type Options struct {
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	TickInterval   time.Duration
	ReadBufferSize int
	Framing        transport.Framing
	Dial           transport.DialFunc
	Logger         *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.ConnectTimeout <= 0 {
		o.ConnectTimeout = DefaultConnectTimeout
	}
	if o.ReadTimeout <= 0 {
		o.ReadTimeout = DefaultReadTimeout
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = DefaultWriteTimeout
	}
	if o.TickInterval <= 0 {
		o.TickInterval = DefaultTickInterval
	}
	if o.ReadBufferSize <= 0 {
		o.ReadBufferSize = transport.DefaultReadBufferSize
	}
	if o.Framing == "" {
		o.Framing = transport.FramingRaw
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}

	return o
}

// Worker owns one TCP connection to a remote debugger. It sends queued
// commands and receives snapshots in a single loop running on its own
// goroutine, reporting everything through Events.
type Worker struct {
	endpoint Endpoint
	opts     Options
	logger   *slog.Logger

	queue  commandQueue
	events *mailbox

	started   atomic.Bool
	abandoned atomic.Bool
	stopping  atomic.Bool
	draining  atomic.Bool
	stopOnce  sync.Once
	stopCh    chan struct{}
	done      chan struct{}

	stateMu sync.RWMutex
	state   connectors.ConnectionState
}

func NewWorker(endpoint Endpoint, opts Options) *Worker {
	opts = opts.withDefaults()

	return &Worker{
		endpoint: endpoint,
		opts:     opts,
		logger:   opts.Logger.With("component", "debugger", "target", endpoint.Address()),
		events:   newMailbox(),
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
		state:    connectors.ConnectionStateDisconnected,
	}
}

func (w *Worker) Endpoint() Endpoint {
	return w.endpoint
}

// Events returns the ordered event stream. It is closed after the last event.
func (w *Worker) Events() <-chan Event {
	return w.events.out
}

// Done is closed once the worker goroutine has fully exited.
func (w *Worker) Done() <-chan struct{} {
	return w.done
}

func (w *Worker) State() connectors.ConnectionState {
	w.stateMu.RLock()
	defer w.stateMu.RUnlock()

	return w.state
}

// Start connects and runs the I/O loop in the background. Cancelling ctx
// has the same effect as Stop.
func (w *Worker) Start(ctx context.Context) error {
	if !w.started.CompareAndSwap(false, true) {
		if w.abandoned.Load() {
			return ErrStopped
		}

		return ErrAlreadyStarted
	}
	codec, err := transport.NewCodec(w.opts.Framing)
	if err != nil {
		// The loop never runs: release the consumer and mark the worker unusable.
		w.abandoned.Store(true)
		w.setState(connectors.ConnectionStateFailed)
		w.events.close()
		close(w.done)

		return err
	}

	w.setState(connectors.ConnectionStateConnecting)
	go w.watchContext(ctx)
	go w.run(ctx, codec)

	return nil
}

// Enqueue appends a command to the outbound FIFO. Commands queued after the
// worker terminated are dropped.
func (w *Worker) Enqueue(cmd []byte) {
	if w.State().IsTerminal() {
		w.logger.Debug("enqueue dropped: worker terminated", "len", len(cmd))
		return
	}
	w.queue.push(cmd)
}

// Stop asks the loop to exit at its next iteration. Safe to call repeatedly.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() {
		w.stopping.Store(true)
		close(w.stopCh)
		if w.started.CompareAndSwap(false, true) {
			// Never started: nothing will be emitted, release the consumer.
			w.abandoned.Store(true)
			w.events.close()
			close(w.done)
		}
	})
}

// StopWhenDrained asks the loop to exit once every queued command was sent.
func (w *Worker) StopWhenDrained() {
	w.draining.Store(true)
}

func (w *Worker) watchContext(ctx context.Context) {
	select {
	case <-ctx.Done():
		w.Stop()
	case <-w.done:
	}
}

func (w *Worker) run(ctx context.Context, codec transport.Codec) {
	defer close(w.done)
	defer w.events.close()

	conn, err := w.dial(ctx)
	if err != nil {
		w.setState(connectors.ConnectionStateFailed)
		w.emit(Event{Kind: EventConnectionError, Err: err})
		return
	}

	w.setState(connectors.ConnectionStateConnected)
	w.emit(Event{Kind: EventConnected})

	w.loop(conn, codec)

	_ = conn.Close()
	if n := w.queue.clear(); n > 0 {
		w.logger.Debug("discarded queued commands", "count", n)
	}
	w.setState(connectors.ConnectionStateClosed)
	w.emit(Event{Kind: EventClosed})
}

// dial connects to the endpoint. A Stop issued while connecting cancels the
// attempt and is reported as a connection error.
func (w *Worker) dial(ctx context.Context) (*transport.TCPConn, error) {
	dialCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-w.stopCh:
			cancel()
		case <-dialCtx.Done():
		}
	}()

	conn, err := transport.DialTCP(dialCtx, w.endpoint.Address(), transport.DialOptions{
		Timeout:        w.opts.ConnectTimeout,
		ReadBufferSize: w.opts.ReadBufferSize,
		Dial:           w.opts.Dial,
		Logger:         w.opts.Logger,
	})
	if !w.stopping.Load() {
		return conn, err
	}
	if conn != nil {
		_ = conn.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectAborted, err)
	}

	return nil, ErrConnectAborted
}

func (w *Worker) loop(conn *transport.TCPConn, codec transport.Codec) {
	for {
		if w.shouldExit() {
			w.logger.Debug("loop stop requested")
			return
		}

		if cmd, ok := w.queue.pop(); ok {
			if err := w.send(conn, codec, cmd); err != nil {
				w.emit(Event{Kind: EventSendError, Err: err})
				return
			}
		}

		chunk, err := conn.Read(w.opts.ReadTimeout)
		if len(chunk) > 0 {
			w.handleChunk(codec, chunk)
		}
		if err != nil && !errors.Is(err, transport.ErrIdle) {
			if errors.Is(err, io.EOF) {
				err = ErrPeerClosed
			}
			w.emit(Event{Kind: EventSocketError, Err: err})
			return
		}

		w.sleep(w.opts.TickInterval)
	}
}

func (w *Worker) shouldExit() bool {
	if w.stopping.Load() {
		return true
	}

	return w.draining.Load() && w.queue.len() == 0
}

func (w *Worker) send(conn *transport.TCPConn, codec transport.Codec, cmd []byte) error {
	frame, err := codec.Encode(cmd)
	if err != nil {
		return fmt.Errorf("encode command: %w", err)
	}

	return conn.Write(frame, w.opts.WriteTimeout)
}

func (w *Worker) handleChunk(codec transport.Codec, chunk []byte) {
	payloads, feedErr := codec.Feed(chunk)
	for _, payload := range payloads {
		snap, err := DecodeSnapshot(payload)
		if err != nil {
			w.emit(Event{Kind: EventDecodeError, Err: err})
			continue
		}
		w.emit(Event{Kind: EventSnapshot, Snapshot: snap})
	}
	if feedErr != nil {
		w.emit(Event{Kind: EventDecodeError, Err: feedErr})
	}
}

func (w *Worker) sleep(d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-w.stopCh:
	case <-timer.C:
	}
}

func (w *Worker) emit(ev Event) {
	ev.At = time.Now()
	if ev.IsError() {
		w.logger.Warn("worker event", "kind", ev.Kind.String(), "error", ev.Err)
	} else {
		w.logger.Debug("worker event", "kind", ev.Kind.String())
	}
	w.events.push(ev)
}

func (w *Worker) setState(state connectors.ConnectionState) {
	w.stateMu.Lock()
	w.state = state
	w.stateMu.Unlock()
}
