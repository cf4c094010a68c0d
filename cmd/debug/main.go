package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/skobkin/debugpanel/internal/app"
	"github.com/skobkin/debugpanel/internal/bus"
	"github.com/skobkin/debugpanel/internal/config"
	"github.com/skobkin/debugpanel/internal/connectors"
	"github.com/skobkin/debugpanel/internal/logging"
	"github.com/skobkin/debugpanel/internal/panel"
	"github.com/skobkin/debugpanel/internal/transport"
)

const maxValuePreviewLen = 120

var errQuit = errors.New("quit requested")

type cliOptions struct {
	Host     string
	Port     int
	Framing  transport.Framing
	LogLevel string
}

// commander is the part of the panel controller the stdin loop drives.
type commander interface {
	SendNext() error
	SendStep() error
	StopDebugger()
}

func main() {
	if err := run(); err != nil {
		slog.Error("run debug tool", "error", err)
		os.Exit(1)
	}
}

func run() error {
	paths, err := app.ResolvePaths()
	if err != nil {
		return fmt.Errorf("resolve paths: %w", err)
	}
	cfg, err := config.Load(paths.ConfigFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	opts, err := parseOptions(os.Args[1:], cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logMgr := logging.NewManagerWithConsole(os.Stderr)
	cfg.Logging.Level = opts.LogLevel
	cfg.Logging.LogToFile = false
	if err := logMgr.Configure(cfg.Logging, paths.LogFile); err != nil {
		return fmt.Errorf("configure logging: %w", err)
	}
	defer func() {
		if closeErr := logMgr.Close(); closeErr != nil {
			slog.Warn("close log manager", "error", closeErr)
		}
	}()
	logger := logMgr.Logger("cli")

	b := bus.New(logMgr.Logger("bus"))
	defer b.Close()

	cfg.Connection.Framing = string(opts.Framing)
	controller := panel.New(ctx, logMgr.Logger("panel"), b, panel.Options{
		Factory:  panel.NewWorkerFactory(app.WorkerOptions(cfg.Connection, logMgr.Logger("debugger"))),
		MaxItems: cfg.UI.MaxItems,
		Visible:  true,
	})
	defer controller.Close()

	watchCtx, stopWatch := context.WithCancel(ctx)
	defer stopWatch()
	finished := watch(watchCtx, b, os.Stdout, logger)

	logger.Info("connecting", "host", opts.Host, "port", opts.Port, "framing", opts.Framing)
	if err := controller.Connect(opts.Host, strconv.Itoa(opts.Port)); err != nil {
		return fmt.Errorf("connect: %w", err)
	}

	commands := readCommands(ctx, os.Stdin)
	for {
		select {
		case <-ctx.Done():
			logger.Info("interrupted")
			return nil
		case <-finished:
			logger.Info("debugger session ended")
			return nil
		case line, ok := <-commands:
			if !ok {
				logger.Info("stdin closed, stopping debugger")
				stopAndWait(ctx, controller, finished)
				return nil
			}
			if err := dispatchCommand(controller, line); err != nil {
				if errors.Is(err, errQuit) {
					stopAndWait(ctx, controller, finished)
					return nil
				}
				_, _ = fmt.Fprintln(os.Stdout, err)
			}
		}
	}
}

// stopAndWait lets a queued STOP reach the debugger before the deferred
// controller shutdown closes the socket.
func stopAndWait(ctx context.Context, c commander, finished <-chan struct{}) {
	c.StopDebugger()
	select {
	case <-finished:
	case <-ctx.Done():
	}
}

func parseOptions(args []string, cfg config.AppConfig) (cliOptions, error) {
	fs := flag.NewFlagSet("debug", flag.ContinueOnError)
	host := fs.String("host", cfg.Connection.Host, "debugger host")
	port := fs.Int("port", cfg.Connection.Port, "debugger port")
	framing := fs.String("framing", cfg.Connection.Framing, "snapshot framing: raw, line or length")
	logLevel := fs.String("log-level", cfg.Logging.Level, "log level: debug, info, warn or error")
	if err := fs.Parse(args); err != nil {
		return cliOptions{}, err
	}
	if fs.NArg() > 0 {
		return cliOptions{}, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}

	parsedFraming, err := transport.ParseFraming(*framing)
	if err != nil {
		return cliOptions{}, err
	}
	if _, err := logging.ParseLevel(*logLevel); err != nil {
		return cliOptions{}, err
	}
	if strings.TrimSpace(*host) == "" {
		return cliOptions{}, errors.New("missing host: set -host or save connection host in config")
	}

	return cliOptions{
		Host:     strings.TrimSpace(*host),
		Port:     *port,
		Framing:  parsedFraming,
		LogLevel: *logLevel,
	}, nil
}

func dispatchCommand(c commander, line string) error {
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "":
		return nil
	case "next", "n":
		return c.SendNext()
	case "step", "s":
		return c.SendStep()
	case "stop":
		c.StopDebugger()
		return nil
	case "quit", "q", "exit":
		return errQuit
	default:
		return fmt.Errorf("unknown command %q (next, step, stop, quit)", strings.TrimSpace(line))
	}
}

func readCommands(ctx context.Context, r io.Reader) <-chan string {
	out := make(chan string)
	go func() {
		defer close(out)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			select {
			case out <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	return out
}

// watch prints bus traffic and closes the returned channel once the
// connection reaches a terminal state.
func watch(ctx context.Context, b bus.MessageBus, out io.Writer, logger *slog.Logger) <-chan struct{} {
	connSub := b.Subscribe(connectors.TopicConnStatus)
	snapshotSub := b.Subscribe(connectors.TopicSnapshot)
	diagSub := b.Subscribe(connectors.TopicDiagnostic)
	finished := make(chan struct{})

	go func() {
		defer b.Unsubscribe(connSub, connectors.TopicConnStatus)
		defer b.Unsubscribe(snapshotSub, connectors.TopicSnapshot)
		defer b.Unsubscribe(diagSub, connectors.TopicDiagnostic)

		for {
			select {
			case <-ctx.Done():
				return
			case raw, ok := <-connSub:
				if !ok {
					return
				}
				status, ok := raw.(connectors.ConnectionStatus)
				if !ok {
					continue
				}
				logger.Info("conn", "state", status.State, "target", status.Target, "error", status.Err)
				if status.State.IsTerminal() {
					drainPending(out, snapshotSub, diagSub)
					close(finished)
					return
				}
			case raw, ok := <-snapshotSub:
				if !ok {
					return
				}
				printMessage(out, raw)
			case raw, ok := <-diagSub:
				if !ok {
					return
				}
				printMessage(out, raw)
			}
		}
	}()

	return finished
}

func drainPending(out io.Writer, subs ...bus.Subscription) {
	for _, sub := range subs {
		drainSubscription(out, sub)
	}
}

func drainSubscription(out io.Writer, sub bus.Subscription) {
	for {
		select {
		case raw, ok := <-sub:
			if !ok {
				return
			}
			printMessage(out, raw)
		default:
			return
		}
	}
}

func printMessage(out io.Writer, raw any) {
	switch msg := raw.(type) {
	case connectors.SnapshotUpdate:
		for _, line := range formatSnapshot(msg) {
			_, _ = fmt.Fprintln(out, line)
		}
	case connectors.Diagnostic:
		_, _ = fmt.Fprintln(out, "Error: "+msg.Message)
	}
}

func formatSnapshot(update connectors.SnapshotUpdate) []string {
	lines := make([]string, 0, len(update.Keys)+1)
	lines = append(lines, fmt.Sprintf("--- snapshot (%d variables)", len(update.Keys)))
	for _, key := range update.Keys {
		lines = append(lines, fmt.Sprintf("%s = %s", key, previewValue(update.Variables[key])))
	}

	return lines
}

func previewValue(value string) string {
	value = strings.Join(strings.Fields(value), " ")
	if len(value) <= maxValuePreviewLen {
		return value
	}

	return value[:maxValuePreviewLen] + "..."
}
