package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/skobkin/debugpanel/internal/bus"
	"github.com/skobkin/debugpanel/internal/config"
	"github.com/skobkin/debugpanel/internal/connectors"
	"github.com/skobkin/debugpanel/internal/debugger"
	"github.com/skobkin/debugpanel/internal/logging"
	"github.com/skobkin/debugpanel/internal/panel"
)

type Runtime struct {
	mu sync.RWMutex

	Ctx    context.Context
	cancel context.CancelFunc

	Paths  Paths
	Config config.AppConfig

	LogManager *logging.Manager
	Bus        *bus.PubSubBus
	Panel      *panel.Controller

	connStatusMu    sync.RWMutex
	connStatus      connectors.ConnectionStatus
	connStatusKnown bool
}

func Initialize(parent context.Context) (*Runtime, error) {
	paths, err := ResolvePaths()
	if err != nil {
		return nil, err
	}

	return InitializeWithPaths(parent, paths, logging.NewManager())
}

// InitializeWithPaths wires the runtime around already resolved paths and
// takes ownership of logMgr.
func InitializeWithPaths(parent context.Context, paths Paths, logMgr *logging.Manager) (*Runtime, error) {
	cfg, err := config.Load(paths.ConfigFile)
	if err != nil {
		_ = logMgr.Close()
		return nil, err
	}
	if err := logMgr.Configure(cfg.Logging, paths.LogFile); err != nil {
		_ = logMgr.Close()
		return nil, fmt.Errorf("configure logging: %w", err)
	}

	ctx, cancel := context.WithCancel(parent)
	rt := &Runtime{
		Ctx:        ctx,
		cancel:     cancel,
		Paths:      paths,
		Config:     cfg,
		LogManager: logMgr,
	}
	slog.Info("starting debugpanel runtime", "config", paths.ConfigFile)

	b := bus.New(logMgr.Logger("bus"))
	rt.Bus = b
	rt.setConnStatus(ConnectionStatusFromConfig(cfg.Connection))
	connSub := b.Subscribe(connectors.TopicConnStatus)
	go rt.captureConnStatus(ctx, connSub)

	rt.Panel = panel.New(ctx, logMgr.Logger("panel"), b, panel.Options{
		Factory:     rt.newWorker,
		MaxItems:    cfg.UI.MaxItems,
		Visible:     cfg.UI.PanelVisible,
		OnConnected: rt.RememberEndpoint,
	})

	return rt, nil
}

// newWorker reads the current config so saved settings apply to the next connection.
func (r *Runtime) newWorker(endpoint debugger.Endpoint) panel.Worker {
	cfg := r.CurrentConfig()

	return debugger.NewWorker(endpoint, WorkerOptions(cfg.Connection, r.LogManager.Logger("debugger")))
}

func (r *Runtime) captureConnStatus(ctx context.Context, sub bus.Subscription) {
	for {
		select {
		case <-ctx.Done():
			return
		case raw, ok := <-sub:
			if !ok {
				return
			}
			status, ok := raw.(connectors.ConnectionStatus)
			if !ok {
				continue
			}
			r.setConnStatus(status)
		}
	}
}

func (r *Runtime) setConnStatus(status connectors.ConnectionStatus) {
	r.connStatusMu.Lock()
	r.connStatus = status
	r.connStatusKnown = true
	r.connStatusMu.Unlock()
}

func (r *Runtime) CurrentConnStatus() (connectors.ConnectionStatus, bool) {
	r.connStatusMu.RLock()
	status := r.connStatus
	known := r.connStatusKnown
	r.connStatusMu.RUnlock()

	return status, known
}

func (r *Runtime) CurrentConfig() config.AppConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.Config
}

func (r *Runtime) SaveAndApplyConfig(cfg config.AppConfig) error {
	cfg.FillMissingDefaults()
	if err := cfg.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	if err := config.Save(r.Paths.ConfigFile, cfg); err != nil {
		r.mu.Unlock()
		return err
	}
	r.Config = cfg
	r.mu.Unlock()

	if err := r.LogManager.Configure(cfg.Logging, r.Paths.LogFile); err != nil {
		return err
	}
	if r.Panel != nil {
		r.Panel.SetVisible(cfg.UI.PanelVisible)
	}

	return nil
}

// RememberEndpoint persists the last endpoint a connection succeeded to.
func (r *Runtime) RememberEndpoint(endpoint debugger.Endpoint) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.Config.Connection.Host == endpoint.Host && r.Config.Connection.Port == endpoint.Port {
		return
	}
	cfg := r.Config
	cfg.Connection.Host = endpoint.Host
	cfg.Connection.Port = endpoint.Port
	if err := config.Save(r.Paths.ConfigFile, cfg); err != nil {
		slog.Warn("save last endpoint", "error", err)
		return
	}
	r.Config = cfg
}

// RememberPanelVisible persists the debugger panel toggle.
func (r *Runtime) RememberPanelVisible(visible bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.Config.UI.PanelVisible == visible {
		return
	}
	cfg := r.Config
	cfg.UI.PanelVisible = visible
	if err := config.Save(r.Paths.ConfigFile, cfg); err != nil {
		slog.Warn("save panel visibility", "error", err)
		return
	}
	r.Config = cfg
}

func (r *Runtime) Close() error {
	if r.Panel != nil {
		r.Panel.Close()
	}
	if r.cancel != nil {
		r.cancel()
	}
	if r.Bus != nil {
		r.Bus.Close()
	}
	if r.LogManager != nil {
		_ = r.LogManager.Close()
	}

	return nil
}
