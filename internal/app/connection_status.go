package app

import (
	"log/slog"
	"strings"

	"github.com/skobkin/debugpanel/internal/config"
	"github.com/skobkin/debugpanel/internal/connectors"
	"github.com/skobkin/debugpanel/internal/debugger"
	"github.com/skobkin/debugpanel/internal/transport"
)

func EndpointFromConfig(cfg config.ConnectionConfig) debugger.Endpoint {
	return debugger.Endpoint{Host: strings.TrimSpace(cfg.Host), Port: cfg.Port}
}

// WorkerOptions maps persisted connection settings onto worker options.
// Unknown framing falls back to raw.
func WorkerOptions(cfg config.ConnectionConfig, logger *slog.Logger) debugger.Options {
	framing, err := transport.ParseFraming(cfg.Framing)
	if err != nil {
		if logger != nil {
			logger.Warn("unsupported framing in config, using raw", "framing", cfg.Framing, "error", err)
		}
		framing = transport.FramingRaw
	}

	return debugger.Options{
		ConnectTimeout: cfg.ConnectTimeout(),
		ReadTimeout:    cfg.ReadTimeout(),
		WriteTimeout:   cfg.WriteTimeout(),
		TickInterval:   cfg.TickInterval(),
		Framing:        framing,
		Logger:         logger,
	}
}

// ConnectionStatusFromConfig is the status shown before any connection attempt.
func ConnectionStatusFromConfig(cfg config.ConnectionConfig) connectors.ConnectionStatus {
	status := connectors.ConnectionStatus{State: connectors.ConnectionStateDisconnected}
	if endpoint := EndpointFromConfig(cfg); endpoint.Validate() == nil {
		status.Target = endpoint.Address()
	}

	return status
}
