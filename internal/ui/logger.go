package ui

import "log/slog"

func appLogger() *slog.Logger {
	return slog.With("component", "ui")
}
