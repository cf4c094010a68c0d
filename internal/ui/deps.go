package ui

import (
	"github.com/skobkin/debugpanel/internal/bus"
	"github.com/skobkin/debugpanel/internal/config"
	"github.com/skobkin/debugpanel/internal/connectors"
)

type DataDependencies struct {
	Config            config.AppConfig
	Bus               bus.MessageBus
	CurrentConfig     func() config.AppConfig
	CurrentConnStatus func() (connectors.ConnectionStatus, bool)
}

type ActionDependencies struct {
	Panel                    PanelController
	OnPanelVisibilityChanged func(visible bool)
	OnQuit                   func()
}

type LaunchOptions struct {
	StartHidden bool
}

type RuntimeDependencies struct {
	Data    DataDependencies
	Actions ActionDependencies
	Launch  LaunchOptions
}
