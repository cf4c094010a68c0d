package ui

import (
	debugapp "github.com/skobkin/debugpanel/internal/app"
)

func BuildRuntimeDependencies(rt *debugapp.Runtime, launch LaunchOptions, onQuit func()) RuntimeDependencies {
	dep := RuntimeDependencies{
		Launch: launch,
		Actions: ActionDependencies{
			OnQuit: onQuit,
		},
	}

	if rt == nil {
		return dep
	}

	dep.Data = DataDependencies{
		Config:            rt.CurrentConfig(),
		Bus:               rt.Bus,
		CurrentConfig:     rt.CurrentConfig,
		CurrentConnStatus: rt.CurrentConnStatus,
	}
	if rt.Panel != nil {
		dep.Actions.Panel = rt.Panel
	}
	dep.Actions.OnPanelVisibilityChanged = rt.RememberPanelVisible

	return dep
}
