package ui

import (
	"fmt"
	"sync"

	"github.com/skobkin/debugpanel/internal/bus"
	"github.com/skobkin/debugpanel/internal/connectors"
)

func startUIEventListeners(
	messageBus bus.MessageBus,
	onPanelState func(connectors.PanelState),
	onConnStatus func(connectors.ConnectionStatus),
) func() {
	if messageBus == nil {
		appLogger().Debug("skipping UI event listeners: message bus is nil")

		return func() {}
	}

	panelSub := messageBus.Subscribe(connectors.TopicPanelState)
	connSub := messageBus.Subscribe(connectors.TopicConnStatus)
	appLogger().Debug(
		"subscribed to UI bus topics",
		"topics", []string{connectors.TopicPanelState, connectors.TopicConnStatus},
	)
	done := make(chan struct{})
	var stopOnce sync.Once

	go func() {
		for {
			select {
			case <-done:
				return
			case raw, ok := <-panelSub:
				if !ok {
					appLogger().Debug("panel state subscription closed")

					return
				}
				state, ok := raw.(connectors.PanelState)
				if !ok {
					appLogger().Debug("ignoring unexpected panel state payload", "payload_type", fmt.Sprintf("%T", raw))

					continue
				}
				select {
				case <-done:
					return
				default:
				}
				if onPanelState != nil {
					onPanelState(state)
				}
			}
		}
	}()

	go func() {
		for {
			select {
			case <-done:
				return
			case raw, ok := <-connSub:
				if !ok {
					appLogger().Debug("connection status subscription closed")

					return
				}
				status, ok := raw.(connectors.ConnectionStatus)
				if !ok {
					appLogger().Debug("ignoring unexpected connection status payload", "payload_type", fmt.Sprintf("%T", raw))

					continue
				}
				select {
				case <-done:
					return
				default:
				}
				if onConnStatus != nil {
					onConnStatus(status)
				}
			}
		}
	}()

	return func() {
		stopOnce.Do(func() {
			appLogger().Debug("stopping UI event listeners")
			close(done)
			messageBus.Unsubscribe(panelSub, connectors.TopicPanelState)
			messageBus.Unsubscribe(connSub, connectors.TopicConnStatus)
		})
	}
}
