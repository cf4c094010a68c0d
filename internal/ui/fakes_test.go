package ui

import (
	"sync"
	"testing"
	"time"

	"github.com/skobkin/debugpanel/internal/connectors"
)

type fakePanelController struct {
	mu         sync.Mutex
	state      connectors.PanelState
	connects   [][2]string
	nextCalls  int
	stepCalls  int
	stopCalls  int
	connectErr error
}

func newFakePanelController() *fakePanelController {
	return &fakePanelController{state: connectors.PanelState{
		State:   connectors.ConnectionStateDisconnected,
		Visible: true,
	}}
}

func (c *fakePanelController) Connect(host, port string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connects = append(c.connects, [2]string{host, port})

	return c.connectErr
}

func (c *fakePanelController) SendNext() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextCalls++

	return nil
}

func (c *fakePanelController) SendStep() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stepCalls++

	return nil
}

func (c *fakePanelController) StopDebugger() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopCalls++
}

func (c *fakePanelController) ToggleVisibility() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Visible = !c.state.Visible

	return c.state.Visible
}

func (c *fakePanelController) State() connectors.PanelState {
	c.mu.Lock()
	defer c.mu.Unlock()
	state := c.state
	state.Items = append([]connectors.PanelItem(nil), c.state.Items...)

	return state
}

func waitForCondition(t *testing.T, check func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if check() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("condition was not met before timeout")
}
