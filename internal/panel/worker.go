package panel

import (
	"context"

	"github.com/skobkin/debugpanel/internal/debugger"
)

// Worker is the part of debugger.Worker the controller drives.
type Worker interface {
	Start(ctx context.Context) error
	Enqueue(cmd []byte)
	Stop()
	StopWhenDrained()
	Events() <-chan debugger.Event
}

// WorkerFactory builds a fresh, not yet started worker for an endpoint.
type WorkerFactory func(endpoint debugger.Endpoint) Worker

func NewWorkerFactory(opts debugger.Options) WorkerFactory {
	return func(endpoint debugger.Endpoint) Worker {
		return debugger.NewWorker(endpoint, opts)
	}
}
