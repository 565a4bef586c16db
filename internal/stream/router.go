package stream

import (
	"context"
	"sync"

	"github.com/aquamarinepk/aqm"
)

// HandlerFunc processes the data payload of a single named event.
type HandlerFunc func(ctx context.Context, data []byte) error

// router demultiplexes named server events to registered handlers.
// Exactly one handler per event name; unknown events are logged and
// dropped. A failing or panicking handler never tears down the channel.
type router struct {
	mu       sync.RWMutex
	handlers map[string]HandlerFunc
	logger   aqm.Logger
}

func newRouter(logger aqm.Logger) *router {
	if logger == nil {
		logger = aqm.NewNoopLogger()
	}
	return &router{
		handlers: make(map[string]HandlerFunc),
		logger:   logger,
	}
}

func (r *router) on(event string, handler HandlerFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[event] = handler
}

func (r *router) off(event string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.handlers, event)
}

// dispatch delivers one event at most once. Handler errors and panics are
// contained here so a bad payload cannot kill the read loop.
func (r *router) dispatch(ctx context.Context, event string, data []byte) {
	r.mu.RLock()
	handler, ok := r.handlers[event]
	r.mu.RUnlock()

	if !ok {
		r.logger.Info("no handler for event, dropping", "event", event)
		return
	}

	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("event handler panicked", "event", event, "panic", rec)
		}
	}()

	if err := handler(ctx, data); err != nil {
		r.logger.Error("event handler failed", "event", event, "error", err)
	}
}
