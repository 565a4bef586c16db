package web

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/aquamarinepk/aqm"
	"github.com/google/uuid"
)

// sseBroker fans board updates out to connected browsers. Slow
// subscribers drop events rather than block the reconciler.
type sseBroker struct {
	logger aqm.Logger

	mu          sync.RWMutex
	subscribers map[string]chan []byte
}

func newSSEBroker(logger aqm.Logger) *sseBroker {
	return &sseBroker{
		logger:      logger,
		subscribers: make(map[string]chan []byte),
	}
}

func (b *sseBroker) subscribe(subscriberID string) <-chan []byte {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan []byte, 16)
	b.subscribers[subscriberID] = ch

	b.logger.Info("new SSE subscriber for board events", "subscriber_id", subscriberID, "total_subscribers", len(b.subscribers))
	return ch
}

func (b *sseBroker) unsubscribe(subscriberID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if ch, ok := b.subscribers[subscriberID]; ok {
		close(ch)
		delete(b.subscribers, subscriberID)
		b.logger.Info("SSE subscriber for board events disconnected", "subscriber_id", subscriberID, "total_subscribers", len(b.subscribers))
	}
}

func (b *sseBroker) broadcast(payload []byte) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for subscriberID, ch := range b.subscribers {
		select {
		case ch <- payload:
		default:
			// Channel full, subscriber too slow - skip this event
			b.logger.Info("subscriber channel full, dropping event", "subscriber_id", subscriberID)
		}
	}
}

// serve runs one SSE connection until the browser goes away. initial
// provides the first payload so a fresh tab renders without waiting
// for a change.
func (b *sseBroker) serve(w http.ResponseWriter, r *http.Request, initial func() []byte) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	subscriberID := uuid.New().String()
	events := b.subscribe(subscriberID)
	defer b.unsubscribe(subscriberID)

	fmt.Fprintf(w, "retry: 2000\n\n")
	writeSSEEvent(w, "board-update", initial())

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return

		case <-ticker.C:
			fmt.Fprintf(w, ": keepalive\n\n")
			flush(w)

		case payload, ok := <-events:
			if !ok {
				return
			}
			writeSSEEvent(w, "board-update", payload)
		}
	}
}

func writeSSEEvent(w http.ResponseWriter, event string, data []byte) {
	fmt.Fprintf(w, "event: %s\n", event)
	fmt.Fprintf(w, "data: %s\n\n", data)
	flush(w)
}

func flush(w http.ResponseWriter) {
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}
