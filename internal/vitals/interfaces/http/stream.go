package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"respcare-monitor/internal/vitals/application"
)

const (
	defaultHeartbeat = 15 * time.Second
	subscriberBuffer = 16
)

// StreamEvent is one alert event queued for a stream client. IDs increase
// monotonically per broker.
type StreamEvent struct {
	ID      uint64
	Name    string
	Payload []byte
}

type subscriber struct {
	events chan StreamEvent
}

// SSEBroker fans alert events out to stream clients. A client whose buffer
// is full misses the event; Notify never blocks the recorder.
type SSEBroker struct {
	mu     sync.Mutex
	subs   map[*subscriber]struct{}
	lastID uint64
	closed bool
}

// NewSSEBroker constructs a broker.
func NewSSEBroker() *SSEBroker {
	return &SSEBroker{subs: make(map[*subscriber]struct{})}
}

// Notify implements application.AlertNotifier.
func (b *SSEBroker) Notify(_ context.Context, event application.AlertEvent) {
	if b == nil {
		return
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return
	}
	b.publish("alert", payload)
}

// Subscribe registers a client. The returned channel is closed by cancel or
// by Close, whichever comes first; after Close it is returned already closed.
func (b *SSEBroker) Subscribe() (<-chan StreamEvent, func()) {
	sub := &subscriber{events: make(chan StreamEvent, subscriberBuffer)}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(sub.events)
		return sub.events, func() {}
	}
	b.subs[sub] = struct{}{}
	return sub.events, func() { b.remove(sub) }
}

func (b *SSEBroker) remove(sub *subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subs[sub]; !ok {
		return
	}
	delete(b.subs, sub)
	close(sub.events)
}

// Close ends every open stream and refuses new subscribers. It is safe to
// call more than once and fits http.Server.RegisterOnShutdown.
func (b *SSEBroker) Close() {
	if b == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for sub := range b.subs {
		close(sub.events)
		delete(b.subs, sub)
	}
}

// Clients reports the number of connected subscribers.
func (b *SSEBroker) Clients() int {
	if b == nil {
		return 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

func (b *SSEBroker) publish(name string, payload []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.lastID++
	event := StreamEvent{ID: b.lastID, Name: name, Payload: payload}
	for sub := range b.subs {
		select {
		case sub.events <- event:
		default:
		}
	}
}

// StreamOption configures a StreamHandler.
type StreamOption func(*StreamHandler)

// WithHeartbeat sets the interval of keep-alive comments.
func WithHeartbeat(interval time.Duration) StreamOption {
	return func(h *StreamHandler) {
		if interval > 0 {
			h.heartbeat = interval
		}
	}
}

// StreamHandler serves GET /api/v1/alerts/stream as server-sent events.
type StreamHandler struct {
	broker    *SSEBroker
	heartbeat time.Duration
}

// NewStreamHandler constructs a stream handler.
func NewStreamHandler(broker *SSEBroker, opts ...StreamOption) *StreamHandler {
	h := &StreamHandler{broker: broker, heartbeat: defaultHeartbeat}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if h == nil || h.broker == nil {
		http.Error(w, "stream not ready", http.StatusServiceUnavailable)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "stream unsupported", http.StatusInternalServerError)
		return
	}

	events, cancel := h.broker.Subscribe()
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	fmt.Fprintf(w, "retry: %d\nevent: ready\ndata: {}\n\n", h.heartbeat.Milliseconds())
	flusher.Flush()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-events:
			if !ok {
				return
			}
			fmt.Fprintf(w, "id: %s\nevent: %s\ndata: %s\n\n", strconv.FormatUint(event.ID, 10), event.Name, event.Payload)
			flusher.Flush()
		case <-ticker.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}
