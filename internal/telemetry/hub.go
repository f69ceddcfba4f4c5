package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// DefaultBufferSize bounds the replay ring when none is configured.
const DefaultBufferSize = 256

// Event is one entry on the monitoring stream.
type Event struct {
	ID   int64          `json:"id"`
	Type string         `json:"type"`
	Data map[string]any `json:"data"`
	At   time.Time      `json:"at"`
}

// client is one SSE subscriber. The events channel is never closed; teardown
// is cancel + map removal, and the channel is dropped for the GC. Publishers
// holding a stale snapshot can still send into the buffer harmlessly.
type client struct {
	id     string
	writer http.ResponseWriter
	ctx    context.Context
	cancel context.CancelFunc
	events chan Event
	mu     sync.Mutex // serializes writer access
}

// Hub fans events out to SSE subscribers and keeps a bounded ring for
// Last-Event-ID resume. Publishing never blocks on a slow subscriber.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*client
	ring    []Event
	ringCap int
	nextID  int64

	done chan struct{}
}

// NewHub builds a hub with the given replay buffer size.
func NewHub(bufferSize int) *Hub {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	return &Hub{
		clients: make(map[string]*client),
		ring:    make([]Event, 0, bufferSize),
		ringCap: bufferSize,
		done:    make(chan struct{}),
	}
}

// Publish assigns the event its stream ID, buffers it, and offers it to every
// subscriber. Subscribers that cannot keep up are skipped.
func (h *Hub) Publish(e Event) {
	if e.At.IsZero() {
		e.At = time.Now()
	}

	h.mu.Lock()
	h.nextID++
	e.ID = h.nextID
	h.ring = append(h.ring, e)
	if len(h.ring) > h.ringCap {
		h.ring = h.ring[1:]
	}
	subs := make([]*client, 0, len(h.clients))
	for _, c := range h.clients {
		subs = append(subs, c)
	}
	h.mu.Unlock()

	for _, c := range subs {
		select {
		case <-c.ctx.Done():
		case <-h.done:
			return
		case c.events <- e:
		default:
			// Slow subscriber: drop rather than stall the publisher.
		}
	}
}

// Subscribe attaches an SSE client and blocks until it disconnects. Events
// newer than the request's Last-Event-ID header are replayed from the ring
// before live delivery starts.
func (h *Hub) Subscribe(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	w.Header().Set("Content-Type", "text/event-stream; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	clientCtx, cancel := context.WithCancel(ctx)
	c := &client{
		id:     fmt.Sprintf("client_%d", time.Now().UnixNano()),
		writer: w,
		ctx:    clientCtx,
		cancel: cancel,
		events: make(chan Event, 64),
	}

	var lastID int64
	if raw := r.Header.Get("Last-Event-ID"); raw != "" {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
			lastID = id
		}
	}

	h.mu.Lock()
	h.clients[c.id] = c
	h.mu.Unlock()

	if lastID > 0 {
		for _, e := range h.eventsAfter(lastID) {
			if err := h.write(c, e); err != nil {
				h.unregister(c)
				return fmt.Errorf("telemetry: replay: %w", err)
			}
		}
	}

	h.serve(c)
	return nil
}

// serve pumps events to one client until it disconnects.
func (h *Hub) serve(c *client) {
	defer h.unregister(c)

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-h.done:
			return
		case e := <-c.events:
			if err := h.write(c, e); err != nil {
				return
			}
		}
	}
}

func (h *Hub) write(c *client, e Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := json.Marshal(e.Data)
	if err != nil {
		return fmt.Errorf("marshal event data: %w", err)
	}
	if _, err := fmt.Fprintf(c.writer, "id: %d\nevent: %s\ndata: %s\n\n", e.ID, e.Type, data); err != nil {
		return err
	}
	if f, ok := c.writer.(http.Flusher); ok {
		f.Flush()
	}
	return nil
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c.id]; ok {
		c.cancel()
		delete(h.clients, c.id)
	}
}

// eventsAfter returns ring entries with an ID greater than lastID.
func (h *Hub) eventsAfter(lastID int64) []Event {
	h.mu.RLock()
	defer h.mu.RUnlock()
	var out []Event
	for _, e := range h.ring {
		if e.ID > lastID {
			out = append(out, e)
		}
	}
	return out
}

// ClientCount reports how many subscribers are attached.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// BufferedLen reports how many events the replay ring currently holds.
func (h *Hub) BufferedLen() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.ring)
}

// Stop disconnects every subscriber and stops delivery.
func (h *Hub) Stop() {
	close(h.done)

	h.mu.Lock()
	for _, c := range h.clients {
		c.cancel()
	}
	h.clients = make(map[string]*client)
	h.mu.Unlock()
}
