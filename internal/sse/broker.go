// Package sse implements the Server-Sent Events broker that streams canvas
// changes (connector path data, handle positions, note lifecycle) to the
// browser.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"
)

// Event types sent to clients.
const (
	ConnectorDrawn   = "connector.drawn"
	ConnectorUpdated = "connector.updated"
	ConnectorRemoved = "connector.removed"
	HandlesUpdated   = "handles.updated"
	NoteCreated      = "note.created"
	NoteUpdated      = "note.updated"
	NoteDeleted      = "note.deleted"
)

// KeepAlive is how often an idle stream receives a comment line, so
// proxies do not drop it between drags.
var KeepAlive = 15 * time.Second

// Event represents an SSE event to broadcast.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

type publishReq struct {
	key      string
	event    Event
	coalesce bool
}

// Broker manages SSE client connections and broadcasts events.
//
// Concurrency model: a single internal event loop (goroutine) owns mutable state
// (clients + pending coalesced events). Public methods communicate with this loop
// through channels, so no mutexes are required.
type Broker struct {
	window time.Duration

	subscribeCh   chan chan []byte
	unsubscribeCh chan chan []byte
	publishCh     chan publishReq
	countReqCh    chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker creates a broker. Coalesced events with the same key are
// delivered at most once per window, latest value wins.
func NewBroker(window time.Duration) *Broker {
	if window <= 0 {
		window = 50 * time.Millisecond
	}

	b := &Broker{
		window:        window,
		subscribeCh:   make(chan chan []byte),
		unsubscribeCh: make(chan chan []byte),
		publishCh:     make(chan publishReq, 256),
		countReqCh:    make(chan chan int),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}

	go b.run()
	return b
}

func (b *Broker) run() {
	defer close(b.stopped)

	clients := make(map[chan []byte]struct{})
	pending := make(map[string]Event)
	var order []string
	var seq uint64

	flushTimer := time.NewTimer(b.window)
	flushTimer.Stop()
	defer flushTimer.Stop()

	// Ids increase by one per delivered event; a client seeing a gap knows
	// its buffer overflowed and should refetch the canvas.
	broadcast := func(event Event) {
		payload, err := json.Marshal(event.Data)
		if err != nil {
			return
		}
		seq++
		raw := []byte(fmt.Sprintf("id: %d\nevent: %s\ndata: %s\n\n", seq, event.Type, payload))

		for ch := range clients {
			select {
			case ch <- raw:
			default:
				// Client buffer full; skip to avoid blocking broker loop.
			}
		}
	}

	flush := func() {
		for _, key := range order {
			if ev, ok := pending[key]; ok {
				broadcast(ev)
			}
		}
		clear(pending)
		order = order[:0]
	}

	for {
		select {
		case <-b.stopCh:
			for ch := range clients {
				close(ch)
			}
			return

		case ch := <-b.subscribeCh:
			clients[ch] = struct{}{}

		case ch := <-b.unsubscribeCh:
			if _, ok := clients[ch]; ok {
				delete(clients, ch)
				close(ch)
			}

		case req := <-b.publishCh:
			if !req.coalesce {
				// A full event supersedes a pending coalesced one for the same key.
				if req.key != "" {
					delete(pending, req.key)
				}
				broadcast(req.event)
				continue
			}
			if len(pending) == 0 {
				flushTimer.Reset(b.window)
			}
			if _, ok := pending[req.key]; !ok {
				order = append(order, req.key)
			}
			pending[req.key] = req.event

		case <-flushTimer.C:
			flush()

		case resp := <-b.countReqCh:
			resp <- len(clients)
		}
	}
}

// Close gracefully stops broker loop and closes all client channels.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe adds a new client and returns its channel.
func (b *Broker) Subscribe() chan []byte {
	ch := make(chan []byte, 64)
	if b.closed.Load() {
		close(ch)
		return ch
	}

	select {
	case b.subscribeCh <- ch:
	case <-b.stopped:
		close(ch)
	}

	return ch
}

// Unsubscribe removes a client and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	if b.closed.Load() {
		return
	}
	select {
	case b.unsubscribeCh <- ch:
	case <-b.stopped:
	}
}

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
	if b.closed.Load() {
		return 0
	}

	resp := make(chan int, 1)
	select {
	case b.countReqCh <- resp:
	case <-b.stopped:
		return 0
	}

	select {
	case n := <-resp:
		return n
	case <-b.stopped:
		return 0
	}
}

// Publish sends an event to all connected clients.
func (b *Broker) Publish(event Event) {
	b.PublishKeyed("", event)
}

// PublishKeyed sends an event immediately and drops any pending coalesced
// event with the same key.
func (b *Broker) PublishKeyed(key string, event Event) {
	b.send(publishReq{key: key, event: event})
}

// PublishCoalesced queues an event that is delivered at the end of the
// current window unless a newer event with the same key replaces it.
// Pointer-rate updates such as live path data during a drag go here.
func (b *Broker) PublishCoalesced(key string, event Event) {
	b.send(publishReq{key: key, event: event, coalesce: true})
}

func (b *Broker) send(req publishReq) {
	if b.closed.Load() {
		return
	}
	select {
	case b.publishCh <- req:
	case <-b.stopped:
	}
}

// ServeHTTP is the SSE endpoint handler (GET /api/events).
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	ping := time.NewTicker(KeepAlive)
	defer ping.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ping.C:
			_, _ = w.Write([]byte(": keep-alive\n\n"))
			flusher.Flush()
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}
