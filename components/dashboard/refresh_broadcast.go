package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	subscriberBuffer = 8
	streamPing       = 30 * time.Second
	streamWriteWait  = 10 * time.Second
)

// BroadcastHook pushes selection status changes to the live streams of the
// viewer they belong to. A subscriber that falls behind loses its oldest
// queued event, never the newest, so a stream always ends on the latest state.
type BroadcastHook struct {
	mu      sync.RWMutex
	viewers map[string]map[*subscriber]struct{}
}

type subscriber struct {
	mu     sync.Mutex
	ch     chan WidgetEvent
	closed bool
}

func (s *subscriber) push(event WidgetEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	for {
		select {
		case s.ch <- event:
			return
		default:
		}
		select {
		case <-s.ch:
		default:
		}
	}
}

func (s *subscriber) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.ch)
	}
}

func NewBroadcastHook() *BroadcastHook {
	return &BroadcastHook{viewers: map[string]map[*subscriber]struct{}{}}
}

// WidgetUpdated implements RefreshHook. Events reach the subscribers of
// event.Viewer and the subscribers registered for every viewer.
func (h *BroadcastHook) WidgetUpdated(_ context.Context, event WidgetEvent) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.viewers[event.Viewer] {
		sub.push(event)
	}
	if event.Viewer != "" {
		for sub := range h.viewers[""] {
			sub.push(event)
		}
	}
	return nil
}

// Subscribe receives the events of every viewer.
func (h *BroadcastHook) Subscribe() (<-chan WidgetEvent, func()) {
	return h.SubscribeViewer("")
}

// SubscribeViewer receives the events of one viewer key. The returned func
// unsubscribes and closes the channel; calling it again is a no-op.
func (h *BroadcastHook) SubscribeViewer(viewer string) (<-chan WidgetEvent, func()) {
	sub := &subscriber{ch: make(chan WidgetEvent, subscriberBuffer)}
	h.mu.Lock()
	set := h.viewers[viewer]
	if set == nil {
		set = map[*subscriber]struct{}{}
		h.viewers[viewer] = set
	}
	set[sub] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return sub.ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.viewers[viewer], sub)
			if len(h.viewers[viewer]) == 0 {
				delete(h.viewers, viewer)
			}
			h.mu.Unlock()
			sub.close()
		})
	}
}

// Subscribers counts open subscriptions across all viewers.
func (h *BroadcastHook) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, set := range h.viewers {
		n += len(set)
	}
	return n
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// ServeWebSocket upgrades the request and writes the viewer's events as JSON
// frames until the client goes away.
func (h *BroadcastHook) ServeWebSocket(w http.ResponseWriter, r *http.Request, viewer string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	events, cancel := h.SubscribeViewer(viewer)
	defer cancel()

	// Reads only serve to notice the close frame.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(streamPing)
	defer ping.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case <-gone:
			return
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(streamWriteWait)); err != nil {
				return
			}
		case event, ok := <-events:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if err := conn.WriteJSON(event); err != nil {
				return
			}
		}
	}
}

// ServeSSE writes the viewer's events as Server-Sent Events named after
// their status.
func (h *BroadcastHook) ServeSSE(w http.ResponseWriter, r *http.Request, viewer string) {
	header := w.Header()
	header.Set("Content-Type", "text/event-stream")
	header.Set("Cache-Control", "no-cache")
	header.Set("Connection", "keep-alive")

	events, cancel := h.SubscribeViewer(viewer)
	defer cancel()

	flush := func() {}
	if f, ok := w.(http.Flusher); ok {
		flush = f.Flush
	}
	w.WriteHeader(http.StatusOK)
	flush()

	keepAlive := time.NewTicker(streamPing)
	defer keepAlive.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case <-keepAlive.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
		case event, ok := <-events:
			if !ok {
				return
			}
			payload, err := json.Marshal(event)
			if err != nil {
				continue
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Status, payload); err != nil {
				return
			}
		}
		flush()
	}
}
